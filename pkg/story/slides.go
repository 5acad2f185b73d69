package story

import (
	"log/slog"
	"strings"

	"knowthepast/pkg/llm"
	"knowthepast/pkg/model"
)

type rawStory struct {
	Slides []rawSlide `json:"slides"`
}

type rawSlide struct {
	SlideType   string   `json:"slideType"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	KeyPoints   []string `json:"keyPoints"`
	ImagePrompt string   `json:"imagePrompt"`
}

var storySchema = func() *llm.Schema {
	types := make([]string, len(model.SlideTypes))
	for i, t := range model.SlideTypes {
		types[i] = string(t)
	}

	slide := llm.Object(map[string]*llm.Schema{
		"slideType":   llm.Enum("Kind of slide.", types...),
		"title":       llm.String("Short title, at most 6 words."),
		"subtitle":    llm.String("One short sentence."),
		"keyPoints":   llm.Array("Up to three short facts.", llm.String("A fact."), 0, model.MaxKeyPoints),
		"imagePrompt": llm.String("Detailed description of a single image for an image model."),
	}, "slideType", "title", "subtitle", "keyPoints", "imagePrompt")

	return llm.Object(map[string]*llm.Schema{
		"slides": llm.Array("Between 1 and 5 slides, or none if nothing is worth illustrating.", slide, 0, model.MaxSlides),
	}, "slides")
}()

// normalizeSlides drops unusable slides and enforces the story limits.
func normalizeSlides(place string, raw []rawSlide) []model.Slide {
	slides := make([]model.Slide, 0, len(raw))
	for i, r := range raw {
		st, ok := model.ParseSlideType(r.SlideType)
		if !ok {
			slog.Warn("Dropping slide with unknown type", "place", place, "index", i, "type", r.SlideType)
			continue
		}
		prompt := strings.TrimSpace(r.ImagePrompt)
		if prompt == "" {
			slog.Warn("Dropping slide without image prompt", "place", place, "index", i, "type", st)
			continue
		}

		var points []string
		for _, kp := range r.KeyPoints {
			if kp = strings.TrimSpace(kp); kp != "" {
				points = append(points, kp)
			}
		}
		if len(points) > model.MaxKeyPoints {
			points = points[:model.MaxKeyPoints]
		}

		slides = append(slides, model.Slide{
			SlideType:   st,
			Title:       strings.TrimSpace(r.Title),
			Subtitle:    strings.TrimSpace(r.Subtitle),
			KeyPoints:   points,
			ImagePrompt: prompt,
		})
		if len(slides) == model.MaxSlides {
			break
		}
	}
	return slides
}
