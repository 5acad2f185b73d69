package model

import (
	"strings"
)

// SlideType is the kind of page in a visual story.
type SlideType string

const (
	SlideOverview             SlideType = "overview"
	SlideHistoricalTimeline   SlideType = "historical_timeline"
	SlideCulturalContext      SlideType = "cultural_context"
	SlideThenVsNow            SlideType = "then_vs_now"
	SlideArchitecturalDetails SlideType = "architectural_details"
)

// SlideTypes lists the allowed slide types.
var SlideTypes = []SlideType{
	SlideOverview,
	SlideHistoricalTimeline,
	SlideCulturalContext,
	SlideThenVsNow,
	SlideArchitecturalDetails,
}

// ParseSlideType returns the slide type for s, or false if it is not one of SlideTypes.
func ParseSlideType(s string) (SlideType, bool) {
	name := SlideType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range SlideTypes {
		if t == name {
			return t, true
		}
	}
	return "", false
}

// Story limits.
const (
	MaxSlides    = 5
	MaxKeyPoints = 3
)

// Slide is one page of a visual story.
type Slide struct {
	SlideType   SlideType `json:"slideType"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	KeyPoints   []string  `json:"keyPoints"`
	ImagePrompt string    `json:"imagePrompt"`
}

// ImageStatus is the per-slide image resolution state.
type ImageStatus string

const (
	ImageLoading ImageStatus = "loading"
	ImageLoaded  ImageStatus = "loaded"
	ImageError   ImageStatus = "error"
)

// Image is a rendered image payload.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool { return len(i.Data) == 0 }
