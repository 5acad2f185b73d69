package discovery

import (
	"knowthepast/pkg/llm"
	"knowthepast/pkg/model"
)

var placeSchema = func() *llm.Schema {
	icons := make([]string, len(model.Icons))
	for i, ic := range model.Icons {
		icons[i] = string(ic)
	}

	detail := llm.Object(map[string]*llm.Schema{
		"label": llm.String("Short label, e.g. 'Founded'."),
		"value": llm.String("Short value, e.g. '1200 BCE'."),
		"icon":  llm.Enum("Icon that best fits the fact.", icons...),
	}, "label", "value", "icon")

	s := llm.Object(map[string]*llm.Schema{
		"name":              llm.String("Exact official name of the place."),
		"description":       llm.String("Rich, engaging 3-4 sentence description of the place, its look and its history."),
		"latitude":          llm.Number("Precise decimal latitude."),
		"longitude":         llm.Number("Precise decimal longitude."),
		"zoomLevel":         llm.Integer("Map zoom level between 15 and 22 that shows the place in detail."),
		"locationType":      llm.Enum("point for a single site, area for something with an extent.", string(model.LocationPoint), string(model.LocationArea)),
		"placeId":           llm.String("Google Maps place ID for area locations; empty string for points."),
		"details":           llm.Array("Two to four key facts.", detail, model.MinDetails, model.MaxDetails),
		"historicalPeriod":  llm.String("Specific era, e.g. '12th century CE'."),
		"country":           llm.String("Full country name."),
		"significance":      llm.String("Why this place matters historically, culturally or geologically."),
		"visualImpact":      llm.String("The most striking visual or experiential aspect, one sentence."),
		"bestViewingTime":   llm.String("When to visit for the best experience (season, time of day)."),
		"historicalContext": llm.String("Additional historical background or interesting facts."),
	},
		"name", "description", "latitude", "longitude", "zoomLevel", "locationType", "placeId", "details",
		"historicalPeriod", "country", "significance", "visualImpact", "bestViewingTime", "historicalContext",
	)
	s.Required = []string{"name", "description", "latitude", "longitude", "zoomLevel", "locationType", "placeId", "details"}
	return s
}()
