package model

import (
	"math"
	"strings"
	"time"
)

// LocationType tells the map how to frame a place.
type LocationType string

const (
	LocationPoint LocationType = "point"
	LocationArea  LocationType = "area"
)

// ParseLocationType normalizes the generator's location type.
func ParseLocationType(s string) (LocationType, bool) {
	switch LocationType(strings.ToLower(strings.TrimSpace(s))) {
	case LocationPoint:
		return LocationPoint, true
	case LocationArea:
		return LocationArea, true
	}
	return "", false
}

// Icon is the closed set of detail icons the UI knows how to draw.
type Icon string

const (
	IconCalendar     Icon = "calendar"
	IconGlobe        Icon = "globe"
	IconGeology      Icon = "geology"
	IconArchitecture Icon = "architecture"
	IconGrowth       Icon = "growth"
	IconTime         Icon = "time"
	IconSparkles     Icon = "sparkles"

	// DefaultIcon is used for anything outside the known set.
	DefaultIcon = IconSparkles
)

// Icons lists every known icon in display order.
var Icons = []Icon{IconCalendar, IconGlobe, IconGeology, IconArchitecture, IconGrowth, IconTime, IconSparkles}

// ParseIcon maps a free-form icon name onto the closed set, falling back to DefaultIcon.
func ParseIcon(s string) Icon {
	name := Icon(strings.ToLower(strings.TrimSpace(s)))
	for _, i := range Icons {
		if i == name {
			return i
		}
	}
	return DefaultIcon
}

// Asset returns the front-end asset name used to render the icon.
func (i Icon) Asset() string {
	return "icon-" + string(ParseIcon(string(i))) + ".svg"
}

// Zoom bounds for point places.
const (
	MinZoom = 15
	MaxZoom = 22
)

// Detail count bounds.
const (
	MinDetails = 2
	MaxDetails = 4
)

// PlaceDetail is a labelled fact shown in the info panel.
type PlaceDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  Icon   `json:"icon"`
}

// Place is the result of one discovery request. It is never mutated after construction;
// a new discovery replaces it wholesale.
type Place struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	Category     string        `json:"category"`
	ZoomLevel    int           `json:"zoomLevel"`
	LocationType LocationType  `json:"locationType"`
	PlaceID      string        `json:"placeId"`
	Details      []PlaceDetail `json:"details"`

	// Optional context from the generator.
	HistoricalPeriod  string `json:"historicalPeriod,omitempty"`
	Country           string `json:"country,omitempty"`
	Significance      string `json:"significance,omitempty"`
	VisualImpact      string `json:"visualImpact,omitempty"`
	BestViewingTime   string `json:"bestViewingTime,omitempty"`
	HistoricalContext string `json:"historicalContext,omitempty"`

	DiscoveredAt time.Time `json:"discoveredAt"`
}

// ValidCoordinates reports whether lat/lon are usable global coordinates.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ClampZoom forces a zoom level into [MinZoom, MaxZoom].
func ClampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Category describes one selectable theme in the dock.
type Category struct {
	Key   string `json:"key" yaml:"key"`
	Name  string `json:"name" yaml:"name"`
	Emoji string `json:"emoji" yaml:"emoji"`
}
