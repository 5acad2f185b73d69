// Package mapview translates the selected place into map camera commands.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CommandType names one operation of the browser map widget.
type CommandType string

const (
	CmdClearMarker CommandType = "clear-marker"
	CmdPanTo       CommandType = "pan-to"
	CmdSetZoom     CommandType = "set-zoom"
	CmdPlaceMarker CommandType = "place-marker"
	CmdFitBounds   CommandType = "fit-bounds"
	CmdSetMapType  CommandType = "set-map-type"
	CmdSetTilt     CommandType = "set-tilt"
)

// Map types.
const (
	Roadmap   = "roadmap"
	Satellite = "satellite"
)

// Command is one camera or marker instruction. Geometry is GeoJSON (lon, lat order).
type Command struct {
	Type     CommandType       `json:"type"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	BBox     geojson.BBox      `json:"bbox,omitempty"`
	Zoom     int               `json:"zoom,omitempty"`
	MapType  string            `json:"mapType,omitempty"`
	Tilt     *int              `json:"tilt,omitempty"`
}

func clearMarker() Command { return Command{Type: CmdClearMarker} }

func panTo(p orb.Point) Command {
	return Command{Type: CmdPanTo, Geometry: geojson.NewGeometry(p)}
}

func setZoom(z int) Command { return Command{Type: CmdSetZoom, Zoom: z} }

func placeMarker(p orb.Point) Command {
	return Command{Type: CmdPlaceMarker, Geometry: geojson.NewGeometry(p)}
}

func fitBounds(b orb.Bound) Command {
	return Command{Type: CmdFitBounds, Geometry: geojson.NewGeometry(b.ToPolygon()), BBox: geojson.NewBBox(b)}
}

func setMapType(t string) Command { return Command{Type: CmdSetMapType, MapType: t} }

func setTilt(deg int) Command { return Command{Type: CmdSetTilt, Tilt: &deg} }

// Point returns the command's point geometry, if it has one.
func (c Command) Point() (orb.Point, bool) {
	if c.Geometry == nil {
		return orb.Point{}, false
	}
	p, ok := c.Geometry.Coordinates.(orb.Point)
	return p, ok
}
