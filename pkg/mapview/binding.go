package mapview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"

	"knowthepast/pkg/config"
	"knowthepast/pkg/geocode"
	"knowthepast/pkg/model"
)

// Marker is the single pin currently on the map.
type Marker struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// View is the camera state the browser should be showing.
type View struct {
	Seq      uint64      `json:"seq"`
	Lat      float64     `json:"lat"`
	Lng      float64     `json:"lng"`
	Zoom     int         `json:"zoom"`
	Bounds   *[4]float64 `json:"bounds,omitempty"` // west, south, east, north
	MapType  string      `json:"mapType"`
	Tilt     int         `json:"tilt"`
	MapID    string      `json:"mapId,omitempty"`
	Marker   *Marker     `json:"marker,omitempty"`
	Commands []Command   `json:"commands"` // most recent command batch
}

// Binding keeps the map in step with the selected place.
// With no selection the camera stays where it is and only the marker is cleared.
type Binding struct {
	resolver     geocode.Resolver
	fallbackZoom int

	mu       sync.RWMutex
	view     View
	onChange []func()
}

// NewBinding creates a binding with the configured initial camera.
func NewBinding(r geocode.Resolver, cfg config.MapsConfig) *Binding {
	mapType := cfg.InitialType
	if mapType != Roadmap {
		mapType = Satellite
	}
	b := &Binding{
		resolver:     r,
		fallbackZoom: cfg.FallbackZoom,
		view: View{
			Lat:     cfg.InitialLat,
			Lng:     cfg.InitialLon,
			Zoom:    cfg.InitialZoom,
			MapType: mapType,
			Tilt:    tiltFor(mapType),
			MapID:   cfg.MapID,
		},
	}
	if b.fallbackZoom <= 0 {
		b.fallbackZoom = 12
	}
	return b
}

func tiltFor(mapType string) int {
	if mapType == Satellite {
		return 45
	}
	return 0
}

// OnChange registers fn to be called after every view change.
func (b *Binding) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

func (b *Binding) notify() {
	b.mu.RLock()
	fns := append([]func(){}, b.onChange...)
	b.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Plan frames place and returns the commands issued. Area places are looked up through the resolver;
// a failed lookup falls back to point framing at the fallback zoom.
// If another Plan or Clear happens during the lookup, this call is dropped and returns nil.
func (b *Binding) Plan(ctx context.Context, place model.Place) []Command {
	return b.PlanAt(ctx, b.Begin(), place)
}

// Begin reserves a sequence number for a later PlanAt. Any Plan, Begin or Clear that follows
// supersedes it.
func (b *Binding) Begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Seq++
	return b.view.Seq
}

// PlanAt is Plan under a sequence number taken earlier with Begin. It returns nil without
// touching the map when seq has been superseded.
func (b *Binding) PlanAt(ctx context.Context, seq uint64, place model.Place) []Command {
	if !b.current(seq) {
		slog.Debug("Dropping superseded map update", "place", place.Name)
		return nil
	}

	var bound *orb.Bound
	zoom := place.ZoomLevel
	if place.LocationType == model.LocationArea {
		bd, err := b.resolver.ResolveBoundary(ctx, place.PlaceID)
		if err != nil {
			slog.Warn("Boundary lookup failed, falling back to point view",
				"place", place.Name, "place_id", place.PlaceID, "error", err)
			zoom = b.fallbackZoom
		} else {
			bound = &bd
		}
	}

	b.mu.Lock()
	if b.view.Seq != seq {
		b.mu.Unlock()
		slog.Debug("Dropping stale map update", "place", place.Name)
		return nil
	}
	cmds := commandsFor(place, b.view.Marker != nil, bound, zoom)
	b.apply(cmds)
	b.mu.Unlock()

	b.notify()
	return cmds
}

func (b *Binding) current(seq uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view.Seq == seq
}

// commandsFor is the pure part of Plan: it returns the commands for place given whether a marker exists
// and the resolved bound (nil for points or failed lookups).
func commandsFor(place model.Place, hasMarker bool, bound *orb.Bound, zoom int) []Command {
	var cmds []Command
	if hasMarker {
		cmds = append(cmds, clearMarker())
	}
	if bound != nil {
		return append(cmds, fitBounds(*bound))
	}
	pt := orb.Point{place.Longitude, place.Latitude}
	return append(cmds, panTo(pt), setZoom(zoom), placeMarker(pt))
}

// Clear removes the marker and keeps the current camera.
func (b *Binding) Clear() []Command {
	b.mu.Lock()
	b.view.Seq++
	var cmds []Command
	if b.view.Marker != nil {
		cmds = append(cmds, clearMarker())
	}
	b.apply(cmds)
	b.mu.Unlock()

	b.notify()
	return cmds
}

// ToggleMapType switches between roadmap and satellite. Place changes never touch the map type.
func (b *Binding) ToggleMapType() []Command {
	b.mu.Lock()
	next := Satellite
	if b.view.MapType == Satellite {
		next = Roadmap
	}
	cmds := []Command{setMapType(next), setTilt(tiltFor(next))}
	b.apply(cmds)
	b.mu.Unlock()

	b.notify()
	return cmds
}

// SetMapType switches to mapType. Unknown values and the current type are no-ops.
func (b *Binding) SetMapType(mapType string) []Command {
	if mapType != Roadmap && mapType != Satellite {
		return nil
	}
	b.mu.Lock()
	if b.view.MapType == mapType {
		b.mu.Unlock()
		return nil
	}
	cmds := []Command{setMapType(mapType), setTilt(tiltFor(mapType))}
	b.apply(cmds)
	b.mu.Unlock()

	b.notify()
	return cmds
}

// View returns a snapshot of the camera state.
func (b *Binding) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v := b.view
	if v.Marker != nil {
		m := *v.Marker
		v.Marker = &m
	}
	if v.Bounds != nil {
		bd := *v.Bounds
		v.Bounds = &bd
	}
	v.Commands = append([]Command(nil), v.Commands...)
	return v
}

// apply folds cmds into the view. Caller holds b.mu.
func (b *Binding) apply(cmds []Command) {
	for _, c := range cmds {
		switch c.Type {
		case CmdClearMarker:
			b.view.Marker = nil
		case CmdPanTo:
			if p, ok := c.Point(); ok {
				b.view.Lat, b.view.Lng = p.Lat(), p.Lon()
				b.view.Bounds = nil
			}
		case CmdSetZoom:
			b.view.Zoom = c.Zoom
		case CmdPlaceMarker:
			if p, ok := c.Point(); ok {
				b.view.Marker = &Marker{Lat: p.Lat(), Lng: p.Lon()}
			}
		case CmdFitBounds:
			if len(c.BBox) == 4 {
				bb := [4]float64{c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3]}
				b.view.Bounds = &bb
				center := c.BBox.Bound().Center()
				b.view.Lat, b.view.Lng = center.Lat(), center.Lon()
			}
		case CmdSetMapType:
			b.view.MapType = c.MapType
		case CmdSetTilt:
			if c.Tilt != nil {
				b.view.Tilt = *c.Tilt
			}
		}
	}
	b.view.Commands = cmds
}
