package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"knowthepast/pkg/config"
	"knowthepast/pkg/discovery"
	"knowthepast/pkg/mapview"
	"knowthepast/pkg/model"
	"knowthepast/pkg/session"
	"knowthepast/pkg/store"
	"knowthepast/pkg/story"
)

// AppState is everything the front end renders, in one consistent message.
type AppState struct {
	Session session.Snapshot `json:"session"`
	Story   story.State      `json:"story"`
	Map     mapview.View     `json:"map"`
}

// App connects the session to the story builder and the map binding.
type App struct {
	ctx        context.Context
	session    *session.Manager
	story      *story.Builder
	mapView    *mapview.Binding
	discoverer discovery.Discoverer
	categories *config.CategoriesConfig
	store      store.PlaceStore
	hub        *Hub

	wg sync.WaitGroup
}

// NewApp wires the components together. ctx bounds all background work. st may be nil.
func NewApp(ctx context.Context, sess *session.Manager, sb *story.Builder, mb *mapview.Binding,
	d discovery.Discoverer, cats *config.CategoriesConfig, st store.PlaceStore, hub *Hub) *App {
	a := &App{
		ctx:        ctx,
		session:    sess,
		story:      sb,
		mapView:    mb,
		discoverer: d,
		categories: cats,
		store:      st,
		hub:        hub,
	}

	sess.OnSelect(func(p model.Place) {
		// The sequence is taken while the session still holds the selection, so a
		// close or new discovery that follows always supersedes this plan.
		seq := mb.Begin()
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			mb.PlanAt(ctx, seq, p)
		}()
		go func() {
			defer a.wg.Done()
			a.savePlace(p)
		}()
	})
	sess.OnPanel(func(panel session.Panel, p model.Place) {
		if panel == session.PanelVisual && sb.PlaceID() != p.ID {
			sb.Start(ctx, p)
		}
	})
	sess.OnClear(func() {
		sb.Reset()
		mb.Clear()
	})

	if hub != nil {
		hub.SetInitial(func() any { return a.State() })
	}
	sess.OnChange(a.broadcast)
	sb.OnChange(a.broadcast)
	mb.OnChange(a.broadcast)
	return a
}

// Discover starts a background discovery for category and returns its epoch.
func (a *App) Discover(category string) (uint64, error) {
	cat, ok := a.categories.Lookup(category)
	if !ok {
		return 0, fmt.Errorf("unknown category %q", category)
	}

	epoch, ctx := a.session.BeginDiscovery(a.ctx, cat.Key)
	slog.Info("Discovery started", "category", cat.Key, "epoch", epoch)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		place, err := a.discoverer.DiscoverPlace(ctx, cat.Key)
		a.session.CommitDiscovery(epoch, place, err)
	}()
	return epoch, nil
}

// State returns the combined application state.
func (a *App) State() AppState {
	return AppState{
		Session: a.session.Snapshot(),
		Story:   a.story.State(),
		Map:     a.mapView.View(),
	}
}

// Wait blocks until background discovery, map and story work has finished.
func (a *App) Wait() {
	a.wg.Wait()
	a.story.Wait()
}

// ToggleMapType flips between roadmap and satellite.
func (a *App) ToggleMapType() mapview.View {
	a.mapView.ToggleMapType()
	return a.mapView.View()
}

// SetMapType switches to mapType, which must be roadmap or satellite.
func (a *App) SetMapType(mapType string) (mapview.View, error) {
	if mapType != mapview.Roadmap && mapType != mapview.Satellite {
		return mapview.View{}, fmt.Errorf("unknown map type %q", mapType)
	}
	a.mapView.SetMapType(mapType)
	return a.mapView.View(), nil
}

// History returns up to limit previously discovered places, newest first.
func (a *App) History(limit int) ([]model.Place, error) {
	if a.store == nil {
		return []model.Place{}, nil
	}
	places, err := a.store.RecentPlaces(a.ctx, limit)
	if places == nil {
		places = []model.Place{}
	}
	return places, err
}

func (a *App) savePlace(p model.Place) {
	if a.store == nil {
		return
	}
	if err := a.store.SavePlace(a.ctx, &p); err != nil {
		slog.Warn("Failed to save place to history", "name", p.Name, "error", err)
	}
}

func (a *App) broadcast() {
	if a.hub != nil {
		a.hub.Broadcast(EventState, a.State())
	}
}
