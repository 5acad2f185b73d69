// Package session holds the panel view state: which place is selected and which panel is open.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"knowthepast/pkg/model"
)

// Panel identifies the side panel currently shown.
type Panel string

const (
	PanelNone   Panel = "none"
	PanelInfo   Panel = "info"
	PanelVisual Panel = "visual"
)

// ParsePanel returns the toggleable panel named s.
func ParsePanel(s string) (Panel, bool) {
	switch Panel(strings.ToLower(strings.TrimSpace(s))) {
	case PanelInfo:
		return PanelInfo, true
	case PanelVisual:
		return PanelVisual, true
	}
	return "", false
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Epoch       uint64       `json:"epoch"`
	ActivePanel Panel        `json:"activePanel"`
	Place       *model.Place `json:"place,omitempty"`
	Category    string       `json:"category,omitempty"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
}

// Manager guards the panel state. The info and visual panels are mutually exclusive
// and no panel can be open without a selected place.
type Manager struct {
	// dispatch is held across each state change and its listener calls, so listeners
	// observe changes in the order they were made. Listeners must not call back into
	// the mutating methods.
	dispatch sync.Mutex

	mu       sync.RWMutex
	epoch    uint64
	cancel   context.CancelFunc
	panel    Panel
	place    *model.Place
	category string
	loading  bool
	errMsg   string

	onChange []func()
	onSelect []func(model.Place)
	onPanel  []func(Panel, model.Place)
	onClear  []func()
}

// NewManager creates an idle session.
func NewManager() *Manager {
	return &Manager{panel: PanelNone}
}

// OnChange registers fn to run after every state change.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnSelect registers fn to run when a place becomes selected.
func (m *Manager) OnSelect(fn func(model.Place)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSelect = append(m.onSelect, fn)
}

// OnPanel registers fn to run when a panel opens for the selected place.
func (m *Manager) OnPanel(fn func(Panel, model.Place)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPanel = append(m.onPanel, fn)
}

// OnClear registers fn to run when the selection is dropped (close or new discovery).
func (m *Manager) OnClear(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = append(m.onClear, fn)
}

// BeginDiscovery starts a new discovery request. It cancels the previous request, drops the current
// selection and returns the epoch to pass to CommitDiscovery along with a context derived from parent.
func (m *Manager) BeginDiscovery(parent context.Context, category string) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.epoch++
	epoch := m.epoch
	m.cancel = cancel
	hadPlace := m.place != nil
	m.place = nil
	m.panel = PanelNone
	m.category = category
	m.loading = true
	m.errMsg = ""
	clearFns := m.clearListeners(hadPlace)
	m.mu.Unlock()

	for _, fn := range clearFns {
		fn()
	}
	m.notify()
	return epoch, ctx
}

// CommitDiscovery applies a discovery result. Results from superseded requests are dropped.
func (m *Manager) CommitDiscovery(epoch uint64, place model.Place, err error) bool {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	if epoch != m.epoch {
		current := m.epoch
		m.mu.Unlock()
		slog.Debug("Dropping stale discovery result", "epoch", epoch, "current", current)
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.loading = false
	if err != nil {
		m.errMsg = "Failed to find a place. " + err.Error()
		category := m.category
		m.mu.Unlock()
		slog.Error("Discovery failed", "category", category, "error", err)
		m.notify()
		return true
	}
	sel := m.selectLocked(place)
	m.mu.Unlock()

	sel.fire(place)
	m.notify()
	return true
}

// SelectPlace makes p the selected place and opens the info panel.
func (m *Manager) SelectPlace(p model.Place) {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	sel := m.selectLocked(p)
	m.mu.Unlock()

	sel.fire(p)
	m.notify()
}

type selection struct {
	onSelect []func(model.Place)
	onPanel  []func(Panel, model.Place)
}

func (s selection) fire(p model.Place) {
	slog.Info("Place selected", "name", p.Name, "category", p.Category, "type", p.LocationType)
	for _, fn := range s.onSelect {
		fn(p)
	}
	for _, fn := range s.onPanel {
		fn(PanelInfo, p)
	}
}

// selectLocked installs p and returns the listeners to fire. Caller holds m.mu.
func (m *Manager) selectLocked(p model.Place) selection {
	m.place = &p
	m.panel = PanelInfo
	m.errMsg = ""
	return selection{
		onSelect: append([]func(model.Place){}, m.onSelect...),
		onPanel:  append([]func(Panel, model.Place){}, m.onPanel...),
	}
}

// TogglePanel closes which if it is open, otherwise shows it instead of the other panel.
// It does nothing while no place is selected.
func (m *Manager) TogglePanel(which Panel) Panel {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	if m.place == nil || (which != PanelInfo && which != PanelVisual) {
		current := m.panel
		m.mu.Unlock()
		return current
	}
	if m.panel == which {
		m.panel = PanelNone
	} else {
		m.panel = which
	}
	next, place := m.panel, *m.place
	var panelFns []func(Panel, model.Place)
	if next != PanelNone {
		panelFns = append(panelFns, m.onPanel...)
	}
	m.mu.Unlock()

	for _, fn := range panelFns {
		fn(next, place)
	}
	m.notify()
	return next
}

// Close drops the selection and hides every panel.
func (m *Manager) Close() {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	hadPlace := m.place != nil
	m.place = nil
	m.panel = PanelNone
	clearFns := m.clearListeners(true)
	m.mu.Unlock()

	if hadPlace {
		slog.Debug("Selection closed")
	}
	for _, fn := range clearFns {
		fn()
	}
	m.notify()
}

// DismissError clears the user-visible error message.
func (m *Manager) DismissError() {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	m.errMsg = ""
	m.mu.Unlock()
	m.notify()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		Epoch:       m.epoch,
		ActivePanel: m.panel,
		Category:    m.category,
		Loading:     m.loading,
		Error:       m.errMsg,
	}
	if m.place != nil {
		p := *m.place
		s.Place = &p
	}
	return s
}

// SelectedPlace returns the selected place, if any.
func (m *Manager) SelectedPlace() (model.Place, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.place == nil {
		return model.Place{}, false
	}
	return *m.place, true
}

// clearListeners returns the clear callbacks to run. Caller holds m.mu.
func (m *Manager) clearListeners(run bool) []func() {
	if !run {
		return nil
	}
	return append([]func(){}, m.onClear...)
}

func (m *Manager) notify() {
	m.mu.RLock()
	fns := append([]func(){}, m.onChange...)
	m.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
