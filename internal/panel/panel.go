// Package panel provides presentation surfaces for the candidate window.
//
// A surface implements ime.UI. Terminal draws into a tcell screen, Web
// pushes state to browser clients over websockets and Multi fans out to
// several surfaces. Each surface keeps its own copy of the style.
package panel

import (
	"sync"

	"weasel/internal/ime"
)

// State is what a surface currently shows.
type State struct {
	Visible  bool        `json:"visible"`
	Context  ime.Context `json:"context"`
	Status   ime.Status  `json:"status"`
	Position ime.Rect    `json:"position"`
}

// model holds the state common to all surfaces. mu guards both the state
// and the style.
type model struct {
	mu    sync.Mutex
	style ime.UIStyle
	state State
}

func (m *model) init(style *ime.UIStyle) {
	if style == nil {
		m.style = ime.DefaultStyle()
		return
	}
	m.style = *style
}

// apply mutates the state under the lock and returns a copy.
func (m *model) apply(fn func(*State)) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
	return m.state
}

// State returns a copy of the current state.
func (m *model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Style returns a copy of the current style.
func (m *model) Style() ime.UIStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.style
}

// SetStyle replaces the style. Surfaces pick it up on their next redraw.
func (m *model) SetStyle(style ime.UIStyle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.style = style
}

// snapshot returns the state and style together.
func (m *model) snapshot() (State, ime.UIStyle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.style
}

// Multi fans UI calls out to several surfaces.
type Multi struct {
	mu       sync.Mutex
	style    ime.UIStyle
	surfaces []ime.UI
}

var _ ime.UI = (*Multi)(nil)

// NewMulti combines surfaces and gives each of them style. A nil style uses
// the defaults.
func NewMulti(style *ime.UIStyle, surfaces ...ime.UI) *Multi {
	m := &Multi{surfaces: surfaces}
	if style == nil {
		m.style = ime.DefaultStyle()
	} else {
		m.style = *style
	}
	for _, s := range surfaces {
		s.SetStyle(m.style)
	}
	return m
}

func (m *Multi) Show() {
	for _, s := range m.surfaces {
		s.Show()
	}
}

func (m *Multi) Hide() {
	for _, s := range m.surfaces {
		s.Hide()
	}
}

func (m *Multi) Update(ctx ime.Context, status ime.Status) {
	for _, s := range m.surfaces {
		s.Update(ctx, status)
	}
}

func (m *Multi) UpdateInputPosition(rc ime.Rect) {
	for _, s := range m.surfaces {
		s.UpdateInputPosition(rc)
	}
}

func (m *Multi) Style() ime.UIStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.style
}

func (m *Multi) SetStyle(style ime.UIStyle) {
	m.mu.Lock()
	m.style = style
	m.mu.Unlock()
	for _, s := range m.surfaces {
		s.SetStyle(style)
	}
}
