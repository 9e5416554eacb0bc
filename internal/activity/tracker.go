// Package activity tracks whether a console tab is visible and when its user
// last came back to it. The browser reports visibilitychange, focus and blur
// events; list queries are gated on the visible flag and the refresh gate
// reads the last-activity time.
package activity

import (
	"sync"
	"time"
)

type State struct {
	Visible      bool      `json:"visible"`
	LastActivity time.Time `json:"last_activity"`
}

type Tracker struct {
	mu    sync.Mutex
	now   func() time.Time
	state State
	seen  time.Time
}

// NewTracker starts visible with the last activity set to now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Tracker{now: now, state: State{Visible: true, LastActivity: t}, seen: t}
}

// VisibilityChanged applies a visibilitychange event. Activity is only
// refreshed when the tab becomes visible.
func (t *Tracker) VisibilityChanged(hidden bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.seen = now
	t.state.Visible = !hidden
	if !hidden {
		t.state.LastActivity = now
	}
}

func (t *Tracker) Focus() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.seen = now
	t.state.Visible = true
	t.state.LastActivity = now
}

func (t *Tracker) Blur() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = t.now()
	t.state.Visible = false
}

// Touch marks the tracker as in use without changing its state.
func (t *Tracker) Touch() {
	t.mu.Lock()
	t.seen = t.now()
	t.mu.Unlock()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) lastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen
}
