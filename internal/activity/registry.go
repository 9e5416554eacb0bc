package activity

import (
	"errors"
	"sync"
	"time"
)

var ErrUnknownEvent = errors.New("unknown visibility event")

const (
	EventVisibilityChange = "visibilitychange"
	EventFocus            = "focus"
	EventBlur             = "blur"
)

// Registry holds one tracker per session.
type Registry struct {
	mu       sync.Mutex
	now      func() time.Time
	trackers map[string]*Tracker
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now, trackers: make(map[string]*Tracker)}
}

// Get returns the session's tracker, creating it on first use.
func (r *Registry) Get(sessionID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[sessionID]
	if !ok {
		t = NewTracker(r.now)
		r.trackers[sessionID] = t
	}
	return t
}

// Apply routes a browser event to the session's tracker.
func (r *Registry) Apply(sessionID, event string, hidden bool) (State, error) {
	t := r.Get(sessionID)
	switch event {
	case EventVisibilityChange:
		t.VisibilityChanged(hidden)
	case EventFocus:
		t.Focus()
	case EventBlur:
		t.Blur()
	default:
		return State{}, ErrUnknownEvent
	}
	return t.State(), nil
}

func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.trackers, sessionID)
	r.mu.Unlock()
}

// Sweep drops trackers that have not been used for maxIdle and returns how
// many were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, t := range r.trackers {
		if t.lastSeen().Before(cutoff) {
			delete(r.trackers, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
