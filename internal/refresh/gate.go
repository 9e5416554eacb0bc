// Package refresh decides whether a manual refresh should reach the API.
//
// A refresh is dropped when it follows the previous one within MinInterval.
// Past that, it only goes out when the user has been away for longer than
// ActivityWindow or the data was last refreshed more than StaleAfter ago.
package refresh

import (
	"context"
	"expvar"
	"sync"
	"time"
)

var (
	debouncedTotal = expvar.NewInt("refresh_debounced_total")
	skippedTotal   = expvar.NewInt("refresh_skipped_total")
	refreshedTotal = expvar.NewInt("refresh_refreshed_total")
)

type Outcome int

const (
	Debounced Outcome = iota
	Skipped
	Refreshed
)

func (o Outcome) String() string {
	switch o {
	case Debounced:
		return "debounced"
	case Skipped:
		return "skipped"
	default:
		return "refreshed"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type Config struct {
	MinInterval    time.Duration
	ActivityWindow time.Duration
	StaleAfter     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval:    2 * time.Second,
		ActivityWindow: 5 * time.Minute,
		StaleAfter:     30 * time.Second,
	}
}

type Gate struct {
	cfg Config
	now func() time.Time

	mu          sync.Mutex
	lastRefresh time.Time
	refreshing  bool
}

func NewGate(cfg Config, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{cfg: cfg, now: now}
}

// Trigger runs refetch if the gate lets the refresh through. lastActivity is
// the tab's last-activity time from the visibility tracker. The refetch error,
// if any, is returned with the Refreshed outcome.
func (g *Gate) Trigger(ctx context.Context, lastActivity time.Time, refetch func(context.Context) error) (Outcome, error) {
	g.mu.Lock()
	now := g.now()
	sinceRefresh := now.Sub(g.lastRefresh)
	if !g.lastRefresh.IsZero() && sinceRefresh < g.cfg.MinInterval {
		g.mu.Unlock()
		debouncedTotal.Add(1)
		return Debounced, nil
	}

	shouldRefresh := g.lastRefresh.IsZero() ||
		now.Sub(lastActivity) > g.cfg.ActivityWindow ||
		sinceRefresh > g.cfg.StaleAfter
	if !shouldRefresh && !g.refreshing {
		g.mu.Unlock()
		skippedTotal.Add(1)
		return Skipped, nil
	}

	g.refreshing = true
	g.lastRefresh = now
	g.mu.Unlock()

	err := refetch(ctx)

	g.mu.Lock()
	g.refreshing = false
	g.mu.Unlock()
	refreshedTotal.Add(1)
	return Refreshed, err
}

// Refreshing reports whether a refetch started by this gate is in flight.
func (g *Gate) Refreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshing
}

// Registry keeps one gate per key, typically session plus resource.
type Registry struct {
	cfg   Config
	now   func() time.Time
	mu    sync.Mutex
	gates map[string]*Gate
}

func NewRegistry(cfg Config, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{cfg: cfg, now: now, gates: make(map[string]*Gate)}
}

func (r *Registry) Gate(key string) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[key]
	if !ok {
		g = NewGate(r.cfg, r.now)
		r.gates[key] = g
	}
	return g
}

// Forget drops every gate whose key starts with prefix.
func (r *Registry) Forget(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.gates {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(r.gates, key)
		}
	}
}

// Sweep drops gates that have not refreshed within maxIdle and are not
// refreshing now.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, g := range r.gates {
		g.mu.Lock()
		idle := !g.refreshing && g.lastRefresh.Before(cutoff)
		g.mu.Unlock()
		if idle {
			delete(r.gates, key)
			removed++
		}
	}
	return removed
}
