// Package events turns entity-change messages published by the API into
// query cache invalidations, so lists edited elsewhere go stale here too.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"elda-admin/internal/querycache"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnknownAction = errors.New("unknown action")
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is the message body: {"entity":"employee","id":"42","action":"deleted"}.
type Event struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Action string `json:"action"`
}

// resources maps the entity names the API publishes to cache key roots.
var resources = map[string]string{
	"employee":     "employees",
	"user":         "users",
	"request":      "requests",
	"ticket":       "tickets",
	"document":     "documents",
	"category":     "categories",
	"notification": "notifications",
}

// Resource resolves an entity name, singular or plural, to its cache root.
func Resource(entity string) (string, bool) {
	entity = strings.ToLower(strings.TrimSpace(entity))
	if r, ok := resources[entity]; ok {
		return r, true
	}
	for _, r := range resources {
		if r == entity {
			return r, true
		}
	}
	return "", false
}

func Decode(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// Apply runs the cache contract for ev across every session and returns the
// number of entries touched.
func Apply(cache *querycache.Cache, ev Event) (int, error) {
	root, ok := Resource(ev.Entity)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, ev.Entity)
	}
	switch ev.Action {
	case ActionCreated, ActionUpdated:
		return cache.Invalidate(querycache.Key{root}), nil
	case ActionDeleted:
		n := 0
		if ev.ID != "" {
			n = cache.Remove(querycache.Key{root, querycache.Any, "detail", ev.ID})
		}
		return n + cache.Invalidate(querycache.Key{root}), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
}
