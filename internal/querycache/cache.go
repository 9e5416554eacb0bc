// Package querycache is the console's read-through cache over the API.
//
// Entries are addressed by semantic keys such as {"employees", session,
// "list"} or {"users", session, "detail", "42"}. Resource data is always
// scoped to the session that read it, since the API filters rows by caller. A query is served from the cache while its entry is
// younger than the stale time and has not been invalidated; otherwise it is
// refetched, with concurrent fetches of one key collapsed into one call.
// Entries nobody has read for longer than the retention (GC) time are swept.
//
// Mutations keep the cache consistent through three operations only:
// Invalidate (force a refetch), SetQueryData (patch in place) and Remove.
// Optimistic wraps SetQueryData with a snapshot so the patch can be rolled
// back when the server rejects the change.
package querycache

import (
	"context"
	"expvar"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	hitsTotal   = expvar.NewInt("querycache_hits_total")
	missesTotal = expvar.NewInt("querycache_misses_total")
)

type Key []string

// Any in an Invalidate or Remove prefix matches one element of any value.
const Any = "\x00*"

func (k Key) String() string { return strings.Join(k, "/") }

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if p != Any && k[i] != p {
			return false
		}
	}
	return true
}

// ListKey addresses one session's view of a resource list. extra carries
// paging and search when the server does the slicing.
func ListKey(resource, session string, extra ...string) Key {
	return append(Key{resource, session, "list"}, extra...)
}

// DetailKey addresses one session's copy of a single record.
func DetailKey(resource, session, id string) Key {
	return Key{resource, session, "detail", id}
}

type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration
	// Disabled serves whatever is cached and never fetches, like a query
	// whose enabled flag is off.
	Disabled bool
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	lastUsed  time.Time
	gcTime    time.Duration
	stale     bool
	gen       uint64
}

type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	group    singleflight.Group
	now      func() time.Time
	defaults Options
}

// New creates a cache. defaults fills in zero StaleTime and GCTime on
// individual queries.
func New(defaults Options, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: make(map[string]*entry), now: now, defaults: defaults}
}

func (c *Cache) withDefaults(opts Options) Options {
	if opts.StaleTime <= 0 {
		opts.StaleTime = c.defaults.StaleTime
	}
	if opts.GCTime <= 0 {
		opts.GCTime = c.defaults.GCTime
	}
	return opts
}

// entryLocked returns the entry for key, creating an empty one if needed.
func (c *Cache) entryLocked(key Key) *entry {
	ks := key.String()
	e, ok := c.entries[ks]
	if !ok {
		e = &entry{key: slices.Clone(key), gcTime: c.defaults.GCTime, lastUsed: c.now()}
		c.entries[ks] = e
	}
	return e
}

// Invalidate marks every entry under prefix stale so the next read refetches.
// Cached data is kept and still served to disabled queries.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			e.gen++
			n++
		}
	}
	return n
}

// Remove drops every entry under prefix.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for ks, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, ks)
			n++
		}
	}
	return n
}

// Sweep drops entries that have not been read within their GC time.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for ks, e := range c.entries {
		if e.gcTime > 0 && now.Sub(e.lastUsed) > e.gcTime {
			delete(c.entries, ks)
			n++
		}
	}
	return n
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{Entries: n, Hits: hitsTotal.Value(), Misses: missesTotal.Value()}
}
