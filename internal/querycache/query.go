package querycache

import (
	"context"
	"time"
)

type Status string

// fetchTimeout bounds a shared fetch once it is detached from its callers.
const fetchTimeout = 30 * time.Second

const (
	StatusPending Status = "pending"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// Result is the tri-state outcome of a query. On error, Data holds the last
// good value when one is cached and Stale is set; the caller decides whether
// to show it.
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	UpdatedAt time.Time
	FromCache bool
	Stale     bool
}

func (r Result[T]) HasData() bool {
	return r.Status == StatusSuccess || r.Stale
}

// Query reads key through the cache, calling fetch when the entry is missing,
// stale or invalidated.
func Query[T any](ctx context.Context, c *Cache, key Key, opts Options, fetch func(context.Context) (T, error)) Result[T] {
	opts = c.withDefaults(opts)

	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key)
	e.lastUsed = now
	if opts.GCTime > 0 {
		e.gcTime = opts.GCTime
	}
	cached, typed := e.data.(T)
	if e.hasData && typed && !e.stale && now.Sub(e.updatedAt) < opts.StaleTime {
		updated := e.updatedAt
		c.mu.Unlock()
		hitsTotal.Add(1)
		return Result[T]{Status: StatusSuccess, Data: cached, UpdatedAt: updated, FromCache: true}
	}
	if opts.Disabled {
		defer c.mu.Unlock()
		if e.hasData && typed {
			return Result[T]{Status: StatusSuccess, Data: cached, UpdatedAt: e.updatedAt, FromCache: true, Stale: true}
		}
		return Result[T]{Status: StatusPending}
	}
	gen := e.gen
	c.mu.Unlock()

	missesTotal.Add(1)
	// The shared fetch outlives any one caller: a waiter that gives up must
	// not fail the others, and the result still lands in the cache.
	ch := c.group.DoChan(key.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		v, err := fetch(fctx)
		c.store(key, gen, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		return errorResult[T](c, key, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return errorResult[T](c, key, r.Err)
		}
		data, _ := r.Val.(T)
		c.mu.Lock()
		updated := c.entryLocked(key).updatedAt
		c.mu.Unlock()
		return Result[T]{Status: StatusSuccess, Data: data, UpdatedAt: updated}
	}
}

func (c *Cache) store(key Key, gen uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	if err != nil {
		e.err = err
		return
	}
	e.data, e.hasData, e.err = v, true, nil
	e.updatedAt = c.now()
	// An invalidation that landed while the fetch was in flight wins.
	e.stale = e.gen != gen
}

// errorResult reports err alongside the last good value, if any.
func errorResult[T any](c *Cache, key Key, err error) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := Result[T]{Status: StatusError, Err: err}
	if e, ok := c.entries[key.String()]; ok && e.hasData {
		if old, ok := e.data.(T); ok {
			res.Data, res.Stale, res.UpdatedAt, res.FromCache = old, true, e.updatedAt, true
		}
	}
	return res
}

// GetQueryData returns the cached value for key without fetching.
func GetQueryData[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return zero, false
	}
	v, ok := e.data.(T)
	return v, ok
}

// SetQueryData patches the cached value for key in place. update receives the
// current value and whether one was cached.
func SetQueryData[T any](c *Cache, key Key, update func(old T, ok bool) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	old, ok := e.data.(T)
	e.data = update(old, ok && e.hasData)
	e.hasData = true
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
}

// Optimistic applies update to key and returns a rollback that restores the
// previous entry exactly. Nothing guards against a second mutation of the
// same key between the patch and the rollback.
func Optimistic[T any](c *Cache, key Key, update func(old T, ok bool) T) (rollback func()) {
	c.mu.Lock()
	prev, existed := c.entries[key.String()]
	var snapshot entry
	if existed {
		snapshot = *prev
	}
	c.mu.Unlock()

	SetQueryData(c, key, update)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !existed {
			delete(c.entries, key.String())
			return
		}
		restored := snapshot
		c.entries[key.String()] = &restored
	}
}
