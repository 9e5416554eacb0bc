package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setup() (*fakeClock, *Gate, *int, func(context.Context) error) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	calls := 0
	refetch := func(context.Context) error {
		calls++
		return nil
	}
	return clock, NewGate(DefaultConfig(), clock.Now), &calls, refetch
}

func TestTwoRefreshesWithinMinIntervalHitOnce(t *testing.T) {
	clock, gate, calls, refetch := setup()
	ctx := context.Background()

	out, err := gate.Trigger(ctx, clock.t, refetch)
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)

	clock.Advance(1999 * time.Millisecond)
	out, err = gate.Trigger(ctx, clock.t, refetch)
	require.NoError(t, err)
	assert.Equal(t, Debounced, out)
	assert.Equal(t, 1, *calls)
}

func TestRecentActivityAndRecentRefreshSkips(t *testing.T) {
	clock, gate, calls, refetch := setup()
	ctx := context.Background()
	_, _ = gate.Trigger(ctx, clock.t, refetch)

	clock.Advance(10 * time.Second)
	out, _ := gate.Trigger(ctx, clock.t.Add(-time.Minute), refetch)
	assert.Equal(t, Skipped, out)
	assert.Equal(t, 1, *calls)

	clock.Advance(20 * time.Second)
	out, _ = gate.Trigger(ctx, clock.t.Add(-5*time.Minute), refetch)
	assert.Equal(t, Skipped, out, "exactly at both thresholds is not past them")
	assert.Equal(t, 1, *calls)
}

func TestStaleRefreshGoesThrough(t *testing.T) {
	clock, gate, calls, refetch := setup()
	ctx := context.Background()
	_, _ = gate.Trigger(ctx, clock.t, refetch)

	clock.Advance(31 * time.Second)
	out, _ := gate.Trigger(ctx, clock.t, refetch)
	assert.Equal(t, Refreshed, out)
	assert.Equal(t, 2, *calls)
}

func TestIdleUserRefreshGoesThrough(t *testing.T) {
	clock, gate, calls, refetch := setup()
	ctx := context.Background()
	_, _ = gate.Trigger(ctx, clock.t, refetch)

	clock.Advance(5 * time.Second)
	out, _ := gate.Trigger(ctx, clock.t.Add(-6*time.Minute), refetch)
	assert.Equal(t, Refreshed, out)
	assert.Equal(t, 2, *calls)
}

func TestRefetchErrorClearsRefreshing(t *testing.T) {
	clock, gate, _, _ := setup()
	boom := errors.New("boom")
	out, err := gate.Trigger(context.Background(), clock.t, func(context.Context) error {
		assert.True(t, gate.Refreshing())
		return boom
	})
	assert.Equal(t, Refreshed, out)
	assert.ErrorIs(t, err, boom)
	assert.False(t, gate.Refreshing())
}

func TestRegistryGatesAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	reg := NewRegistry(DefaultConfig(), clock.Now)
	noop := func(context.Context) error { return nil }

	out, _ := reg.Gate("s1:employees").Trigger(context.Background(), clock.t, noop)
	assert.Equal(t, Refreshed, out)
	out, _ = reg.Gate("s1:users").Trigger(context.Background(), clock.t, noop)
	assert.Equal(t, Refreshed, out)
	out, _ = reg.Gate("s1:employees").Trigger(context.Background(), clock.t, noop)
	assert.Equal(t, Debounced, out)

	reg.Forget("s1:")
	out, _ = reg.Gate("s1:employees").Trigger(context.Background(), clock.t, noop)
	assert.Equal(t, Refreshed, out)
}

func TestRegistrySweepDropsIdleGates(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	reg := NewRegistry(DefaultConfig(), clock.Now)
	noop := func(context.Context) error { return nil }

	_, _ = reg.Gate("s1:tickets").Trigger(context.Background(), clock.t, noop)
	clock.Advance(20 * time.Minute)
	_, _ = reg.Gate("s2:tickets").Trigger(context.Background(), clock.t, noop)

	assert.Equal(t, 1, reg.Sweep(10*time.Minute))
	out, _ := reg.Gate("s2:tickets").Trigger(context.Background(), clock.t, noop)
	assert.Equal(t, Debounced, out)
}
