package events

import (
	"context"
	"testing"
	"time"

	"elda-admin/internal/querycache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *querycache.Cache {
	t.Helper()
	c := querycache.New(querycache.Options{StaleTime: time.Hour, GCTime: time.Hour}, nil)
	querycache.SetQueryData(c, querycache.ListKey("employees", "alice"), func([]string, bool) []string { return []string{"a"} })
	querycache.SetQueryData(c, querycache.DetailKey("employees", "alice", "42"), func(string, bool) string { return "Abebe" })
	querycache.SetQueryData(c, querycache.DetailKey("employees", "bob", "42"), func(string, bool) string { return "Abebe" })
	querycache.SetQueryData(c, querycache.ListKey("users", "alice"), func([]string, bool) []string { return []string{"u"} })
	return c
}

func TestApplyDeleteRemovesDetailAndInvalidatesLists(t *testing.T) {
	c := seeded(t)

	ev, err := Decode([]byte(`{"entity":"employee","id":"42","action":"deleted"}`))
	require.NoError(t, err)
	n, err := Apply(c, ev)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, session := range []string{"alice", "bob"} {
		_, ok := querycache.GetQueryData[string](c, querycache.DetailKey("employees", session, "42"))
		assert.False(t, ok, session)
	}

	calls := 0
	res := querycache.Query(context.Background(), c, querycache.ListKey("employees", "alice"), querycache.Options{},
		func(context.Context) ([]string, error) { calls++; return []string{"b"}, nil })
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"b"}, res.Data)

	res = querycache.Query(context.Background(), c, querycache.ListKey("users", "alice"), querycache.Options{},
		func(context.Context) ([]string, error) { calls++; return nil, nil })
	assert.Equal(t, 1, calls)
	assert.True(t, res.FromCache)
}

func TestApplyAcceptsPluralEntity(t *testing.T) {
	c := seeded(t)
	n, err := Apply(c, Event{Entity: "Users", Action: ActionUpdated})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApplyRejectsUnknown(t *testing.T) {
	c := seeded(t)
	_, err := Apply(c, Event{Entity: "invoice", Action: ActionCreated})
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = Apply(c, Event{Entity: "employee", Action: "archived"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
