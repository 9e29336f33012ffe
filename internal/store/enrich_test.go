package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramlabs/engram/internal/model"
)

func TestEnrichPrependsContext(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.Store(ctx, "user-name", "the user is called Sam", model.Core, "")

	out := Enrich(ctx, m, "what is the user name?", 5, 0)

	require.True(t, strings.HasPrefix(out, "[Memory context]\n"))
	assert.Contains(t, out, "- user-name: the user is called Sam\n")
	assert.Contains(t, out, "[/Memory context]\n\nwhat is the user name?")
}

func TestEnrichNoMatchesPassesThrough(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.Store(ctx, "unrelated", "nothing relevant here", model.Knowledge, "")

	msg := "completely different topic"
	assert.Equal(t, msg, Enrich(ctx, m, msg, 5, 0))
}

func TestEnrichDisabled(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "msg", Enrich(ctx, nil, "msg", 5, 0))
	assert.Equal(t, "msg", Enrich(ctx, newTestJSON(t), "msg", 0, 0))
	assert.Equal(t, "msg", Enrich(ctx, NoneMemory{}, "msg", 5, 1))
}

func TestEnrichFollowsLinks(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.Store(ctx, "project", "working on the billing service", model.Knowledge, "")
	m.Store(ctx, "billing-db", "billing data lives in postgres", model.Knowledge, "")
	m.Store(ctx, "unlinked", "totally separate note", model.Knowledge, "")
	m.Link("project", "billing-db")

	out := Enrich(ctx, m, "tell me about the project", 5, 1)

	assert.Contains(t, out, "- project:")
	assert.Contains(t, out, "- billing-db:")
	assert.NotContains(t, out, "unlinked")
}

func TestEnrichDepthZeroSkipsLinks(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.Store(ctx, "project", "working on the billing service", model.Knowledge, "")
	m.Store(ctx, "side-note", "archived detail", model.Knowledge, "")
	m.Link("project", "side-note")

	out := Enrich(ctx, m, "tell me about the project", 5, 0)

	assert.Contains(t, out, "- project:")
	assert.NotContains(t, out, "side-note")
}

func TestCollectNeighborsDedupes(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.Store(ctx, "a", "x", model.Knowledge, "")
	m.Store(ctx, "b", "x", model.Knowledge, "")
	m.Store(ctx, "c", "x", model.Knowledge, "")
	m.Link("a", "b")
	m.Link("b", "c")
	m.Link("a", "c")

	seedA, _ := m.Get("a")
	found := CollectNeighbors(m, []model.Entry{seedA}, 1)

	keys := make([]string, len(found))
	for i, e := range found {
		keys[i] = e.Key
	}
	assert.ElementsMatch(t, []string{"b", "c"}, keys)
}

func TestCollectNeighborsDepthTwo(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	// Chain a - b - c: depth 1 reaches b, depth 2 also reaches c.
	m.Store(ctx, "a", "x", model.Knowledge, "")
	m.Store(ctx, "b", "x", model.Knowledge, "")
	m.Store(ctx, "c", "x", model.Knowledge, "")
	m.Link("a", "b")
	m.Link("b", "c")

	seedA, _ := m.Get("a")

	found := CollectNeighbors(m, []model.Entry{seedA}, 1)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Key)

	found = CollectNeighbors(m, []model.Entry{seedA}, 2)
	keys := make([]string, len(found))
	for i, e := range found {
		keys[i] = e.Key
	}
	assert.ElementsMatch(t, []string{"b", "c"}, keys)
}
