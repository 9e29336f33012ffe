package store

import (
	"context"
	"testing"

	"github.com/engramlabs/engram/internal/embedding"
	"github.com/engramlabs/engram/internal/model"
)

func TestHybridRecallBlendsSignals(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.SetEmbedder(stubEmbedder{vectors: map[string]embedding.Vector{
		"alpha first fact": {1, 0, 0},
		"beta second fact": {0, 1, 0},
		"alpha":            {1, 0, 0},
	}}, 0.4, 0.6)

	m.Store(ctx, "alpha", "first fact", model.Knowledge, "")
	m.Store(ctx, "beta", "second fact", model.Knowledge, "")

	results := m.Recall(ctx, "alpha", 10, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// alpha has both signals maxed: 0.4*1 + 0.6*1.
	if results[0].Key != "alpha" {
		t.Fatalf("expected alpha first, got %s", results[0].Key)
	}
	if got := results[0].Score; got < 0.99 || got > 1.01 {
		t.Errorf("alpha score: want ~1.0, got %f", got)
	}

	// beta has no text hit and an orthogonal vector: 0.4*0 + 0.6*0.5.
	if got := results[1].Score; got < 0.29 || got > 0.31 {
		t.Errorf("beta score: want ~0.3, got %f", got)
	}
}

func TestHybridRecallVectorOnly(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.SetEmbedder(stubEmbedder{vectors: map[string]embedding.Vector{
		"alpha first fact": {1, 0, 0},
		"beta second fact": {0, 1, 0},
		"unrelated prose":  {1, 0, 0},
	}}, 0.4, 0.6)

	m.Store(ctx, "alpha", "first fact", model.Knowledge, "")
	m.Store(ctx, "beta", "second fact", model.Knowledge, "")

	// No keyword overlap at all: the cosine signal carries unweighted.
	results := m.Recall(ctx, "unrelated prose", 10, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Key != "alpha" || results[0].Score < 0.99 {
		t.Errorf("expected alpha at ~1.0, got %s %f", results[0].Key, results[0].Score)
	}
	if results[1].Score < 0.49 || results[1].Score > 0.51 {
		t.Errorf("expected beta at ~0.5, got %f", results[1].Score)
	}
}

func TestHybridRecallEmbedderFailureDegradesToLexical(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	// The stub errors on every input: both store and recall lose the
	// vector signal, keyword recall keeps working.
	m.SetEmbedder(stubEmbedder{}, 0.4, 0.6)

	m.Store(ctx, "deploy runbook", "steps for releasing", model.Knowledge, "")

	results := m.Recall(ctx, "deploy", 10, nil)
	if len(results) != 1 || results[0].Key != "deploy runbook" {
		t.Errorf("lexical recall must survive embedder failure, got %+v", results)
	}
}

func TestHybridRecallDimensionMismatch(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	// Entry embedded with a different dimensionality than the query:
	// cosine collapses to 0 and contributes a neutral 0.5 vector signal.
	m.SetEmbedder(stubEmbedder{vectors: map[string]embedding.Vector{
		"alpha first fact": {1, 0},
		"alpha":            {1, 0, 0},
	}}, 0.4, 0.6)

	m.Store(ctx, "alpha", "first fact", model.Knowledge, "")

	results := m.Recall(ctx, "alpha", 10, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// 0.4*1 (text) + 0.6*0.5 (neutral vector) = 0.7
	if got := results[0].Score; got < 0.69 || got > 0.71 {
		t.Errorf("want ~0.7, got %f", got)
	}
}

func TestHybridRecallUpdateClearsStaleVector(t *testing.T) {
	ctx := context.Background()
	vectors := map[string]embedding.Vector{
		"alpha first fact": {1, 0, 0},
		"mystery query":    {1, 0, 0},
	}

	for name, m := range map[string]Memory{
		"json":   newTestJSON(t),
		"sqlite": newTestSQLite(t),
	} {
		m.SetEmbedder(stubEmbedder{vectors: vectors}, 0.4, 0.6)

		m.Store(ctx, "alpha", "first fact", model.Knowledge, "")

		// Updating the entry with content the embedder cannot handle
		// must drop the old vector: the entry no longer matches pure
		// similarity against its previous content.
		m.Store(ctx, "alpha", "revised fact", model.Knowledge, "")

		if got := m.Recall(ctx, "mystery query", 10, nil); len(got) != 0 {
			t.Errorf("%s: stale vector must not surface after update, got %+v", name, got)
		}
	}
}

func TestHybridRecallNoSignalExcluded(t *testing.T) {
	m := newTestJSON(t)
	ctx := context.Background()

	m.SetEmbedder(stubEmbedder{vectors: map[string]embedding.Vector{
		"mystery query": {1, 0, 0},
	}}, 0.4, 0.6)

	// Stored without a vector (stub misses) and with no keyword overlap:
	// the entry has no signal at all and must not surface.
	m.Store(ctx, "opaque", "totally different words", model.Knowledge, "")

	if got := m.Recall(ctx, "mystery query", 10, nil); len(got) != 0 {
		t.Errorf("no-signal entries must be excluded, got %+v", got)
	}
}
