// Package store provides the memory backend contract and its three
// implementations: a flat-file JSON store, a SQLite store with FTS5
// lexical search, and a no-op store for when memory is disabled.
package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/engramlabs/engram/internal/config"
	"github.com/engramlabs/engram/internal/embedding"
	"github.com/engramlabs/engram/internal/model"
	"github.com/engramlabs/engram/internal/score"
)

// Memory is the backend contract. All backends behave identically from the
// caller's point of view. Query operations are total: they return
// empty/zero/false results instead of errors, and absence of a key is a
// normal outcome, not a fault. Only construction can fail.
type Memory interface {
	// BackendName identifies the storage strategy ("json", "sqlite", "none").
	BackendName() string

	// Store upserts an entry by key and returns its id. Updates replace
	// content, category, timestamp, and session id, but preserve the
	// entry's id and links.
	Store(ctx context.Context, key, content string, category model.Category, sessionID string) string

	// Recall returns up to limit entries ranked by hybrid relevance, with
	// Score populated. An empty query or no matches yields an empty slice.
	Recall(ctx context.Context, query string, limit int, filter *model.Category) []model.Entry

	// Get returns the entry with the exact key, if present.
	Get(key string) (model.Entry, bool)

	// List returns entries most-recent-first, optionally filtered by
	// category, capped at limit.
	List(filter *model.Category, limit int) []model.Entry

	// Forget deletes an entry by key, removing the key from every other
	// entry's links. Returns true iff the entry existed.
	Forget(key string) bool

	// Count returns the number of entries, optionally filtered by category.
	Count(filter *model.Category) int

	// Link ensures the symmetric edge between two existing keys. Returns
	// false without mutating when either key is absent; re-linking an
	// existing pair is a no-op success.
	Link(fromKey, toKey string) bool

	// Unlink removes the symmetric edge. Returns false when no edge exists
	// in either direction.
	Unlink(fromKey, toKey string) bool

	// Neighbors returns the entries referenced by key's links, capped at
	// limit; empty when the key is absent.
	Neighbors(key string, limit int) []model.Entry

	// SnapshotExport serializes all entries (including links) as a JSON
	// array.
	SnapshotExport() []byte

	// SnapshotImport adds entries from a JSON array, skipping keys that
	// already exist. Malformed input imports 0 entries; it never fails.
	SnapshotImport(data []byte) int

	// HygienePurge deletes conversation entries with timestamp at or past
	// the cutoff, cleaning any links pointing at them. Returns the count
	// purged.
	HygienePurge(maxAge time.Duration) int

	// Configuration hooks. Backends that do not support a feature ignore
	// the call.
	SetEmbedder(e embedding.Embedder, textWeight, vectorWeight float64)
	SetRecencyDecay(halfLife time.Duration)
	SetKnowledgeDecay(maxIdleDays int, survivalChance float64)
	ApplyConfig(cfg config.MemoryConfig)

	Close() error
}

// policy carries the retrieval settings shared by the json and sqlite
// backends, and implements the configuration hooks. Hooks are meant to be
// called during assembly, before the backend serves concurrent callers.
type policy struct {
	embedder          embedding.Embedder
	textWeight        float64
	vectorWeight      float64
	recencyHalfLife   time.Duration
	knowledgeMaxIdle  time.Duration
	knowledgeSurvival float64
}

func newPolicy() policy {
	return policy{
		textWeight:        score.DefaultTextWeight,
		vectorWeight:      score.DefaultVectorWeight,
		knowledgeSurvival: 0.05,
	}
}

func (p *policy) SetEmbedder(e embedding.Embedder, textWeight, vectorWeight float64) {
	p.embedder = e
	p.textWeight = textWeight
	p.vectorWeight = vectorWeight
}

func (p *policy) SetRecencyDecay(halfLife time.Duration) {
	p.recencyHalfLife = halfLife
}

func (p *policy) SetKnowledgeDecay(maxIdleDays int, survivalChance float64) {
	p.knowledgeMaxIdle = time.Duration(maxIdleDays) * 24 * time.Hour
	p.knowledgeSurvival = survivalChance
}

func (p *policy) ApplyConfig(cfg config.MemoryConfig) {
	p.SetRecencyDecay(time.Duration(cfg.RecencyHalfLife) * time.Second)
	p.SetKnowledgeDecay(cfg.KnowledgeMaxIdleDays, cfg.KnowledgeSurvivalChance)
}

// embedText computes the embedding for an entry outside any backend lock;
// the provider call may involve network I/O. Returns nil when no embedder
// is configured or the provider fails.
func (p *policy) embedText(ctx context.Context, text string) embedding.Vector {
	if p.embedder == nil {
		return nil
	}
	v, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil
	}
	return v
}

var (
	idMu      sync.Mutex
	idEntropy = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// newID returns a fresh ULID for a new entry.
func newID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
