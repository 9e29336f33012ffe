package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/engramlabs/engram/internal/embedding"
)

func newTestJSON(t *testing.T) *JSONMemory {
	t.Helper()
	m, err := NewJSONMemory(filepath.Join(t.TempDir(), "memory.json"))
	if err != nil {
		t.Fatalf("new json memory: %v", err)
	}
	return m
}

func newTestSQLite(t *testing.T) *SQLiteMemory {
	t.Helper()
	m, err := NewSQLiteMemory(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("new sqlite memory: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// stubEmbedder returns canned vectors by exact input text and errors on
// anything else, so tests control the vector signal entry by entry.
type stubEmbedder struct {
	vectors map[string]embedding.Vector
}

func (s stubEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for input")
}

func (s stubEmbedder) Dims() int    { return 3 }
func (s stubEmbedder) Name() string { return "stub" }
