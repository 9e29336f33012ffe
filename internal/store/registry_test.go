package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramlabs/engram/internal/config"
	"github.com/engramlabs/engram/internal/model"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"json", "none", "sqlite"}, r.Names())
	assert.True(t, r.Has("sqlite"))
	assert.False(t, r.Has("redis"))
}

func TestRegistryOpenBackends(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	for _, tc := range []struct {
		backend string
		file    string
	}{
		{"json", "mem.json"},
		{"sqlite", "mem.db"},
	} {
		cfg := config.Default()
		cfg.Memory.Backend = tc.backend
		cfg.Memory.Path = filepath.Join(dir, tc.file)

		m, err := r.Open(cfg)
		require.NoError(t, err, tc.backend)
		assert.Equal(t, tc.backend, m.BackendName())
		m.Close()
	}
}

func TestRegistryUnknownBackendFallsBackToNone(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.Backend = "redis"

	m, err := NewRegistry().Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, "none", m.BackendName())
}

func TestRegistryCustomFactory(t *testing.T) {
	r := NewRegistry()
	r.Register("custom", func(config.Config) (Memory, error) {
		return NoneMemory{}, nil
	})

	cfg := config.Default()
	cfg.Memory.Backend = "custom"

	m, err := r.Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, "none", m.BackendName())
}

func TestNoneMemoryIsInert(t *testing.T) {
	var m NoneMemory
	ctx := context.Background()

	assert.Equal(t, "none", m.BackendName())
	assert.Empty(t, m.Store(ctx, "k", "v", model.Knowledge, ""))
	assert.Empty(t, m.Recall(ctx, "k", 5, nil))

	_, ok := m.Get("k")
	assert.False(t, ok)

	assert.Empty(t, m.List(nil, 10))
	assert.False(t, m.Forget("k"))
	assert.Zero(t, m.Count(nil))
	assert.False(t, m.Link("a", "b"))
	assert.False(t, m.Unlink("a", "b"))
	assert.Empty(t, m.Neighbors("a", -1))
	assert.Equal(t, "[]", string(m.SnapshotExport()))
	assert.Zero(t, m.SnapshotImport([]byte(`[{"key":"k"}]`)))
	assert.Zero(t, m.HygienePurge(time.Hour))
	assert.NoError(t, m.Close())
}
