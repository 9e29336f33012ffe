package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Memory.Backend)
	assert.Equal(t, 5, cfg.Memory.RecallLimit)
	assert.Equal(t, 1, cfg.Memory.EnrichDepth)
	assert.Equal(t, 604800, cfg.Memory.HygieneMaxAge)
	assert.Equal(t, 0.4, cfg.Memory.TextWeight)
	assert.Equal(t, 0.6, cfg.Memory.VectorWeight)
	assert.Equal(t, 0.05, cfg.Memory.KnowledgeSurvivalChance)
	assert.Empty(t, cfg.Embedding.Provider)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
memory:
  backend: json
  path: /tmp/mem.json
  recall_limit: 10
  recency_half_life: 86400
embedding:
  provider: ollama
  model: all-minilm
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Memory.Backend)
	assert.Equal(t, "/tmp/mem.json", cfg.Memory.Path)
	assert.Equal(t, 10, cfg.Memory.RecallLimit)
	assert.Equal(t, 86400, cfg.Memory.RecencyHalfLife)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)

	// Untouched keys keep their defaults.
	assert.Equal(t, 604800, cfg.Memory.HygieneMaxAge)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory:\n  backend: sqlite\n"), 0o644))

	t.Setenv("ENGRAM_BACKEND", "json")
	t.Setenv("ENGRAM_PATH", "/tmp/override.json")
	t.Setenv("ENGRAM_RECALL_LIMIT", "3")
	t.Setenv("ENGRAM_EMBED_PROVIDER", "openai")
	t.Setenv("ENGRAM_EMBED_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Memory.Backend)
	assert.Equal(t, "/tmp/override.json", cfg.Memory.Path)
	assert.Equal(t, 3, cfg.Memory.RecallLimit)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
}

func TestEnvOverridesAllMemoryKeys(t *testing.T) {
	t.Setenv("ENGRAM_ENRICH_DEPTH", "2")
	t.Setenv("ENGRAM_TEXT_WEIGHT", "0.7")
	t.Setenv("ENGRAM_VECTOR_WEIGHT", "0.3")
	t.Setenv("ENGRAM_KNOWLEDGE_MAX_IDLE_DAYS", "30")
	t.Setenv("ENGRAM_KNOWLEDGE_SURVIVAL_CHANCE", "0.2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Memory.EnrichDepth)
	assert.Equal(t, 0.7, cfg.Memory.TextWeight)
	assert.Equal(t, 0.3, cfg.Memory.VectorWeight)
	assert.Equal(t, 30, cfg.Memory.KnowledgeMaxIdleDays)
	assert.Equal(t, 0.2, cfg.Memory.KnowledgeSurvivalChance)
}

func TestEnvIgnoresBadFloat(t *testing.T) {
	t.Setenv("ENGRAM_TEXT_WEIGHT", "heavy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Memory.TextWeight)
}

func TestEnvIgnoresBadInt(t *testing.T) {
	t.Setenv("ENGRAM_RECALL_LIMIT", "lots")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Memory.RecallLimit)
}

func TestStorePath(t *testing.T) {
	m := MemoryConfig{Backend: "sqlite", Path: "/data/custom.db"}
	assert.Equal(t, "/data/custom.db", m.StorePath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".engram", "memory.db"), MemoryConfig{Backend: "sqlite"}.StorePath())
	assert.Equal(t, filepath.Join(home, ".engram", "memory.json"), MemoryConfig{Backend: "json"}.StorePath())
}
