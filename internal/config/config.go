// Package config loads engram's configuration from an optional YAML file
// with ENGRAM_-prefixed environment overrides, and provides defaults for
// every setting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	Memory    MemoryConfig    `yaml:"memory"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// MemoryConfig configures the backend and its retrieval policies.
type MemoryConfig struct {
	// Backend selects the storage strategy: "sqlite", "json", or "none".
	Backend string `yaml:"backend"`
	// Path to the backing file. Empty means the per-backend default under
	// ~/.engram.
	Path string `yaml:"path"`
	// RecallLimit caps recall results used for enrichment.
	RecallLimit int `yaml:"recall_limit"`
	// EnrichDepth of 0 keeps enrichment flat; 1 follows links one hop.
	EnrichDepth int `yaml:"enrich_depth"`
	// HygieneMaxAge is the conversation purge cutoff in seconds.
	HygieneMaxAge int `yaml:"hygiene_max_age"`
	// TextWeight and VectorWeight blend lexical and vector relevance.
	TextWeight   float64 `yaml:"text_weight"`
	VectorWeight float64 `yaml:"vector_weight"`
	// RecencyHalfLife in seconds; 0 disables recency decay.
	RecencyHalfLife int `yaml:"recency_half_life"`
	// KnowledgeMaxIdleDays and KnowledgeSurvivalChance control stochastic
	// pruning of idle knowledge entries; 0 days disables it.
	KnowledgeMaxIdleDays    int     `yaml:"knowledge_max_idle_days"`
	KnowledgeSurvivalChance float64 `yaml:"knowledge_survival_chance"`
}

// EmbeddingConfig configures the optional embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai", or "" (embeddings disabled).
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Memory: MemoryConfig{
			Backend:                 "sqlite",
			RecallLimit:             5,
			EnrichDepth:             1,
			HygieneMaxAge:           604800, // 7 days
			TextWeight:              0.4,
			VectorWeight:            0.6,
			KnowledgeSurvivalChance: 0.05,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist) over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file is fine; defaults apply.
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays ENGRAM_* environment variables on cfg.
func applyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setStr("ENGRAM_BACKEND", &cfg.Memory.Backend)
	setStr("ENGRAM_PATH", &cfg.Memory.Path)
	setInt("ENGRAM_RECALL_LIMIT", &cfg.Memory.RecallLimit)
	setInt("ENGRAM_ENRICH_DEPTH", &cfg.Memory.EnrichDepth)
	setInt("ENGRAM_RECENCY_HALF_LIFE", &cfg.Memory.RecencyHalfLife)
	setInt("ENGRAM_HYGIENE_MAX_AGE", &cfg.Memory.HygieneMaxAge)
	setFloat("ENGRAM_TEXT_WEIGHT", &cfg.Memory.TextWeight)
	setFloat("ENGRAM_VECTOR_WEIGHT", &cfg.Memory.VectorWeight)
	setInt("ENGRAM_KNOWLEDGE_MAX_IDLE_DAYS", &cfg.Memory.KnowledgeMaxIdleDays)
	setFloat("ENGRAM_KNOWLEDGE_SURVIVAL_CHANCE", &cfg.Memory.KnowledgeSurvivalChance)

	setStr("ENGRAM_EMBED_PROVIDER", &cfg.Embedding.Provider)
	setStr("ENGRAM_EMBED_MODEL", &cfg.Embedding.Model)
	setStr("ENGRAM_EMBED_URL", &cfg.Embedding.BaseURL)
	setStr("ENGRAM_EMBED_API_KEY", &cfg.Embedding.APIKey)
}

// StorePath returns the configured backing-file path, defaulting to
// ~/.engram/memory.db or ~/.engram/memory.json by backend.
func (m MemoryConfig) StorePath() string {
	if m.Path != "" {
		return m.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	name := "memory.db"
	if m.Backend == "json" {
		name = "memory.json"
	}
	return filepath.Join(home, ".engram", name)
}
