package store

import (
	"context"
	"time"

	"github.com/engramlabs/engram/internal/config"
	"github.com/engramlabs/engram/internal/embedding"
	"github.com/engramlabs/engram/internal/model"
)

// NoneMemory satisfies the contract with constant-time no-ops. It is used
// when memory is administratively disabled; callers cannot distinguish it
// from a backend that simply has nothing stored yet.
type NoneMemory struct{}

func (NoneMemory) BackendName() string { return "none" }

func (NoneMemory) Store(context.Context, string, string, model.Category, string) string {
	return ""
}

func (NoneMemory) Recall(context.Context, string, int, *model.Category) []model.Entry {
	return nil
}

func (NoneMemory) Get(string) (model.Entry, bool) { return model.Entry{}, false }

func (NoneMemory) List(*model.Category, int) []model.Entry { return nil }

func (NoneMemory) Forget(string) bool { return false }

func (NoneMemory) Count(*model.Category) int { return 0 }

func (NoneMemory) Link(string, string) bool { return false }

func (NoneMemory) Unlink(string, string) bool { return false }

func (NoneMemory) Neighbors(string, int) []model.Entry { return nil }

func (NoneMemory) SnapshotExport() []byte { return []byte("[]") }

func (NoneMemory) SnapshotImport([]byte) int { return 0 }

func (NoneMemory) HygienePurge(time.Duration) int { return 0 }

func (NoneMemory) SetEmbedder(embedding.Embedder, float64, float64) {}

func (NoneMemory) SetRecencyDecay(time.Duration) {}

func (NoneMemory) SetKnowledgeDecay(int, float64) {}

func (NoneMemory) ApplyConfig(config.MemoryConfig) {}

func (NoneMemory) Close() error { return nil }
