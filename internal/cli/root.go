// Package cli implements the engram CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engramlabs/engram/internal/config"
	"github.com/engramlabs/engram/internal/model"
	"github.com/engramlabs/engram/internal/store"
)

var (
	configPath  string
	backendFlag string
	pathFlag    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Persistent memory for conversational agents",
	Long:  "Store, link, and recall agent memories. Hybrid keyword and vector retrieval, SQLite or flat-file backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	RootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "Memory backend: sqlite, json, or none")
	RootCmd.PersistentFlags().StringVarP(&pathFlag, "db", "d", "", "Backing file path (default: ~/.engram/memory.db or memory.json)")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if backendFlag != "" {
		cfg.Memory.Backend = backendFlag
	}
	if pathFlag != "" {
		cfg.Memory.Path = pathFlag
	}
	return cfg
}

func openMemory() (store.Memory, config.Config) {
	cfg := loadConfig()
	mem, err := store.NewRegistry().Open(cfg)
	if err != nil {
		exitErr("open memory", err)
	}
	return mem, cfg
}

// categoryFilter turns a --category flag value into an optional filter.
// Empty means no filter; anything else must name a valid category.
func categoryFilter(value string) *model.Category {
	if value == "" {
		return nil
	}
	c := model.ParseCategory(value)
	return &c
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
