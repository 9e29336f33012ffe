package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engramlabs/engram/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	mem, cfg := openMemory()
	defer mem.Close()

	core := model.Core
	knowledge := model.Knowledge
	conversation := model.Conversation

	stats := map[string]any{
		"backend":      mem.BackendName(),
		"path":         cfg.Memory.StorePath(),
		"total":        mem.Count(nil),
		"core":         mem.Count(&core),
		"knowledge":    mem.Count(&knowledge),
		"conversation": mem.Count(&conversation),
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
