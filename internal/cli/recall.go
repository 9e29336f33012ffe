package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Recall memories by relevance",
		Long:  "Rank memories against a query by keyword overlap, embedding similarity when available, and recency.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (default: configured recall limit)")
	cmd.Flags().String("category", "", "Filter by category")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	query := strings.Join(args, " ")

	mem, cfg := openMemory()
	defer mem.Close()

	if limit <= 0 {
		limit = cfg.Memory.RecallLimit
	}

	results := mem.Recall(cmd.Context(), query, limit, categoryFilter(category))
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
