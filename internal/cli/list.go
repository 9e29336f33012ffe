package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, most recent first",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results (-1 for all)")
	cmd.Flags().String("category", "", "Filter by category")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")

	mem, _ := openMemory()
	defer mem.Close()

	entries := mem.List(categoryFilter(category), limit)
	if len(entries) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
