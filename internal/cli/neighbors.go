package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "neighbors [key]",
		Short: "Show memories linked to a key",
		Args:  cobra.ExactArgs(1),
		Run:   runNeighbors,
	}

	cmd.Flags().IntP("limit", "l", -1, "Max results (-1 for all)")

	RootCmd.AddCommand(cmd)
}

func runNeighbors(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	mem, _ := openMemory()
	defer mem.Close()

	entries := mem.Neighbors(args[0], limit)
	if len(entries) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
