package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Fetch a memory by exact key",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	mem, _ := openMemory()
	defer mem.Close()

	entry, ok := mem.Get(args[0])
	if !ok {
		exitErr("get", fmt.Errorf("no memory with key %q", args[0]))
	}

	b, _ := json.MarshalIndent(entry, "", "  ")
	fmt.Println(string(b))
}
