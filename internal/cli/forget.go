package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [key]",
		Short: "Delete a memory",
		Long:  "Delete a memory by key. Links pointing at it are removed from the remaining entries.",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	mem, _ := openMemory()
	defer mem.Close()

	if !mem.Forget(args[0]) {
		exitErr("forget", fmt.Errorf("no memory with key %q", args[0]))
	}
	fmt.Printf("forgot %q\n", args[0])
}
