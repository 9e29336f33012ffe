package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from a JSON snapshot",
		Long:  "Read a JSON array of memories from a file or stdin. Keys that already exist are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("import", err)
	}

	mem, _ := openMemory()
	defer mem.Close()

	n := mem.SnapshotImport(data)
	fmt.Printf("imported %d memories\n", n)
}
