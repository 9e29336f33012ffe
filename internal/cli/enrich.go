package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramlabs/engram/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "enrich [message]",
		Short: "Prepend relevant memories to a message",
		Long:  "Recall memories relevant to the message and prepend them as a context block. The message can be a positional arg or piped via stdin.",
		Run:   runEnrich,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max memories (default: configured recall limit)")
	cmd.Flags().Int("depth", -1, "Link hops to follow (default: configured enrich depth)")

	RootCmd.AddCommand(cmd)
}

func runEnrich(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	depth, _ := cmd.Flags().GetInt("depth")

	var message string
	if len(args) > 0 {
		message = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		message = string(b)
	}
	if strings.TrimSpace(message) == "" {
		exitErr("enrich", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	mem, cfg := openMemory()
	defer mem.Close()

	if limit <= 0 {
		limit = cfg.Memory.RecallLimit
	}
	if depth < 0 {
		depth = cfg.Memory.EnrichDepth
	}

	fmt.Println(store.Enrich(cmd.Context(), mem, message, limit, depth))
}
