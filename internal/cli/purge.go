package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge stale conversation memories",
		Long:  "Delete conversation memories older than the hygiene cutoff and clean up their links. Idle knowledge memories are also pruned when knowledge decay is configured.",
		Run:   runPurge,
	}

	cmd.Flags().Int("max-age", 0, "Cutoff in seconds (default: configured hygiene_max_age)")

	RootCmd.AddCommand(cmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	maxAge, _ := cmd.Flags().GetInt("max-age")

	mem, cfg := openMemory()
	defer mem.Close()

	if maxAge <= 0 {
		maxAge = cfg.Memory.HygieneMaxAge
	}

	n := mem.HygienePurge(time.Duration(maxAge) * time.Second)
	fmt.Printf("purged %d memories\n", n)
}
