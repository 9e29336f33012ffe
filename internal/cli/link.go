package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link [from] [to]",
		Short: "Link two memories",
		Long:  "Create a symmetric link between two memories. Both keys must exist. Use --rm to remove a link.",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}

	cmd.Flags().Bool("rm", false, "Remove the link instead")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	remove, _ := cmd.Flags().GetBool("rm")

	mem, _ := openMemory()
	defer mem.Close()

	from, to := args[0], args[1]
	if remove {
		if !mem.Unlink(from, to) {
			exitErr("unlink", fmt.Errorf("no link between %q and %q", from, to))
		}
		fmt.Printf("unlinked %q and %q\n", from, to)
		return
	}

	if !mem.Link(from, to) {
		exitErr("link", fmt.Errorf("both keys must exist: %q, %q", from, to))
	}
	fmt.Printf("linked %q and %q\n", from, to)
}
