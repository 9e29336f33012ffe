package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramlabs/engram/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory",
		Long:  "Store a memory under a key. Content can be a positional arg or piped via stdin. Storing an existing key updates it in place.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().String("category", "knowledge", "Category: core, knowledge, conversation")
	cmd.Flags().StringP("session", "s", "", "Session id")

	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	category, _ := cmd.Flags().GetString("category")
	session, _ := cmd.Flags().GetString("session")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	mem, _ := openMemory()
	defer mem.Close()

	id := mem.Store(cmd.Context(), key, content, model.ParseCategory(category), session)

	b, _ := json.Marshal(map[string]string{"id": id, "key": key})
	fmt.Println(string(b))
}
