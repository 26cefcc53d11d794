package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grantfile"
)

// grantsLoadCmd represents the grants load command
var grantsLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Apply a grant file",
	Long: `Apply a grant file.

Entries are applied in order. Loading stops at the first failing entry;
entries before it stay applied.

Example:
  whocanctl grants load grants.yml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		w, _, closer, err := openWhoCan(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()

		n, err := applyGrantFile(cmd.Context(), w, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Applied %d entries from %s\n", n, args[0])
		return nil
	},
}

func init() {
	grantsCmd.AddCommand(grantsLoadCmd)
}

func applyGrantFile(ctx context.Context, a grantfile.Applier, path string) (int, error) {
	entries, err := grantfile.Load(path)
	if err != nil {
		return 0, err
	}
	return grantfile.Apply(ctx, a, entries)
}
