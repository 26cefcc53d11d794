package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// grantsCmd represents the grants command
var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Apply grant files",
	Long: `Apply grant files.

A grant file is a YAML sequence of !allow and !disallow entries:

  - !allow
    identifier: u1
    action: read
    target: {type: doc, id: "1"}
  - !disallow
    identifier: u2
    action: write
    target: doc1

Mapping values keep their key order.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'grants' requires a subcommand (load, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(grantsCmd)
}
