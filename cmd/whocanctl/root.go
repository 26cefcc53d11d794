package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "whocanctl",
	Short: "Manage who can perform which action on what",
	Long: `whocanctl runs the who-can HTTP API and manages grants.

A grant is an (identifier, action, target) triple. Configuration is read from
$WHOCAN_CONFIG_PATH/whocan.yml and WHOCAN_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitLogger(config.Get().LogLevel)
	},
}

func Execute() {
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
