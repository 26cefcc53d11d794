package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit database",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the newest audit messages",
	Long: `Print the newest audit messages stored in WHOCAN_AUDIT_DATABASE_URL.

Example:
  whocanctl audit recent --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := audit.NewStore()
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("WHOCAN_AUDIT_DATABASE_URL is not set")
		}
		defer func() { _ = store.Close() }()

		messages, err := store.Recent(limit)
		if err != nil {
			return fmt.Errorf("failed to read audit messages: %w", err)
		}

		if asJSON {
			output, _ := json.MarshalIndent(messages, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		for _, m := range messages {
			fmt.Printf("%s %-8s %s\n", m.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), m.Msgid, m.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecentCmd)
	auditRecentCmd.Flags().IntP("limit", "n", 50, "number of messages")
	auditRecentCmd.Flags().Bool("json", false, "print messages as JSON")
}
