package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/middleware"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a bearer token for the HTTP API",
	Long: `Mint an HS256 bearer token signed with the configured JWT secret.

Changing grants over HTTP additionally needs the subject to hold the
"manage" action on "grants":

  whocanctl allow admin manage grants
  whocanctl token admin --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		secret := config.Get().JWTSecret
		if secret == "" {
			return fmt.Errorf("WHOCAN_JWT_SECRET is not set")
		}

		token, err := middleware.NewToken([]byte(secret), args[0], ttl, time.Now())
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 8*time.Minute, "token lifetime")
}
