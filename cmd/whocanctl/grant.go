package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

const tripleArgsHelp = `Arguments are taken as plain strings. With --json each argument is parsed as
a MongoDB Extended JSON value, so numbers and ordered documents can be used:

  whocanctl %[1]s --json '42' '"read"' '{"type":"doc","id":"1"}'`

var allowCmd = &cobra.Command{
	Use:   "allow <identifier> <action> <target>",
	Short: "Grant identifier the action on target",
	Long:  "Grant identifier the action on target. Granting twice refreshes the grant.\n\n" + fmt.Sprintf(tripleArgsHelp, "allow"),
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTriple(cmd, args, func(ctx context.Context, w *whocan.WhoCan, t grant.Triple) error {
			if err := w.Allow(ctx, t.Identifier, t.Action, t.Target); err != nil {
				return err
			}
			fmt.Printf("Allowed %s\n", t)
			return nil
		})
	},
}

var disallowCmd = &cobra.Command{
	Use:   "disallow <identifier> <action> <target>",
	Short: "Revoke a grant",
	Long:  "Revoke a grant. Revoking a missing grant succeeds.\n\n" + fmt.Sprintf(tripleArgsHelp, "disallow"),
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTriple(cmd, args, func(ctx context.Context, w *whocan.WhoCan, t grant.Triple) error {
			if err := w.Disallow(ctx, t.Identifier, t.Action, t.Target); err != nil {
				return err
			}
			fmt.Printf("Disallowed %s\n", t)
			return nil
		})
	},
}

var canCmd = &cobra.Command{
	Use:   "can <identifier> <action> <target>",
	Short: "Check whether identifier may perform action on target",
	Long: "Check whether identifier may perform action on target. Prints true or\n" +
		"false and exits with status 2 when the grant is missing.\n\n" + fmt.Sprintf(tripleArgsHelp, "can"),
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var allowed bool
		err := withTriple(cmd, args, func(ctx context.Context, w *whocan.WhoCan, t grant.Triple) error {
			var err error
			allowed, err = w.Can(ctx, t.Identifier, t.Action, t.Target)
			return err
		})
		if err != nil {
			return err
		}

		fmt.Println(allowed)
		if !allowed {
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{allowCmd, disallowCmd, canCmd} {
		cmd.Flags().Bool("json", false, "parse arguments as Extended JSON values")
		rootCmd.AddCommand(cmd)
	}
}

// parseTriple builds a triple from CLI arguments
func parseTriple(args []string, asJSON bool) (grant.Triple, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		if !asJSON {
			values[i] = arg
			continue
		}
		v, err := grant.ParseValue(arg)
		if err != nil {
			return grant.Triple{}, err
		}
		values[i] = v
	}

	t := grant.Triple{Identifier: values[0], Action: values[1], Target: values[2]}
	return t, t.Validate()
}

func withTriple(cmd *cobra.Command, args []string, fn func(ctx context.Context, w *whocan.WhoCan, t grant.Triple) error) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	t, err := parseTriple(args, asJSON)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w, _, closer, err := openWhoCan(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()

	return fn(ctx, w, t)
}
