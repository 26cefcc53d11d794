package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grantfile"
)

// grantsWatchCmd represents the grants watch command
var grantsWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a grant file and apply it whenever it changes",
	Long: `Watch a grant file and apply it whenever it is modified.

The file is applied once at startup. Failed applications are reported and
the watch continues.

Example:
  whocanctl grants watch /run/whocan/grants.yml`,
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

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return watchGrants(ctx, w, args[0])
	},
}

func init() {
	grantsCmd.AddCommand(grantsWatchCmd)
}

func reloadGrants(ctx context.Context, a grantfile.Applier, filename string) {
	fmt.Printf("[%s] Applying %s...\n", time.Now().Format(time.RFC3339), filename)

	n, err := applyGrantFile(ctx, a, filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error applying grants: %v\n", err)
		return
	}
	fmt.Printf("Applied %d entries from %s\n", n, filename)
}

// watchGrants watches the directory holding filename so the watch survives
// editors that replace the file instead of writing it in place.
func watchGrants(ctx context.Context, a grantfile.Applier, filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}
	target := filepath.Clean(filename)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	fmt.Printf("Watching %s for grant changes\n", filename)
	reloadGrants(ctx, a, filename)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				reloadGrants(ctx, a, filename)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				fmt.Fprintf(os.Stderr, "%s was removed, waiting for it to reappear\n", filename)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
