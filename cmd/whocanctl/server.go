package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/logger"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the who-can HTTP API",
	Long: `Run the who-can HTTP API.

The store is selected by the backend setting (WHOCAN_BACKEND). With the
postgres backend, database migrations are run on startup. Use --no-migrate
to skip.

Routes:
  GET    /              status
  GET    /health        store connectivity
  PUT    /grants        allow
  DELETE /grants        disallow
  POST   /grants/check  can`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if cfg.Backend == config.BackendPostgres && !noMigrate {
			logger.Log.Info("running database migrations")
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}

		w, s, closer, err := openWhoCan(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		srv := server.NewServer(w, s, cfg, logger.Log, host, port)

		endpoints.RegisterAll(srv)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigChan:
			logger.Log.Info("shutting down", zap.Stringer("signal", sig))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
