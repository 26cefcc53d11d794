package main

import (
	"context"
	"fmt"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/db"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/logger"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

// loadConfig loads and validates the configuration
func loadConfig() (*config.WhoCanConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openWhoCan connects to the configured backend. The returned function
// closes the connection.
func openWhoCan(ctx context.Context, cfg *config.WhoCanConfig) (*whocan.WhoCan, store.Store, func() error, error) {
	s, closer, err := db.OpenStore(ctx, cfg, logger.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}

	w := whocan.New(s,
		whocan.WithLogger(logger.Log),
		whocan.WithAudit(audit.DefaultSink),
	)
	return w, s, closer, nil
}
