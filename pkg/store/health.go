package store

import (
	"context"
	"errors"
)

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity verifies database connectivity
	CheckConnectivity(ctx context.Context) error
}

// ErrUnavailable wraps connectivity failures reported by CheckConnectivity
var ErrUnavailable = errors.New("store unavailable")
