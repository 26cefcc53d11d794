package store

import (
	"context"
	"errors"
)

// GrantStore persists (identifier, action, target) grants.
type GrantStore interface {
	// Allow creates the grant, or refreshes its updatedAt if it exists.
	Allow(ctx context.Context, identifier, action, target any) error

	// Disallow removes the grant. Removing a missing grant is not an error.
	Disallow(ctx context.Context, identifier, action, target any) error

	// Can reports whether the grant exists.
	Can(ctx context.Context, identifier, action, target any) (bool, error)
}

// Store is a grant store that can report its health.
type Store interface {
	GrantStore
	HealthStore
}

// ErrUnknownBackend is returned when a backend name does not match any
// implementation.
var ErrUnknownBackend = errors.New("unknown store backend")
