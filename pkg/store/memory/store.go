// Package memory provides an in-memory implementation of the store interfaces.
// It is useful for tests, development and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

var (
	_ store.GrantStore  = (*Store)(nil)
	_ store.HealthStore = (*Store)(nil)
)

// Store keeps grants in a map keyed by grant.Triple.Key.
type Store struct {
	mu     sync.RWMutex
	grants map[string]grant.Grant
	now    func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		grants: make(map[string]grant.Grant),
		now:    time.Now,
	}
}

// NewWithClock creates an empty Store that stamps grants with now.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func key(identifier, action, target any) (grant.Triple, string, error) {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return t, "", err
	}
	k, err := t.Key()
	return t, k, err
}

// Allow adds the grant or refreshes its updatedAt.
func (s *Store) Allow(ctx context.Context, identifier, action, target any) error {
	t, k, err := key(identifier, action, target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	g, ok := s.grants[k]
	if !ok {
		n := t.Normalized()
		g = grant.Grant{
			Identifier: n.Identifier,
			Action:     n.Action,
			Target:     n.Target,
			CreatedAt:  now,
		}
	}
	g.UpdatedAt = now
	s.grants[k] = g
	return nil
}

// Disallow removes the grant. Not found is not an error.
func (s *Store) Disallow(ctx context.Context, identifier, action, target any) error {
	_, k, err := key(identifier, action, target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, k)
	return nil
}

// Can reports whether the grant exists.
func (s *Store) Can(ctx context.Context, identifier, action, target any) (bool, error) {
	_, k, err := key(identifier, action, target)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.grants[k]
	return ok, nil
}

// Get returns the stored record for the triple.
func (s *Store) Get(identifier, action, target any) (grant.Grant, bool) {
	_, k, err := key(identifier, action, target)
	if err != nil {
		return grant.Grant{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[k]
	return g, ok
}

// Len returns the number of stored grants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}

// CheckConnectivity always succeeds.
func (s *Store) CheckConnectivity(ctx context.Context) error {
	return nil
}
