// Package redis provides a Redis implementation of the store interfaces.
//
// Each grant is a hash at <prefix>:grant:<sha256 of the triple key> with the
// fields identifier, action, target, createdAt and updatedAt. Component
// values are stored as Extended JSON.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

var (
	_ store.GrantStore  = (*Store)(nil)
	_ store.HealthStore = (*Store)(nil)
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "whocan"

// Store implements store.GrantStore on Redis hashes.
type Store struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock sets the time source for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store on an existing client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type encodedTriple struct {
	key                        string
	identifier, action, target string
}

func (s *Store) encode(identifier, action, target any) (encodedTriple, error) {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return encodedTriple{}, err
	}
	id, act, tgt, err := t.Encoded()
	if err != nil {
		return encodedTriple{}, err
	}
	k, err := t.Key()
	if err != nil {
		return encodedTriple{}, err
	}
	sum := sha256.Sum256([]byte(k))
	return encodedTriple{
		key:        s.prefix + ":grant:" + hex.EncodeToString(sum[:]),
		identifier: id,
		action:     act,
		target:     tgt,
	}, nil
}

// Allow writes the grant in a MULTI/EXEC block. createdAt is only set when the
// hash is new.
func (s *Store) Allow(ctx context.Context, identifier, action, target any) error {
	e, err := s.encode(identifier, action, target)
	if err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, e.key, "createdAt", now)
		pipe.HSet(ctx, e.key,
			"identifier", e.identifier,
			"action", e.action,
			"target", e.target,
			"updatedAt", now,
		)
		return nil
	})
	return err
}

// Disallow deletes the grant hash.
func (s *Store) Disallow(ctx context.Context, identifier, action, target any) error {
	e, err := s.encode(identifier, action, target)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, e.key).Err()
}

// Can reports whether the grant hash exists.
func (s *Store) Can(ctx context.Context, identifier, action, target any) (bool, error) {
	e, err := s.encode(identifier, action, target)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, e.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get reads the stored record. The boolean is false when no grant exists.
func (s *Store) Get(ctx context.Context, identifier, action, target any) (grant.Grant, bool, error) {
	e, err := s.encode(identifier, action, target)
	if err != nil {
		return grant.Grant{}, false, err
	}

	fields, err := s.client.HGetAll(ctx, e.key).Result()
	if err != nil {
		return grant.Grant{}, false, err
	}
	if len(fields) == 0 {
		return grant.Grant{}, false, nil
	}

	g, err := decode(fields)
	if err != nil {
		return grant.Grant{}, false, fmt.Errorf("corrupt grant %s: %w", e.key, err)
	}
	return g, true, nil
}

func decode(fields map[string]string) (grant.Grant, error) {
	var g grant.Grant
	var err error
	if g.Identifier, err = grant.ParseValue(fields["identifier"]); err != nil {
		return g, err
	}
	if g.Action, err = grant.ParseValue(fields["action"]); err != nil {
		return g, err
	}
	if g.Target, err = grant.ParseValue(fields["target"]); err != nil {
		return g, err
	}
	if g.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return g, err
	}
	if g.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updatedAt"]); err != nil {
		return g, err
	}
	return g, nil
}

// CheckConnectivity pings the server.
func (s *Store) CheckConnectivity(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Join(store.ErrUnavailable, err)
	}
	return nil
}
