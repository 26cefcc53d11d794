package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

// Ensure Store implements the store interfaces
var (
	_ store.GrantStore  = (*Store)(nil)
	_ store.HealthStore = (*Store)(nil)
)

const (
	upsertGrantSQL = `INSERT INTO grants (identifier, action, target, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (identifier, action, target) DO UPDATE SET updated_at = EXCLUDED.updated_at`

	deleteGrantSQL = `DELETE FROM grants WHERE identifier = ? AND action = ? AND target = ?`

	grantExistsSQL = `SELECT EXISTS (SELECT 1 FROM grants WHERE identifier = ? AND action = ? AND target = ? LIMIT 1)`
)

// Row is the database representation of a grant
type Row struct {
	Identifier string
	Action     string
	Target     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table backing Row
func (Row) TableName() string {
	return "grants"
}

// Grant decodes the row
func (r Row) Grant() (grant.Grant, error) {
	var g grant.Grant
	var err error
	if g.Identifier, err = grant.ParseValue(r.Identifier); err != nil {
		return g, err
	}
	if g.Action, err = grant.ParseValue(r.Action); err != nil {
		return g, err
	}
	if g.Target, err = grant.ParseValue(r.Target); err != nil {
		return g, err
	}
	g.CreatedAt = r.CreatedAt
	g.UpdatedAt = r.UpdatedAt
	return g, nil
}

// Store implements store.GrantStore using GORM
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a new Store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewStoreWithClock creates a Store that stamps rows with now
func NewStoreWithClock(db *gorm.DB, now func() time.Time) *Store {
	return &Store{db: db, now: now}
}

func encode(identifier, action, target any) (string, string, string, error) {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return "", "", "", err
	}
	return t.Encoded()
}

// Allow inserts the grant or refreshes updated_at in a single statement
func (s *Store) Allow(ctx context.Context, identifier, action, target any) error {
	id, act, tgt, err := encode(identifier, action, target)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	return s.db.WithContext(ctx).Exec(upsertGrantSQL, id, act, tgt, now, now).Error
}

// Disallow deletes the grant if present
func (s *Store) Disallow(ctx context.Context, identifier, action, target any) error {
	id, act, tgt, err := encode(identifier, action, target)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Exec(deleteGrantSQL, id, act, tgt).Error
}

// Can reports whether the grant exists
func (s *Store) Can(ctx context.Context, identifier, action, target any) (bool, error) {
	id, act, tgt, err := encode(identifier, action, target)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := s.db.WithContext(ctx).Raw(grantExistsSQL, id, act, tgt).Scan(&exists).Error; err != nil {
		return false, err
	}
	return exists, nil
}

// Get returns the stored row for the triple. The boolean is false when no
// grant exists.
func (s *Store) Get(ctx context.Context, identifier, action, target any) (grant.Grant, bool, error) {
	id, act, tgt, err := encode(identifier, action, target)
	if err != nil {
		return grant.Grant{}, false, err
	}

	var row Row
	err = s.db.WithContext(ctx).
		Where("identifier = ? AND action = ? AND target = ?", id, act, tgt).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return grant.Grant{}, false, nil
		}
		return grant.Grant{}, false, err
	}

	g, err := row.Grant()
	if err != nil {
		return grant.Grant{}, false, fmt.Errorf("corrupt grant row: %w", err)
	}
	return g, true, nil
}

// CheckConnectivity verifies database connectivity
func (s *Store) CheckConnectivity(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return errors.Join(store.ErrUnavailable, err)
	}
	return nil
}
