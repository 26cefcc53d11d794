// Package whocan is the entry point for checking and managing grants.
//
// A WhoCan wraps any store.GrantStore. Each call validates the triple,
// delegates exactly one concrete triple to the store, logs at debug level and
// emits an audit event attributed to the identity found on the context.
//
//	w := whocan.NewMongoDB(client.Database("app"), whocan.WithCollection("who-can"))
//	if err := w.Allow(ctx, "u1", "read", "doc1"); err != nil {
//	    return err
//	}
//	ok, err := w.Can(ctx, "u1", "read", "doc1")
package whocan

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/identity"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	mongostore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/mongo"
)

// Checker is the read side of WhoCan
type Checker interface {
	Can(ctx context.Context, identifier, action, target any) (bool, error)
}

// Manager is the write side of WhoCan
type Manager interface {
	Allow(ctx context.Context, identifier, action, target any) error
	Disallow(ctx context.Context, identifier, action, target any) error
}

var (
	_ store.GrantStore = (*WhoCan)(nil)
	_ Checker          = (*WhoCan)(nil)
	_ Manager          = (*WhoCan)(nil)
)

// WhoCan answers "can identifier perform action on target"
type WhoCan struct {
	store      store.GrantStore
	logger     *zap.Logger
	audit      audit.Sink
	collection string
}

// Option configures a WhoCan
type Option func(*WhoCan)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *WhoCan) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithAudit sets the audit sink. Defaults to audit.Discard.
func WithAudit(sink audit.Sink) Option {
	return func(w *WhoCan) {
		if sink != nil {
			w.audit = sink
		}
	}
}

// WithCollection names the collection used by NewMongoDB
func WithCollection(name string) Option {
	return func(w *WhoCan) {
		if name != "" {
			w.collection = name
		}
	}
}

func newWhoCan(opts []Option) *WhoCan {
	w := &WhoCan{
		logger:     zap.NewNop(),
		audit:      audit.Discard,
		collection: store.DefaultCollection,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// New wraps s
func New(s store.GrantStore, opts ...Option) *WhoCan {
	w := newWhoCan(opts)
	w.store = s
	return w
}

// NewMongoDB returns a WhoCan backed by a collection of database
func NewMongoDB(database *mongo.Database, opts ...Option) *WhoCan {
	w := newWhoCan(opts)
	w.store = mongostore.New(database,
		mongostore.WithCollection(w.collection),
		mongostore.WithLogger(w.logger),
	)
	return w
}

// Store returns the wrapped store
func (w *WhoCan) Store() store.GrantStore {
	return w.store
}

func (w *WhoCan) fields(ctx context.Context, t grant.Triple) []zap.Field {
	id, _ := identity.Get(ctx)
	return []zap.Field{
		zap.Stringer("triple", t),
		zap.String("user", id.User()),
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Allow grants action on target to identifier
func (w *WhoCan) Allow(ctx context.Context, identifier, action, target any) error {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return err
	}

	err := w.store.Allow(ctx, identifier, action, target)

	id, _ := identity.Get(ctx)
	w.audit.Log(audit.AllowEvent{
		UserID:       id.User(),
		ClientIP:     id.ClientIP(),
		Triple:       t.String(),
		Success:      err == nil,
		ErrorMessage: errorMessage(err),
	})
	if err != nil {
		w.logger.Debug("allow failed", append(w.fields(ctx, t), zap.Error(err))...)
		return err
	}

	w.logger.Debug("allowed", w.fields(ctx, t)...)
	return nil
}

// Disallow revokes action on target from identifier
func (w *WhoCan) Disallow(ctx context.Context, identifier, action, target any) error {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return err
	}

	err := w.store.Disallow(ctx, identifier, action, target)

	id, _ := identity.Get(ctx)
	w.audit.Log(audit.DisallowEvent{
		UserID:       id.User(),
		ClientIP:     id.ClientIP(),
		Triple:       t.String(),
		Success:      err == nil,
		ErrorMessage: errorMessage(err),
	})
	if err != nil {
		w.logger.Debug("disallow failed", append(w.fields(ctx, t), zap.Error(err))...)
		return err
	}

	w.logger.Debug("disallowed", w.fields(ctx, t)...)
	return nil
}

// Can reports whether identifier may perform action on target
func (w *WhoCan) Can(ctx context.Context, identifier, action, target any) (bool, error) {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return false, err
	}

	ok, err := w.store.Can(ctx, identifier, action, target)

	id, _ := identity.Get(ctx)
	w.audit.Log(audit.CheckEvent{
		UserID:       id.User(),
		ClientIP:     id.ClientIP(),
		Triple:       t.String(),
		Allowed:      ok && err == nil,
		ErrorMessage: errorMessage(err),
	})
	if err != nil {
		w.logger.Debug("check failed", append(w.fields(ctx, t), zap.Error(err))...)
		return false, err
	}

	w.logger.Debug("checked", append(w.fields(ctx, t), zap.Bool("allowed", ok))...)
	return ok, nil
}
