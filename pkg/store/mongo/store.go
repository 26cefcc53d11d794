package mongo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

// Ensure Store implements the store interfaces
var (
	_ store.GrantStore  = (*Store)(nil)
	_ store.HealthStore = (*Store)(nil)
)

// Store implements store.GrantStore on a MongoDB collection
type Store struct {
	db             *mongo.Database
	collectionName string
	logger         *zap.Logger
	now            func() time.Time

	once       sync.Once
	collection *mongo.Collection
}

// Option configures a Store
type Option func(*Store)

// WithCollection overrides the collection name
func WithCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.collectionName = name
		}
	}
}

// WithLogger sets the logger used for index creation warnings
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for createdAt and updatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new Store on a connected database
func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{
		db:             db,
		collectionName: store.DefaultCollection,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CollectionName returns the name of the backing collection
func (s *Store) CollectionName() string {
	return s.collectionName
}

// getCollection returns the backing collection, creating the unique index on
// first use. Index creation errors are logged and ignored.
func (s *Store) getCollection(ctx context.Context) *mongo.Collection {
	s.once.Do(func() {
		collection := s.db.Collection(s.collectionName)
		_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{
				{Key: "identifier", Value: 1},
				{Key: "action", Value: 1},
				{Key: "target", Value: 1},
			},
			Options: options.Index().SetName(store.IndexName).SetUnique(true),
		})
		if err != nil {
			s.logger.Warn("failed to create grant index",
				zap.String("collection", s.collectionName),
				zap.String("index", store.IndexName),
				zap.Error(err),
			)
		}
		s.collection = collection
	})
	return s.collection
}

// Allow upserts the grant. createdAt is only written on insert; updatedAt is
// written every time.
func (s *Store) Allow(ctx context.Context, identifier, action, target any) error {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return err
	}

	n := t.Normalized()
	now := s.now().UTC()
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "identifier", Value: n.Identifier},
			{Key: "action", Value: n.Action},
			{Key: "target", Value: n.Target},
			{Key: "createdAt", Value: now},
		}},
		{Key: "$set", Value: bson.D{
			{Key: "updatedAt", Value: now},
		}},
	}

	_, err := s.getCollection(ctx).UpdateOne(ctx, n.Filter(), update, options.Update().SetUpsert(true))
	return err
}

// Disallow deletes the grant if present
func (s *Store) Disallow(ctx context.Context, identifier, action, target any) error {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := s.getCollection(ctx).DeleteOne(ctx, t.Filter())
	return err
}

// Can reports whether a grant exists for the exact triple. The count stops at
// the first match.
func (s *Store) Can(ctx context.Context, identifier, action, target any) (bool, error) {
	t := grant.Triple{Identifier: identifier, Action: action, Target: target}
	if err := t.Validate(); err != nil {
		return false, err
	}

	count, err := s.getCollection(ctx).CountDocuments(ctx, t.Filter(), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckConnectivity pings the primary
func (s *Store) CheckConnectivity(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return errors.Join(store.ErrUnavailable, err)
	}
	return nil
}
