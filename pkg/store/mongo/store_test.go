package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

func newTestStore(mt *mtest.T, opts ...Option) *Store {
	return New(mt.DB, append([]Option{WithCollection(mt.Coll.Name())}, opts...)...)
}

func namespace(mt *mtest.T) string {
	return mt.DB.Name() + "." + mt.Coll.Name()
}

func TestAllow(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates index then upserts", func(mt *mtest.T) {
		now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		s := newTestStore(mt, WithClock(func() time.Time { return now }))

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, s.Allow(context.Background(), "u1", "read", "doc1"))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "createIndexes", evt.CommandName)
		assert.Equal(mt, store.IndexName, evt.Command.Lookup("indexes", "0", "name").StringValue())
		assert.True(mt, evt.Command.Lookup("indexes", "0", "unique").Boolean())

		evt = mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)

		update := evt.Command.Lookup("updates", "0").Document()
		assert.True(mt, update.Lookup("upsert").Boolean())
		assert.Equal(mt, "u1", update.Lookup("q", "identifier", "$eq").StringValue())
		assert.Equal(mt, "read", update.Lookup("q", "action", "$eq").StringValue())
		assert.Equal(mt, "doc1", update.Lookup("q", "target", "$eq").StringValue())
		assert.Equal(mt, "u1", update.Lookup("u", "$setOnInsert", "identifier").StringValue())
		assert.True(mt, now.Equal(update.Lookup("u", "$setOnInsert", "createdAt").Time()))
		assert.True(mt, now.Equal(update.Lookup("u", "$set", "updatedAt").Time()))
	})

	mt.Run("creates index only once", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		ctx := context.Background()
		require.NoError(mt, s.Allow(ctx, "u1", "read", "doc1"))
		require.NoError(mt, s.Allow(ctx, "u1", "read", "doc1"))

		assert.Equal(mt, "createIndexes", mt.GetStartedEvent().CommandName)
		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("index failure is logged and ignored", func(mt *mtest.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		s := newTestStore(mt, WithLogger(zap.New(core)))

		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    85,
				Name:    "IndexOptionsConflict",
				Message: "index already exists with different options",
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, s.Allow(context.Background(), "u1", "read", "doc1"))
		assert.Equal(mt, 1, logs.FilterMessage("failed to create grant index").Len())
	})

	mt.Run("write failure is returned", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "duplicate key error",
			}),
		)

		err := s.Allow(context.Background(), "u1", "read", "doc1")
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("structured target keeps field order", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		target := bson.D{{Key: "type", Value: "doc"}, {Key: "id", Value: "1"}}
		require.NoError(mt, s.Allow(context.Background(), "u1", "read", target))

		mt.GetStartedEvent()
		evt := mt.GetStartedEvent()
		elems, err := evt.Command.Lookup("updates", "0", "q", "target", "$eq").Document().Elements()
		require.NoError(mt, err)
		require.Len(mt, elems, 2)
		assert.Equal(mt, "type", elems[0].Key())
		assert.Equal(mt, "id", elems[1].Key())
	})

	mt.Run("nil component is rejected", func(mt *mtest.T) {
		s := newTestStore(mt)

		err := s.Allow(context.Background(), "u1", nil, "doc1")
		assert.ErrorIs(mt, err, grant.ErrNilValue)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("typed map target is sorted", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		target := map[string]string{"type": "doc", "id": "1", "rev": "3"}
		require.NoError(mt, s.Allow(context.Background(), "u1", "read", target))

		mt.GetStartedEvent()
		evt := mt.GetStartedEvent()
		for _, path := range [][]string{
			{"updates", "0", "q", "target", "$eq"},
			{"updates", "0", "u", "$setOnInsert", "target"},
		} {
			elems, err := evt.Command.Lookup(path...).Document().Elements()
			require.NoError(mt, err)
			require.Len(mt, elems, 3)
			assert.Equal(mt, "id", elems[0].Key())
			assert.Equal(mt, "rev", elems[1].Key())
			assert.Equal(mt, "type", elems[2].Key())
		}
	})
}

func TestDisallow(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deletes one matching grant", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, s.Disallow(context.Background(), "u1", "read", "doc1"))

		mt.GetStartedEvent()
		evt := mt.GetStartedEvent()
		assert.Equal(mt, "delete", evt.CommandName)
		assert.Equal(mt, "u1", evt.Command.Lookup("deletes", "0", "q", "identifier", "$eq").StringValue())
		assert.EqualValues(mt, 1, evt.Command.Lookup("deletes", "0", "limit").AsInt64())
	})

	mt.Run("missing grant is not an error", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(mt, s.Disallow(context.Background(), "u1", "read", "doc1"))
	})

	mt.Run("write failure is returned", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    13,
				Name:    "Unauthorized",
				Message: "not authorized",
			}),
		)

		assert.Error(mt, s.Disallow(context.Background(), "u1", "read", "doc1"))
	})
}

func TestCan(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("true when a grant matches", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		ok, err := s.Can(context.Background(), "u1", "read", "doc1")
		require.NoError(mt, err)
		assert.True(mt, ok)

		mt.GetStartedEvent()
		evt := mt.GetStartedEvent()
		assert.Equal(mt, "aggregate", evt.CommandName)
		assert.Equal(mt, "u1", evt.Command.Lookup("pipeline", "0", "$match", "identifier", "$eq").StringValue())
		assert.EqualValues(mt, 1, evt.Command.Lookup("pipeline", "1", "$limit").AsInt64())
	})

	mt.Run("operator values never reach the server", func(mt *mtest.T) {
		s := newTestStore(mt)

		_, err := s.Can(context.Background(), "u1", "read", bson.D{{Key: "$ne", Value: nil}})
		assert.ErrorIs(mt, err, grant.ErrReservedKey)
		assert.ErrorIs(mt, s.Disallow(context.Background(), "u1", "read", bson.M{"$gt": ""}), grant.ErrReservedKey)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("false when nothing matches", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch),
		)

		ok, err := s.Can(context.Background(), "u1", "read", "doc1")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("read failure is returned", func(mt *mtest.T) {
		s := newTestStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    13,
				Name:    "Unauthorized",
				Message: "not authorized on test",
			}),
		)

		ok, err := s.Can(context.Background(), "u1", "read", "doc1")
		assert.Error(mt, err)
		assert.False(mt, ok)
	})
}

func TestCheckConnectivity(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ping succeeds", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, s.CheckConnectivity(context.Background()))
	})
}

func TestNewDefaults(t *testing.T) {
	s := New(nil)
	assert.Equal(t, store.DefaultCollection, s.CollectionName())

	s = New(nil, WithCollection("grants"))
	assert.Equal(t, "grants", s.CollectionName())
}
