// Package storetest holds a behaviour suite shared by every store.GrantStore
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

// Suite describes the store under test.
type Suite struct {
	// New returns an empty, ready to use store.
	New func(t *testing.T) store.GrantStore

	// Count returns how many records the store holds for the triple. When nil
	// the uniqueness checks are skipped.
	Count func(t *testing.T, s store.GrantStore, triple grant.Triple) int
}

func random() string {
	return uuid.NewString()
}

func randomTriple() grant.Triple {
	return grant.Triple{Identifier: random(), Action: random(), Target: random()}
}

// Run executes the suite.
func (suite Suite) Run(t *testing.T) {
	ctx := context.Background()

	t.Run("granted triple can", func(t *testing.T) {
		s := suite.New(t)
		tr := randomTriple()

		require.NoError(t, s.Allow(ctx, tr.Identifier, tr.Action, tr.Target))

		ok, err := s.Can(ctx, tr.Identifier, tr.Action, tr.Target)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("never granted triple cannot", func(t *testing.T) {
		s := suite.New(t)
		tr := randomTriple()

		ok, err := s.Can(ctx, tr.Identifier, tr.Action, tr.Target)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unrelated grants do not leak", func(t *testing.T) {
		s := suite.New(t)
		identifier, action, target := random(), random(), random()

		require.NoError(t, s.Allow(ctx, identifier, action, target))
		unrelated := []grant.Triple{
			{Identifier: identifier, Action: random(), Target: target},
			{Identifier: identifier, Action: random(), Target: target},
			{Identifier: identifier, Action: random(), Target: random()},
			{Identifier: identifier, Action: random(), Target: random()},
			{Identifier: random(), Action: action, Target: target},
			{Identifier: random(), Action: random(), Target: target},
			{Identifier: random(), Action: random(), Target: target},
			{Identifier: random(), Action: random(), Target: random()},
			{Identifier: random(), Action: random(), Target: random()},
			{Identifier: random(), Action: random(), Target: random()},
		}
		for _, u := range unrelated {
			require.NoError(t, s.Allow(ctx, u.Identifier, u.Action, u.Target))
		}

		ok, err := s.Can(ctx, identifier, action, target)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Can(ctx, identifier, action, random())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Can(ctx, random(), action, target)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("disallow revokes", func(t *testing.T) {
		s := suite.New(t)
		tr := randomTriple()

		require.NoError(t, s.Allow(ctx, tr.Identifier, tr.Action, tr.Target))
		ok, err := s.Can(ctx, tr.Identifier, tr.Action, tr.Target)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, s.Disallow(ctx, tr.Identifier, tr.Action, tr.Target))
		ok, err = s.Can(ctx, tr.Identifier, tr.Action, tr.Target)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("disallow of missing grant succeeds", func(t *testing.T) {
		s := suite.New(t)
		tr := randomTriple()

		assert.NoError(t, s.Disallow(ctx, tr.Identifier, tr.Action, tr.Target))
	})

	t.Run("regrant is idempotent", func(t *testing.T) {
		s := suite.New(t)
		tr := randomTriple()

		require.NoError(t, s.Allow(ctx, tr.Identifier, tr.Action, tr.Target))
		require.NoError(t, s.Allow(ctx, tr.Identifier, tr.Action, tr.Target))

		ok, err := s.Can(ctx, tr.Identifier, tr.Action, tr.Target)
		require.NoError(t, err)
		assert.True(t, ok)

		if suite.Count != nil {
			assert.Equal(t, 1, suite.Count(t, s, tr))
		}
	})

	t.Run("key order of structured values is identity", func(t *testing.T) {
		s := suite.New(t)
		identifier, action, id := random(), random(), random()
		ordered := bson.D{{Key: "type", Value: "doc"}, {Key: "id", Value: id}}
		reversed := bson.D{{Key: "id", Value: id}, {Key: "type", Value: "doc"}}

		require.NoError(t, s.Allow(ctx, identifier, action, ordered))

		ok, err := s.Can(ctx, identifier, action, reversed)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Can(ctx, identifier, action, ordered)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("structured identifier", func(t *testing.T) {
		s := suite.New(t)
		identifier := bson.D{{Key: "tenant", Value: random()}, {Key: "user", Value: random()}}
		action, target := random(), random()

		require.NoError(t, s.Allow(ctx, identifier, action, target))

		ok, err := s.Can(ctx, identifier, action, target)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("grant check revoke check", func(t *testing.T) {
		s := suite.New(t)
		user := "u1-" + random()

		require.NoError(t, s.Allow(ctx, user, "read", "doc1"))
		ok, err := s.Can(ctx, user, "read", "doc1")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.Disallow(ctx, user, "read", "doc1"))
		ok, err = s.Can(ctx, user, "read", "doc1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nil values are rejected", func(t *testing.T) {
		s := suite.New(t)

		assert.ErrorIs(t, s.Allow(ctx, nil, "read", "doc1"), grant.ErrNilValue)
		assert.ErrorIs(t, s.Disallow(ctx, "u1", nil, "doc1"), grant.ErrNilValue)
		_, err := s.Can(ctx, "u1", "read", nil)
		assert.ErrorIs(t, err, grant.ErrNilValue)
	})
	t.Run("typed nil values are rejected", func(t *testing.T) {
		s := suite.New(t)

		assert.ErrorIs(t, s.Allow(ctx, (*string)(nil), "read", "doc1"), grant.ErrNilValue)
		assert.ErrorIs(t, s.Disallow(ctx, "u1", []string(nil), "doc1"), grant.ErrNilValue)
		_, err := s.Can(ctx, "u1", "read", map[string]string(nil))
		assert.ErrorIs(t, err, grant.ErrNilValue)
	})

	t.Run("typed maps", func(t *testing.T) {
		s := suite.New(t)
		identifier := map[string]string{"tenant": random(), "user": random()}
		target := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4", "e": "5", "f": "6", "g": "7", "h": random()}

		require.NoError(t, s.Allow(ctx, identifier, "read", target))

		for i := 0; i < 20; i++ {
			ok, err := s.Can(ctx, identifier, "read", target)
			require.NoError(t, err)
			require.True(t, ok)
		}

		// Same content as an ordered document in sorted key order
		sorted := bson.D{
			{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}, {Key: "d", Value: "4"},
			{Key: "e", Value: "5"}, {Key: "f", Value: "6"}, {Key: "g", Value: "7"}, {Key: "h", Value: target["h"]},
		}
		ok, err := s.Can(ctx, identifier, "read", sorted)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.Allow(ctx, identifier, "read", target))
		if suite.Count != nil {
			assert.Equal(t, 1, suite.Count(t, s, grant.Triple{Identifier: identifier, Action: "read", Target: target}))
		}

		require.NoError(t, s.Disallow(ctx, identifier, "read", target))
		ok, err = s.Can(ctx, identifier, "read", target)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nested typed maps", func(t *testing.T) {
		s := suite.New(t)
		identifier := random()
		target := []map[string]int32{{"y": 1, "x": 2}, {"b": 3, "a": 4}}

		require.NoError(t, s.Allow(ctx, identifier, "read", target))

		ok, err := s.Can(ctx, identifier, "read", []map[string]int32{{"x": 2, "y": 1}, {"a": 4, "b": 3}})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("operator documents are rejected", func(t *testing.T) {
		s := suite.New(t)
		identifier, action, target := random(), random(), random()
		require.NoError(t, s.Allow(ctx, identifier, action, target))

		anything := bson.D{{Key: "$ne", Value: nil}}

		_, err := s.Can(ctx, identifier, action, anything)
		assert.ErrorIs(t, err, grant.ErrReservedKey)
		assert.ErrorIs(t, s.Disallow(ctx, identifier, anything, target), grant.ErrReservedKey)
		assert.ErrorIs(t, s.Allow(ctx, bson.M{"$in": bson.A{identifier}}, action, target), grant.ErrReservedKey)

		ok, err := s.Can(ctx, identifier, action, target)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
