package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Suite{
		New: func(t *testing.T) store.GrantStore {
			return New()
		},
		Count: func(t *testing.T, s store.GrantStore, tr grant.Triple) int {
			if _, ok := s.(*Store).Get(tr.Identifier, tr.Action, tr.Target); ok {
				return 1
			}
			return 0
		},
	}.Run(t)
}

func TestAllowTimestamps(t *testing.T) {
	first := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	current := first
	s := NewWithClock(func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))
	current = first.Add(time.Minute)
	require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))

	g, ok := s.Get("u1", "read", "doc1")
	require.True(t, ok)
	assert.Equal(t, first, g.CreatedAt)
	assert.Equal(t, first.Add(time.Minute), g.UpdatedAt)
	assert.Equal(t, 1, s.Len())
}

func TestMapsAreSortedBeforeComparison(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Allow(ctx, "u1", "read", map[string]any{"type": "doc", "id": "1"}))

	ok, err := s.Can(ctx, "u1", "read", map[string]any{"id": "1", "type": "doc"})
	require.NoError(t, err)
	assert.True(t, ok)
}
