package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/db"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	gormstore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/gorm"
	mongostore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/mongo"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/storetest"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration tests. Set INTEGRATION_TEST=1 to run.")
	}
}

func TestMongoStore(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	container, uri, err := startMongo(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(context.Background())) })

	database, err := db.ConnectMongo(ctx, uri, testDatabase)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Client().Disconnect(ctx) })

	storetest.Suite{
		New: func(t *testing.T) store.GrantStore {
			return mongostore.New(database, mongostore.WithCollection("who-can-"+uuid.NewString()))
		},
		Count: func(t *testing.T, s store.GrantStore, tr grant.Triple) int {
			name := s.(*mongostore.Store).CollectionName()
			n, err := database.Collection(name).CountDocuments(ctx, tr.Filter())
			require.NoError(t, err)
			return int(n)
		},
	}.Run(t)

	t.Run("duplicate insert is rejected by the unique index", func(t *testing.T) {
		s := mongostore.New(database, mongostore.WithCollection("who-can-"+uuid.NewString()))
		require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))

		_, err := database.Collection(s.CollectionName()).InsertOne(ctx, bson.D{
			{Key: "identifier", Value: "u1"},
			{Key: "action", Value: "read"},
			{Key: "target", Value: "doc1"},
		})
		require.Error(t, err)
	})
}

func TestPostgresStore(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("whocan_test"),
		tcpostgres.WithUsername("whocan"),
		tcpostgres.WithPassword("whocan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pgContainer.Terminate(context.Background())) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := db.NewMigrate(connStr)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	_, _ = m.Close()

	gormDB, err := db.ConnectPostgres(connStr, "info")
	require.NoError(t, err)

	s := gormstore.NewStore(gormDB)
	require.NoError(t, s.CheckConnectivity(ctx))

	storetest.Suite{
		New: func(t *testing.T) store.GrantStore {
			require.NoError(t, gormDB.Exec("TRUNCATE grants").Error)
			return s
		},
		Count: func(t *testing.T, _ store.GrantStore, tr grant.Triple) int {
			identifier, action, target, err := tr.Encoded()
			require.NoError(t, err)

			var n int64
			require.NoError(t, gormDB.Table("grants").
				Where("identifier = ? AND action = ? AND target = ?", identifier, action, target).
				Count(&n).Error)
			return int(n)
		},
	}.Run(t)

	t.Run("timestamps", func(t *testing.T) {
		require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))
		first, ok, err := s.Get(ctx, "u1", "read", "doc1")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))
		second, ok, err := s.Get(ctx, "u1", "read", "doc1")
		require.NoError(t, err)
		require.True(t, ok)

		require.True(t, first.CreatedAt.Equal(second.CreatedAt), fmt.Sprintf("%v != %v", first.CreatedAt, second.CreatedAt))
		require.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	})
}
