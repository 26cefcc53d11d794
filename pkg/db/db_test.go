package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/memory"
	redisstore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/redis"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.WhoCanConfig{Backend: config.BackendMemory}

	s, closeStore, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeStore()) }()

	assert.IsType(t, &memory.Store{}, s)
	assert.NoError(t, s.CheckConnectivity(context.Background()))
}

func TestOpenStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.WhoCanConfig{Backend: config.BackendRedis, RedisAddr: mr.Addr(), RedisPrefix: "test"}
	ctx := context.Background()

	s, closeStore, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeStore()) }()

	assert.IsType(t, &redisstore.Store{}, s)
	require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))
	assert.NotEmpty(t, mr.Keys())
	assert.Contains(t, mr.Keys()[0], "test:grant:")
}

func TestOpenStoreRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.WhoCanConfig{Backend: config.BackendRedis, RedisAddr: addr}
	_, _, err = OpenStore(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.WhoCanConfig{}, nil)
	assert.ErrorIs(t, err, store.ErrUnknownBackend)
}

func TestConnectRequiresAddress(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "", "whocan")
	assert.Error(t, err)

	_, err = ConnectRedis(context.Background(), "")
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "")
	_, err = ConnectPostgres("", "info")
	assert.Error(t, err)
}

func TestGormLogMode(t *testing.T) {
	t.Setenv("WHOCAN_LOG_LEVEL", "debug")

	assert.Equal(t, gormlogger.Silent, gormLogMode("info"))
	assert.Equal(t, gormlogger.Silent, gormLogMode(""))
	assert.Equal(t, gormlogger.Info, gormLogMode("debug"))
}

func TestWithMigrationsTable(t *testing.T) {
	assert.Equal(t,
		"postgres://localhost/whocan?x-migrations-table=whocan_schema_migrations",
		WithMigrationsTable("postgres://localhost/whocan"))
	assert.Equal(t,
		"postgres://localhost/whocan?sslmode=disable&x-migrations-table=whocan_schema_migrations",
		WithMigrationsTable("postgres://localhost/whocan?sslmode=disable"))
}

func TestMigrationFiles(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20261016120000_create_grants.up.sql",
		"20261016120100_create_messages.up.sql",
	}, files)
}
