package db

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	schema "github.com/doodlesbykumbi/who-can-in-go/db"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	gormstore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/gorm"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/memory"
	mongostore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/mongo"
	redisstore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/redis"
)

// MigrationsTable is the golang-migrate version table
const MigrationsTable = "whocan_schema_migrations"

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client.Database(database), nil
}

// ConnectPostgres establishes a GORM connection.
// If no URL is provided, it reads from DATABASE_URL environment variable.
// SQL statements are logged only when logLevel is "debug".
func ConnectPostgres(dbURL, logLevel string) (*gorm.DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(gormLogMode(logLevel)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return gormDB, nil
}

// gormLogMode maps a zap level name to a gorm log mode
func gormLogMode(level string) logger.LogLevel {
	if level == "debug" {
		return logger.Info
	}
	return logger.Silent
}

// ConnectRedis creates a client and verifies it with PING.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// OpenStore opens the backend selected by cfg. The returned function releases
// the underlying connection.
func OpenStore(ctx context.Context, cfg *config.WhoCanConfig, log *zap.Logger) (store.Store, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Backend {
	case config.BackendMongo:
		database, err := ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		s := mongostore.New(database,
			mongostore.WithCollection(cfg.Collection),
			mongostore.WithLogger(log),
		)
		return s, func() error { return database.Client().Disconnect(context.Background()) }, nil

	case config.BackendPostgres:
		gormDB, err := ConnectPostgres(cfg.DatabaseURL, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		closer := func() error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return gormstore.NewStore(gormDB), closer, nil

	case config.BackendRedis:
		client, err := ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, redisstore.WithPrefix(cfg.RedisPrefix)), client.Close, nil

	case config.BackendMemory:
		return memory.New(), func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", store.ErrUnknownBackend, cfg.Backend)
}

// WithMigrationsTable appends the golang-migrate table parameter to a
// PostgreSQL URL.
func WithMigrationsTable(dbURL string) string {
	if strings.Contains(dbURL, "?") {
		return dbURL + "&x-migrations-table=" + MigrationsTable
	}
	return dbURL + "?x-migrations-table=" + MigrationsTable
}

// NewMigrate returns a migrator reading the embedded migrations.
func NewMigrate(dbURL string) (*migrate.Migrate, error) {
	migrationsFS, err := fs.Sub(schema.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to get embedded migrations: %w", err)
	}

	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	return migrate.NewWithSourceInstance("iofs", d, WithMigrationsTable(dbURL))
}

// MigrationFiles lists the embedded up migrations
func MigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(schema.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
