// Package db opens the connections behind every store backend.
//
// # Connection
//
//	cfg := config.Get()
//	s, closeStore, err := db.OpenStore(ctx, cfg, logger.Log)
//	if err != nil {
//	    return err
//	}
//	defer closeStore()
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string for the postgres backend
//   - WHOCAN_LOG_LEVEL: Set to "debug" for SQL query logging
//
// # Migrations
//
// The postgres backend and the audit store share the schema in db/migrations,
// which is embedded into the binary and applied with golang-migrate. The
// version is tracked in the whocan_schema_migrations table.
package db
