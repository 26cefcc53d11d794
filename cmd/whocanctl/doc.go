// Command whocanctl runs and manages a who-can permission store.
//
// A grant is an (identifier, action, target) triple. Holding a grant means
// the identifier may perform the action on the target. Grants live in
// MongoDB by default; PostgreSQL, redis and an in-memory store are also
// available.
//
// # Quick Start
//
//	# Start the HTTP API
//	whocanctl server
//
//	# Manage grants directly
//	whocanctl allow u1 read doc1
//	whocanctl can u1 read doc1
//	whocanctl disallow u1 read doc1
//
//	# Structured values are Extended JSON; key order matters
//	whocanctl allow --json '"u1"' '"read"' '{"type":"doc","id":"1"}'
//
//	# Apply a grant file
//	whocanctl grants load grants.yml
//
// # Environment Variables
//
//   - WHOCAN_BACKEND: mongo, postgres, redis or memory (default: mongo)
//   - WHOCAN_MONGO_URI, WHOCAN_MONGO_DATABASE, WHOCAN_COLLECTION
//   - DATABASE_URL: PostgreSQL connection string for the postgres backend
//   - WHOCAN_REDIS_ADDR, WHOCAN_REDIS_PREFIX
//   - WHOCAN_JWT_SECRET: require HS256 bearer tokens on the HTTP API
//   - WHOCAN_LOG_LEVEL: Log level (debug, info, warn, error)
//   - PORT: Server port (default: 8000)
package main
