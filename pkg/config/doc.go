// Package config provides configuration management for who-can.
//
// Configuration is read from $WHOCAN_CONFIG_PATH/whocan.yml (default
// /etc/whocan/config/whocan.yml) and then overridden by environment
// variables. The source of every attribute is tracked so that
// `whocanctl configuration show` can report where a value came from.
//
// # Environment Variables
//
//   - WHOCAN_BACKEND: mongo, postgres, redis or memory
//   - WHOCAN_MONGO_URI, WHOCAN_MONGO_DATABASE, WHOCAN_COLLECTION
//   - DATABASE_URL: PostgreSQL connection string
//   - WHOCAN_REDIS_ADDR, WHOCAN_REDIS_PREFIX
//   - WHOCAN_LOG_LEVEL: zap level name
//   - WHOCAN_JWT_SECRET: enables bearer authentication on the HTTP API
//   - WHOCAN_TRUSTED_PROXIES: comma separated CIDR ranges
package config
