// Package db embeds the SQL schema migrations used by the gorm store and the
// audit store.
package db

import "embed"

// Migrations holds the files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
