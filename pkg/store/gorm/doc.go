// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Grants are rows of the "grants" table created by the migrations in db/.
// Each component column holds the Extended JSON encoding produced by
// grant.Encode, so structured values keep the same key-order identity as in
// the MongoDB store. A unique index named "who-can-identifier-action-target"
// covers (identifier, action, target).
package gorm
