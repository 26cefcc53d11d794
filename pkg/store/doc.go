// Package store defines the storage contract for grants.
//
// The interfaces here decouple the WhoCan facade, the HTTP endpoints and the
// CLI from a concrete database. Implementations live in subpackages:
//
//   - mongo: MongoDB collection with a unique composite index (primary backend)
//   - gorm: SQL table managed by golang-migrate migrations
//   - redis: one hash per grant
//   - memory: in-process map for tests and development
//
// # Usage
//
//	s := mongo.New(database, mongo.WithCollection("who-can"))
//	if err := s.Allow(ctx, "u1", "read", "doc1"); err != nil {
//	    return err
//	}
//	ok, err := s.Can(ctx, "u1", "read", "doc1")
package store
