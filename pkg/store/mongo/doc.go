// Package mongo provides the MongoDB implementation of the store interfaces.
//
// Grants live in a single collection (default "who-can") holding documents
//
//	{identifier, action, target, createdAt, updatedAt}
//
// with a unique composite index named "who-can-identifier-action-target".
// The index is created lazily on first use. If creating it fails the error is
// logged and the store keeps working without the storage-level uniqueness
// guarantee.
package mongo
