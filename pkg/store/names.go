package store

// Names shared by every backend.
const (
	DefaultCollection = "who-can"
	IndexName         = "who-can-identifier-action-target"
)
