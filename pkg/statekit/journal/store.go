// Package journal provides persistent snapshot storage so cell state
// survives process restarts.
package journal

import (
	"errors"
	"time"
)

// Store persists cell snapshots keyed by a caller-chosen stable key.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot for a key at a given cell version.
	// Later saves for the same key supersede earlier ones.
	Save(key string, version uint64, data []byte) error

	// Load retrieves the latest snapshot for a key.
	// Returns ErrNotFound if no snapshot exists.
	Load(key string) (Snapshot, error)

	// List returns snapshot metadata for a key, oldest first.
	// Returns empty slice (not error) if the key has no snapshots.
	List(key string) ([]Info, error)

	// Delete removes all snapshots for a key.
	// Returns nil if the key has no snapshots.
	Delete(key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Snapshot is one persisted cell value.
type Snapshot struct {
	Key       string
	Version   uint64
	Timestamp time.Time
	Data      []byte
}

// Info provides snapshot metadata without the payload.
type Info struct {
	Key       string
	Version   uint64
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for journal operations.
var (
	// ErrNotFound indicates no snapshot exists for the key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)
