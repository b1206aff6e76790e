package journal

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory journal store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]Snapshot // key -> snapshots, oldest first
	closed bool
}

// NewMemoryStore creates a new in-memory journal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]Snapshot),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(key string, version uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[key] = append(m.data[key], Snapshot{
		Key:       key,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Data:      stored,
	})
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(key string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snaps, ok := m.data[key]
	if !ok || len(snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}

	latest := snaps[len(snaps)-1]
	// Return a copy to prevent modification
	result := latest
	result.Data = make([]byte, len(latest.Data))
	copy(result.Data, latest.Data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(key string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	snaps := m.data[key]
	infos := make([]Info, 0, len(snaps))
	for _, s := range snaps {
		infos = append(infos, Info{
			Key:       s.Key,
			Version:   s.Version,
			Timestamp: s.Timestamp,
			Size:      int64(len(s.Data)),
		})
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
