// Package dedup finds byte-identical submissions by content hash.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"binforge/internal/config"
)

// Entry is the first recorded owner of a content hash.
type Entry struct {
	Hash string `msgpack:"h"`
	User string `msgpack:"u"`
	File string `msgpack:"f"`
}

// Store remembers content hashes.
type Store interface {
	// AlreadySeen reports whether hash has been recorded.
	AlreadySeen(ctx context.Context, hash string) (bool, error)
	// Record stores hash for (user, file); false means the hash was already
	// present and nothing changed.
	Record(ctx context.Context, hash, user, file string) (bool, error)
	// Lookup returns the entry recorded for hash.
	Lookup(ctx context.Context, hash string) (Entry, bool, error)
	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg config.DedupConfig) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "msgpack":
		return OpenFile(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown dedup backend %q", config.ErrConfiguration, cfg.Backend)
	}
}

// MemoryStore keeps hashes for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) AlreadySeen(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[hash]
	return ok, nil
}

func (m *MemoryStore) Record(_ context.Context, hash, user, file string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[hash]; ok {
		return false, nil
	}
	m.entries[hash] = Entry{Hash: hash, User: user, File: file}
	return true, nil
}

func (m *MemoryStore) Lookup(_ context.Context, hash string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[hash]
	return e, ok, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of recorded hashes.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
