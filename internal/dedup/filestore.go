package dedup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the on-disk layout changes; older files are rejected.
const fileStoreSchema uint16 = 1

type filePayload struct {
	Schema  uint16
	Entries []Entry
}

// FileStore keeps hashes in memory and persists them as a msgpack file on
// Flush and Close. Writes go to a temp file that is renamed into place.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	dirty   bool
}

// OpenFile loads the store at path; a missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]Entry)}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	var payload filePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if payload.Schema != fileStoreSchema {
		return nil, fmt.Errorf("%s: unsupported schema %d", path, payload.Schema)
	}
	for _, e := range payload.Entries {
		s.entries[e.Hash] = e
	}
	return s, nil
}

func (s *FileStore) AlreadySeen(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[hash]
	return ok, nil
}

func (s *FileStore) Record(_ context.Context, hash, user, file string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[hash]; ok {
		return false, nil
	}
	s.entries[hash] = Entry{Hash: hash, User: user, File: file}
	s.dirty = true
	return true, nil
}

func (s *FileStore) Lookup(_ context.Context, hash string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	return e, ok, nil
}

// Flush writes the store if it changed since the last flush.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	payload := filePayload{Schema: fileStoreSchema, Entries: make([]Entry, 0, len(s.entries))}
	for _, e := range s.entries {
		payload.Entries = append(payload.Entries, e)
	}
	sort.Slice(payload.Entries, func(i, j int) bool { return payload.Entries[i].Hash < payload.Entries[j].Hash })

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), s.path); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close flushes pending entries.
func (s *FileStore) Close() error {
	return s.Flush()
}
