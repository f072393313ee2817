// Package storage provides the persisted key-value store backing the
// player's volume and play-history settings.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store keys used by the player.
const (
	KeyVolume  = "soulsync_volume"
	KeyHistory = "jiuzhou_music_history"
)

// KV is the minimal key-value contract the player persists through.
// Readers must tolerate missing values; writers are fire-and-forget from
// the caller's point of view.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// FileStore is a KV backed by a single JSON file. A missing or corrupt
// file yields an empty store rather than an error.
type FileStore struct {
	path   string
	values map[string]string
	mu     sync.RWMutex
}

var _ KV = (*FileStore)(nil)

// OpenFileStore loads the store at path, creating parent directories as
// needed on the first write.
func OpenFileStore(path string) *FileStore {
	s := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s // First run or unreadable, start empty
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		// Corrupt store, start empty
		s.values = make(map[string]string)
	}
	return s
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the store synchronously.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// Memory is an in-process KV used by tests and as a fallback when no data
// directory is writable.
type Memory struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ KV = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
