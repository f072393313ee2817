package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s := OpenFileStore(path)
	if err := s.Set(KeyVolume, "0.7"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened := OpenFileStore(path)
	got, ok := reopened.Get(KeyVolume)
	if !ok || got != "0.7" {
		t.Errorf("Get after reopen = %q, %v; want \"0.7\", true", got, ok)
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := OpenFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if _, ok := s.Get(KeyVolume); ok {
		t.Error("Get on empty store should report absence")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := OpenFileStore(path)
	if _, ok := s.Get(KeyHistory); ok {
		t.Error("corrupt store should fall back to empty, not crash")
	}

	// The store must remain writable after falling back.
	if err := s.Set(KeyHistory, "[]"); err != nil {
		t.Errorf("Set after corrupt load: %v", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Get("missing"); ok {
		t.Error("Get on empty memory store should report absence")
	}
	if err := m.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := m.Get("k"); !ok || got != "v" {
		t.Errorf("Get = %q, %v; want \"v\", true", got, ok)
	}
}
