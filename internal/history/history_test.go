package history

import (
	"fmt"
	"testing"

	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/storage"
)

func TestRecord_DeduplicatesByID(t *testing.T) {
	s := NewStore(storage.NewMemory())

	s.Record(api.Track{ID: "1", Title: "Rain & Thunder"})
	s.Record(api.Track{ID: "2", Title: "Deep Meditation"})
	s.Record(api.Track{ID: "1", Title: "Rain & Thunder"})

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "1" {
		t.Errorf("re-recorded track should be first, got %s", entries[0].ID)
	}
	if entries[1].ID != "2" {
		t.Errorf("expected entry 2 second, got %s", entries[1].ID)
	}
}

func TestRecord_EvictsOldestPastCap(t *testing.T) {
	s := NewStore(storage.NewMemory())

	for i := 1; i <= MaxEntries+1; i++ {
		s.Record(api.Track{ID: fmt.Sprintf("t%d", i)})
	}

	entries := s.Entries()
	if len(entries) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(entries))
	}
	if entries[0].ID != fmt.Sprintf("t%d", MaxEntries+1) {
		t.Errorf("newest entry should be first, got %s", entries[0].ID)
	}
	for _, e := range entries {
		if e.ID == "t1" {
			t.Error("oldest entry should have been evicted")
		}
	}
}

func TestNewStore_LoadsPersisted(t *testing.T) {
	kv := storage.NewMemory()

	first := NewStore(kv)
	first.Record(api.Track{ID: "1", Title: "Rain & Thunder"})

	second := NewStore(kv)
	entries := second.Entries()
	if len(entries) != 1 || entries[0].ID != "1" {
		t.Errorf("persisted ledger not reloaded, got %+v", entries)
	}
}

func TestNewStore_CorruptPersistedData(t *testing.T) {
	kv := storage.NewMemory()
	kv.Set(storage.KeyHistory, "{broken json")

	s := NewStore(kv)
	if s.Len() != 0 {
		t.Errorf("corrupt ledger should load empty, got %d entries", s.Len())
	}

	// Store must keep working after the fallback.
	s.Record(api.Track{ID: "1"})
	if s.Len() != 1 {
		t.Errorf("Record after corrupt load failed, got %d entries", s.Len())
	}
}
