// Package history keeps the append-only recently-played ledger.
package history

import (
	"encoding/json"
	"sync"

	"github.com/Laky-64/gologging"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/storage"
)

// MaxEntries bounds the ledger; the oldest entry is evicted past this.
const MaxEntries = 20

// Store is the recently-played ledger, most-recent-first, persisted on
// every mutation. A track reappearing moves to the front instead of
// duplicating.
type Store struct {
	entries []api.Track
	kv      storage.KV
	mu      sync.RWMutex
}

// NewStore loads the persisted ledger from kv. Absent or corrupt data
// yields an empty ledger.
func NewStore(kv storage.KV) *Store {
	s := &Store{kv: kv}

	raw, ok := kv.Get(storage.KeyHistory)
	if !ok {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s.entries); err != nil {
		gologging.WarnF("history: discarding corrupt persisted ledger: %v", err)
		s.entries = nil
	}
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	return s
}

// Record moves track to the front of the ledger, evicting past MaxEntries,
// and persists synchronously. Persistence failures are logged and ignored;
// playback never blocks on them.
func (s *Store) Record(track api.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]api.Track, 0, len(s.entries)+1)
	filtered = append(filtered, track)
	for _, e := range s.entries {
		if e.ID != track.ID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > MaxEntries {
		filtered = filtered[:MaxEntries]
	}
	s.entries = filtered

	data, err := json.Marshal(s.entries)
	if err != nil {
		gologging.WarnF("history: marshal ledger: %v", err)
		return
	}
	if err := s.kv.Set(storage.KeyHistory, string(data)); err != nil {
		gologging.WarnF("history: persist ledger: %v", err)
	}
}

// Entries returns a copy of the ledger, most-recent-first.
func (s *Store) Entries() []api.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Track, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
