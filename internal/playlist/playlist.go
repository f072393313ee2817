// Package playlist holds the ordered track collection the player draws
// from.
package playlist

import (
	"strings"
	"sync"

	"github.com/jiuzhougroup/soulsync/api"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

// Model is the ordered collection of tracks. New tracks are prepended;
// a track whose ID already exists is not added again.
type Model struct {
	tracks []*api.Track
	mu     sync.RWMutex
}

// NewModel creates an empty playlist.
func NewModel() *Model {
	return &Model{tracks: make([]*api.Track, 0)}
}

// Add prepends track unless a track with the same ID already exists.
// It reports whether the track was added.
func (m *Model) Add(track *api.Track) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tracks {
		if t.ID == track.ID {
			return false
		}
	}
	m.tracks = append([]*api.Track{track}, m.tracks...)
	return true
}

// Append adds track at the end unless its ID already exists. Used for
// bulk loads where seed order should be preserved.
func (m *Model) Append(track *api.Track) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tracks {
		if t.ID == track.ID {
			return false
		}
	}
	m.tracks = append(m.tracks, track)
	return true
}

// FindIndex returns the index of the track with the given ID, or an error
// if no such track exists.
func (m *Model) FindIndex(id string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, t := range m.tracks {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, playerrors.ErrTrackNotFound
}

// Get returns the track at index i, or nil when out of range.
func (m *Model) Get(i int) *api.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i < 0 || i >= len(m.tracks) {
		return nil
	}
	return m.tracks[i]
}

// Len returns the number of tracks.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// All returns a copy of the ordered collection.
func (m *Model) All() []*api.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*api.Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// Filter returns the tracks whose title or artist contains query,
// case-insensitively. It is a read-side projection; the underlying order
// is never mutated. An empty query returns everything.
func (m *Model) Filter(query string) []*api.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	results := make([]*api.Track, 0, len(m.tracks))
	for _, t := range m.tracks {
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Artist), query) {
			results = append(results, t)
		}
	}
	return results
}
