// Package library discovers playable files on disk and keeps the
// playlist in sync with them.
package library

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Laky-64/gologging"
	"github.com/google/uuid"
	"github.com/jiuzhougroup/soulsync/api"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

const scanWorkers = 4

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
}

// Scanner walks music directories and turns audio files into tracks.
type Scanner struct {
	dirs []string
}

// NewScanner creates a scanner over dirs. Missing directories are
// skipped at scan time, not rejected here.
func NewScanner(dirs []string) *Scanner {
	return &Scanner{dirs: dirs}
}

// Scan walks all configured directories concurrently and returns the
// tracks found. Unreadable files are logged and skipped.
func (s *Scanner) Scan() []*api.Track {
	paths := make(chan string)
	results := make(chan *api.Track)

	var workers sync.WaitGroup
	for i := 0; i < scanWorkers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for path := range paths {
				track, err := TrackFromFile(path)
				if err != nil {
					gologging.WarnF("library: %v", err)
					continue
				}
				results <- track
			}
		}()
	}

	go func() {
		for _, dir := range s.dirs {
			s.walk(dir, paths)
		}
		close(paths)
		workers.Wait()
		close(results)
	}()

	var tracks []*api.Track
	for track := range results {
		tracks = append(tracks, track)
	}
	return tracks
}

func (s *Scanner) walk(dir string, paths chan<- string) {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() && IsSupported(path) {
			paths <- path
		}
		return nil
	})
	if err != nil {
		gologging.WarnF("library: walk %s: %v", dir, err)
	}
}

// IsSupported reports whether path has a playable extension.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// TrackFromFile builds a track from an audio file, reading embedded
// tags and any .lrc sidecar next to it.
func TrackFromFile(path string) (*api.Track, error) {
	title, artist, cover, err := readMetadata(path)
	if err != nil {
		return nil, &playerrors.ScanError{Path: path, Err: err}
	}

	return &api.Track{
		ID:       uuid.NewString(),
		Title:    title,
		Artist:   artist,
		Cover:    cover,
		URL:      path,
		Duration: "--:--",
		Lyrics:   sidecarLyrics(path),
	}, nil
}

// sidecarLyrics reads path's .lrc companion file if one exists.
func sidecarLyrics(path string) string {
	lrc := strings.TrimSuffix(path, filepath.Ext(path)) + ".lrc"
	data, err := os.ReadFile(lrc)
	if err != nil {
		return ""
	}
	return string(data)
}
