package playlist

import (
	_ "embed"
	"fmt"

	"github.com/jiuzhougroup/soulsync/api"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedData []byte

type seedFile struct {
	Tracks []api.Track `yaml:"tracks"`
}

// LoadSeed returns the built-in Jiuzhou ambient playlist.
func LoadSeed() ([]*api.Track, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedData, &f); err != nil {
		return nil, fmt.Errorf("unmarshal seed playlist: %w", err)
	}

	tracks := make([]*api.Track, len(f.Tracks))
	for i := range f.Tracks {
		tracks[i] = &f.Tracks[i]
	}
	return tracks, nil
}

// NewSeeded creates a playlist pre-populated with the built-in tracks.
func NewSeeded() (*Model, error) {
	tracks, err := LoadSeed()
	if err != nil {
		return nil, err
	}

	m := NewModel()
	for _, t := range tracks {
		m.Append(t)
	}
	return m, nil
}
