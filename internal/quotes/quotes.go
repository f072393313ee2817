// Package quotes ships the built-in narration galleries, curated lines
// from serialized fiction that the narrator reads aloud over ducked
// music.
package quotes

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/narration"
	"github.com/jiuzhougroup/soulsync/pkg/events"
	"gopkg.in/yaml.v3"
)

//go:embed galleries.yaml
var galleriesYAML []byte

// Quote is one narratable line with its speaker and context.
type Quote struct {
	Character  string `yaml:"character"`
	Text       string `yaml:"text"`
	Background string `yaml:"background"`
}

// Gallery groups quotes from one work under a shared voice persona.
type Gallery struct {
	ID       string      `yaml:"id"`
	Title    string      `yaml:"title"`
	Subtitle string      `yaml:"subtitle"`
	Persona  api.Persona `yaml:"persona"`
	Quotes   []Quote     `yaml:"quotes"`
}

type galleryFile struct {
	Galleries []Gallery `yaml:"galleries"`
}

// Load parses the embedded galleries.
func Load() ([]Gallery, error) {
	var file galleryFile
	if err := yaml.Unmarshal(galleriesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse galleries: %w", err)
	}
	for i := range file.Galleries {
		if file.Galleries[i].Persona == "" {
			file.Galleries[i].Persona = api.PersonaNormal
		}
	}
	return file.Galleries, nil
}

// NarrationText composes the spoken form of a quote: the speaker, the
// line itself and its backstory.
func NarrationText(q Quote) string {
	return fmt.Sprintf("角色：%s。经典台词：%s。背景故事：%s", q.Character, q.Text, q.Background)
}

// Ducker lowers the music while external narration speaks over it.
type Ducker interface {
	SetDucking(active bool)
}

// Narrator reads quotes aloud over the current music instead of
// interrupting it, ducking the music for the duration of the reading.
type Narrator struct {
	engine *narration.Engine
	ducker Ducker
	bus    *events.Bus
}

// NewNarrator wires the shared narration engine to the player's duck
// control. bus may be nil.
func NewNarrator(engine *narration.Engine, ducker Ducker, bus *events.Bus) *Narrator {
	return &Narrator{engine: engine, ducker: ducker, bus: bus}
}

// Speak reads q in the gallery's persona. The music ducks for the whole
// reading and restores when it ends, times out or is stopped.
func (n *Narrator) Speak(g Gallery, q Quote) {
	n.ducker.SetDucking(true)
	if n.bus != nil {
		n.bus.Publish(api.PlayerEvent{Type: api.EventQuoteNarration, Payload: q})
	}
	n.engine.Speak(NarrationText(q), g.Persona, func() {
		n.ducker.SetDucking(false)
	})
}

// Stop cancels an in-flight reading and restores the music.
func (n *Narrator) Stop() {
	n.engine.Stop()
	n.ducker.SetDucking(false)
}

// AsTrack wraps a quote as a playable narration track. Narration tracks
// have no audio URL; the player routes them to the speech engine.
func AsTrack(g Gallery, q Quote) *api.Track {
	return &api.Track{
		ID:          uuid.NewString(),
		Title:       q.Text,
		Artist:      g.Title + " · " + q.Character,
		Duration:    "语音",
		IsNarration: true,
		Narration: &api.NarrationPayload{
			Text:    NarrationText(q),
			Persona: g.Persona,
		},
	}
}
