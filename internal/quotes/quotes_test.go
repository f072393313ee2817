package quotes

import (
	"strings"
	"testing"

	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/narration"
)

func TestLoadEmbeddedGalleries(t *testing.T) {
	galleries, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(galleries) < 2 {
		t.Fatalf("expected at least 2 galleries, got %d", len(galleries))
	}

	jianlai := galleries[0]
	if jianlai.ID != "jianlai" {
		t.Errorf("expected first gallery jianlai, got %q", jianlai.ID)
	}
	if jianlai.Persona != api.PersonaDeep {
		t.Errorf("expected DEEP persona, got %q", jianlai.Persona)
	}
	if len(jianlai.Quotes) == 0 {
		t.Fatal("gallery has no quotes")
	}
	for _, q := range jianlai.Quotes {
		if q.Character == "" || q.Text == "" || q.Background == "" {
			t.Errorf("incomplete quote: %+v", q)
		}
	}
}

func TestNarrationTextComposition(t *testing.T) {
	q := Quote{Character: "陈平安", Text: "遇事不决，可问春风。", Background: "落魄山旧事。"}

	text := NarrationText(q)
	for _, part := range []string{"角色：陈平安", "经典台词：遇事不决", "背景故事：落魄山旧事"} {
		if !strings.Contains(text, part) {
			t.Errorf("narration text missing %q: %s", part, text)
		}
	}
}

func TestAsTrack(t *testing.T) {
	g := Gallery{Title: "剑来", Persona: api.PersonaDeep}
	q := Quote{Character: "左右", Text: "天底下最大的讲理。", Background: "护道半生。"}

	track := AsTrack(g, q)
	if !track.IsNarration {
		t.Error("expected a narration track")
	}
	if track.URL != "" {
		t.Errorf("narration track should have no URL, got %q", track.URL)
	}
	if track.Duration != "语音" {
		t.Errorf("expected duration 语音, got %q", track.Duration)
	}
	if track.Narration == nil || track.Narration.Persona != api.PersonaDeep {
		t.Errorf("narration payload missing persona: %+v", track.Narration)
	}
	if track.Artist != "剑来 · 左右" {
		t.Errorf("unexpected artist %q", track.Artist)
	}

	other := AsTrack(g, q)
	if other.ID == track.ID {
		t.Error("each wrapped quote should get a fresh identity")
	}
}

type fakeSpeech struct {
	utterances []api.Utterance
	speaking   bool
}

func (f *fakeSpeech) Speak(u api.Utterance) {
	f.utterances = append(f.utterances, u)
	f.speaking = true
}
func (f *fakeSpeech) Cancel()             { f.speaking = false }
func (f *fakeSpeech) Pause()              {}
func (f *fakeSpeech) Resume()             {}
func (f *fakeSpeech) Speaking() bool      { return f.speaking }
func (f *fakeSpeech) Paused() bool        { return false }
func (f *fakeSpeech) Voices() []api.Voice { return nil }

type fakeDucker struct {
	ducked bool
}

func (f *fakeDucker) SetDucking(active bool) { f.ducked = active }

func TestNarratorDucksForTheReading(t *testing.T) {
	speech := &fakeSpeech{}
	ducker := &fakeDucker{}
	n := NewNarrator(narration.NewEngine(speech, "", ""), ducker, nil)

	g := Gallery{Title: "剑来", Persona: api.PersonaDeep}
	q := Quote{Character: "陈平安", Text: "一剑。", Background: "旧事。"}

	n.Speak(g, q)
	if !ducker.ducked {
		t.Fatal("music should duck while the quote is read")
	}
	if len(speech.utterances) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(speech.utterances))
	}
	if !strings.Contains(speech.utterances[0].Text, "角色：陈平安") {
		t.Errorf("utterance missing composed text: %q", speech.utterances[0].Text)
	}

	speech.speaking = false
	speech.utterances[0].OnEnd()
	if ducker.ducked {
		t.Error("music should restore when the reading ends")
	}
}

func TestNarratorStopRestoresMusic(t *testing.T) {
	speech := &fakeSpeech{}
	ducker := &fakeDucker{}
	n := NewNarrator(narration.NewEngine(speech, "", ""), ducker, nil)

	n.Speak(Gallery{Persona: api.PersonaGentle}, Quote{Character: "旅人", Text: "风月。", Background: "行囊。"})
	n.Stop()

	if ducker.ducked {
		t.Error("stop should restore the music volume")
	}
	if speech.speaking {
		t.Error("stop should cancel the utterance")
	}
}

func TestLoadDefaultsPersona(t *testing.T) {
	galleries, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range galleries {
		if g.Persona == "" {
			t.Errorf("gallery %q has empty persona", g.ID)
		}
	}
}
