package player

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/history"
	"github.com/jiuzhougroup/soulsync/internal/narration"
	"github.com/jiuzhougroup/soulsync/internal/playlist"
	"github.com/jiuzhougroup/soulsync/internal/storage"
)

// fakeAudio is a test double for the audio element.
type fakeAudio struct {
	mu       sync.Mutex
	loaded   string
	volume   float64
	plays    int
	pauses   int
	seeks    []time.Duration
	playErr  error
	handlers api.AudioHandlers
}

func (f *fakeAudio) Load(url string) {
	f.mu.Lock()
	f.loaded = url
	f.mu.Unlock()
}

func (f *fakeAudio) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.plays++
	return nil
}

func (f *fakeAudio) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeAudio) Seek(p time.Duration) {
	f.mu.Lock()
	f.seeks = append(f.seeks, p)
	f.mu.Unlock()
}

func (f *fakeAudio) Position() time.Duration { return 0 }
func (f *fakeAudio) Duration() time.Duration { return 0 }

func (f *fakeAudio) SetVolume(level float64) {
	f.mu.Lock()
	f.volume = level
	f.mu.Unlock()
}

func (f *fakeAudio) SetHandlers(h api.AudioHandlers) { f.handlers = h }
func (f *fakeAudio) Close()                          {}

func (f *fakeAudio) currentVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// fakeSpeech mirrors the narration tests' scriptable backend.
type fakeSpeech struct {
	utterances []api.Utterance
	speaking   bool
	paused     bool
	cancels    int
	resumes    int
}

func (f *fakeSpeech) Speak(u api.Utterance) {
	f.utterances = append(f.utterances, u)
	f.speaking = true
	f.paused = false
}

func (f *fakeSpeech) Cancel() {
	f.cancels++
	f.speaking = false
	f.paused = false
}

func (f *fakeSpeech) Pause()  { f.paused = true }
func (f *fakeSpeech) Resume() { f.resumes++; f.paused = false }

func (f *fakeSpeech) Speaking() bool      { return f.speaking }
func (f *fakeSpeech) Paused() bool        { return f.paused }
func (f *fakeSpeech) Voices() []api.Voice { return nil }

func audioTrack(id, title string) *api.Track {
	return &api.Track{ID: id, Title: title, Artist: "九州原声", URL: "file:///" + id + ".mp3"}
}

func narrationTrack(id, text string) *api.Track {
	return &api.Track{
		ID:          id,
		Title:       "语音资产 " + id,
		Artist:      "九州·剑来",
		Duration:    "语音",
		IsNarration: true,
		Narration:   &api.NarrationPayload{Text: text, Persona: api.PersonaDeep},
	}
}

type fixture struct {
	controller *Controller
	audio      *fakeAudio
	speech     *fakeSpeech
	kv         *storage.Memory
	history    *history.Store
}

func newFixture(t *testing.T, tracks ...*api.Track) *fixture {
	t.Helper()

	pl := playlist.NewModel()
	for _, tr := range tracks {
		pl.Append(tr)
	}

	audio := &fakeAudio{}
	speech := &fakeSpeech{}
	kv := storage.NewMemory()
	hist := history.NewStore(kv)

	c := NewController(pl, audio, narration.NewEngine(speech, "", ""), hist, kv, nil, DefaultVolume)
	return &fixture{controller: c, audio: audio, speech: speech, kv: kv, history: hist}
}

func TestDucking(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))

	if err := f.controller.SetVolume(0.8); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}

	f.controller.SetDucking(true)
	if got := f.audio.currentVolume(); math.Abs(got-0.16) > 1e-9 {
		t.Errorf("ducked volume = %f, want 0.16", got)
	}

	f.controller.SetDucking(false)
	if got := f.audio.currentVolume(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("restored volume = %f, want 0.8", got)
	}
}

func TestSetVolume_Validation(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))

	tests := []struct {
		name    string
		volume  float64
		wantErr bool
	}{
		{"zero volume", 0.0, false},
		{"half volume", 0.5, false},
		{"full volume", 1.0, false},
		{"below zero", -0.1, true},
		{"above one", 1.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.controller.SetVolume(tt.volume)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetVolume(%f) error = %v, wantErr %v", tt.volume, err, tt.wantErr)
			}
		})
	}
}

func TestSetVolume_Persisted(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))
	f.controller.SetVolume(0.35)

	raw, ok := f.kv.Get(storage.KeyVolume)
	if !ok || raw != "0.35" {
		t.Errorf("persisted volume = %q, %v; want \"0.35\", true", raw, ok)
	}
}

func TestNewController_RestoresPersistedVolume(t *testing.T) {
	pl := playlist.NewModel()
	pl.Append(audioTrack("1", "a"))

	kv := storage.NewMemory()
	kv.Set(storage.KeyVolume, "0.4")

	audio := &fakeAudio{}
	c := NewController(pl, audio, narration.NewEngine(&fakeSpeech{}, "", ""), history.NewStore(kv), kv, nil, DefaultVolume)

	if got := c.State().Volume; got != 0.4 {
		t.Errorf("restored volume = %f, want 0.4", got)
	}
	if got := audio.currentVolume(); got != 0.4 {
		t.Errorf("backend volume = %f, want 0.4", got)
	}
}

func TestNewController_CorruptVolumeFallsBack(t *testing.T) {
	pl := playlist.NewModel()
	pl.Append(audioTrack("1", "a"))

	kv := storage.NewMemory()
	kv.Set(storage.KeyVolume, "not-a-float")

	c := NewController(pl, &fakeAudio{}, narration.NewEngine(&fakeSpeech{}, "", ""), history.NewStore(kv), kv, nil, DefaultVolume)
	if got := c.State().Volume; got != DefaultVolume {
		t.Errorf("volume = %f, want default %f", got, DefaultVolume)
	}
}

func TestNewController_ConfiguredDefaultVolume(t *testing.T) {
	pl := playlist.NewModel()
	pl.Append(audioTrack("1", "a"))

	tests := []struct {
		name     string
		fallback float64
		want     float64
	}{
		{"configured fallback wins over built-in", 0.4, 0.4},
		{"zero falls back to built-in default", 0, DefaultVolume},
		{"above one falls back to built-in default", 1.5, DefaultVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemory()
			c := NewController(pl, &fakeAudio{}, narration.NewEngine(&fakeSpeech{}, "", ""), history.NewStore(kv), kv, nil, tt.fallback)
			if got := c.State().Volume; got != tt.want {
				t.Errorf("volume = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNewController_PersistedVolumeWinsOverConfigured(t *testing.T) {
	pl := playlist.NewModel()
	pl.Append(audioTrack("1", "a"))

	kv := storage.NewMemory()
	kv.Set(storage.KeyVolume, "0.25")

	c := NewController(pl, &fakeAudio{}, narration.NewEngine(&fakeSpeech{}, "", ""), history.NewStore(kv), kv, nil, 0.9)
	if got := c.State().Volume; got != 0.25 {
		t.Errorf("volume = %f, want persisted 0.25", got)
	}
}

func TestNextPrevious_WrapCircularly(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"), audioTrack("2", "b"), audioTrack("3", "c"))

	f.controller.Previous()
	if got := f.controller.State().Index; got != 2 {
		t.Errorf("Previous from 0 = index %d, want 2", got)
	}

	f.controller.Next()
	if got := f.controller.State().Index; got != 0 {
		t.Errorf("Next from last = index %d, want 0", got)
	}
}

func TestNext_PreservesPlayingFlag(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"), audioTrack("2", "b"))

	f.controller.Next()
	if f.controller.State().Playing {
		t.Error("Next while paused should stay paused")
	}

	f.controller.TogglePlay()
	f.controller.Next()
	if !f.controller.State().Playing {
		t.Error("Next while playing should keep playing")
	}
}

func TestPlayTrack_SetsPlayingAndExpands(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"), audioTrack("2", "b"))

	if err := f.controller.PlayTrack("2"); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}

	state := f.controller.State()
	if state.Index != 1 || !state.Playing || !state.Expanded {
		t.Errorf("state after PlayTrack = %+v", state)
	}

	if err := f.controller.PlayTrack("missing"); err == nil {
		t.Error("PlayTrack on unknown ID should return an error")
	}
}

func TestHistory_RecordedOncePerTrackChange(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"), audioTrack("2", "b"))

	// Track 1 is recorded on startup.
	if got := f.history.Len(); got != 1 {
		t.Fatalf("history after startup = %d entries, want 1", got)
	}

	// Toggling playback is not a track change.
	f.controller.TogglePlay()
	f.controller.TogglePlay()
	if got := f.history.Len(); got != 1 {
		t.Errorf("history after toggles = %d entries, want 1", got)
	}

	f.controller.Next()
	entries := f.history.Entries()
	if len(entries) != 2 {
		t.Fatalf("history after Next = %d entries, want 2", len(entries))
	}
	if entries[0].ID != "2" {
		t.Errorf("most recent history entry = %s, want 2", entries[0].ID)
	}
}

func TestTogglePlay_AudioTrack(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))

	f.controller.TogglePlay()
	if f.audio.plays != 1 {
		t.Errorf("plays = %d, want 1", f.audio.plays)
	}

	f.controller.TogglePlay()
	if f.audio.pauses == 0 {
		t.Error("pausing should reach the audio backend")
	}
}

func TestTogglePlay_PlayRejectionIsNotFatal(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))
	f.audio.playErr = errors.New("autoplay prevented")

	f.controller.TogglePlay()

	// Intent stays optimistic; the user can retry explicitly.
	if !f.controller.State().Playing {
		t.Error("play rejection should not roll back the playing flag")
	}
}

func TestTogglePlay_NarrationSpeakPauseResume(t *testing.T) {
	f := newFixture(t, narrationTrack("n1", "角色：陈平安。经典台词：有些道理。"))

	f.controller.TogglePlay()
	if len(f.speech.utterances) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(f.speech.utterances))
	}
	if f.speech.utterances[0].Pitch != 0.8 {
		t.Errorf("narration should use the track persona, pitch = %f", f.speech.utterances[0].Pitch)
	}

	// Pause keeps the utterance alive.
	f.controller.TogglePlay()
	if !f.speech.paused {
		t.Error("pausing a narration track should pause the backend")
	}

	// Resuming mid-utterance must not start a fresh speak.
	f.controller.TogglePlay()
	if f.speech.resumes != 1 {
		t.Errorf("resumes = %d, want 1", f.speech.resumes)
	}
	if len(f.speech.utterances) != 1 {
		t.Errorf("resume started a new utterance, total = %d", len(f.speech.utterances))
	}
}

func TestTrackSwitch_StopsActiveNarration(t *testing.T) {
	f := newFixture(t, narrationTrack("n1", "first"), audioTrack("2", "b"))

	f.controller.TogglePlay()
	if !f.speech.speaking {
		t.Fatal("narration should be speaking")
	}

	// Capture the live utterance, then switch away.
	u := f.speech.utterances[0]

	f.controller.Next()
	if f.speech.speaking {
		t.Error("switching tracks must stop the narration backend")
	}

	// The superseded session's completion must not advance the player.
	before := f.controller.State().Index
	u.OnEnd()
	if got := f.controller.State().Index; got != before {
		t.Errorf("stale narration onEnd advanced the track: %d -> %d", before, got)
	}
}

func TestNarrationEnd_AdvancesToNextTrack(t *testing.T) {
	f := newFixture(t, narrationTrack("n1", "text"), audioTrack("2", "b"))

	f.controller.TogglePlay()
	f.speech.speaking = false
	f.speech.utterances[0].OnEnd()

	state := f.controller.State()
	if state.Index != 1 {
		t.Errorf("index after narration end = %d, want 1", state.Index)
	}
	if !state.Playing {
		t.Error("natural end must keep the playing flag")
	}
	// The audio track after a narration track starts loading.
	if f.audio.loaded == "" {
		t.Error("next audio track was not loaded")
	}
}

func TestAudioEnded_AdvancesAndWraps(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"), audioTrack("2", "b"))

	f.controller.TogglePlay()
	f.audio.handlers.Ended()
	if got := f.controller.State().Index; got != 1 {
		t.Errorf("index after ended = %d, want 1", got)
	}

	f.audio.handlers.Ended()
	if got := f.controller.State().Index; got != 0 {
		t.Errorf("index after wrap = %d, want 0", got)
	}
	if !f.controller.State().Playing {
		t.Error("continuous autoplay should keep the playing flag")
	}
}

func TestSeek_IgnoredForNarration(t *testing.T) {
	f := newFixture(t, narrationTrack("n1", "text"))

	f.controller.Seek(10 * time.Second)
	if len(f.audio.seeks) != 0 {
		t.Error("seek on a narration track must not reach the audio backend")
	}
}

func TestSeek_AudioTrack(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))

	f.controller.Seek(42 * time.Second)
	if len(f.audio.seeks) != 1 || f.audio.seeks[0] != 42*time.Second {
		t.Errorf("seeks = %v, want [42s]", f.audio.seeks)
	}
	if got := f.controller.State().Position; got != 42 {
		t.Errorf("position = %f, want 42", got)
	}
}

func TestLoadedMetadata_ResumesPendingPlay(t *testing.T) {
	f := newFixture(t, audioTrack("1", "a"))

	f.controller.TogglePlay()
	plays := f.audio.plays

	f.audio.handlers.LoadedMetadata(135 * time.Second)

	if f.audio.plays != plays+1 {
		t.Error("metadata load while playing should reissue play")
	}
	if got := f.controller.State().Duration; got != 135 {
		t.Errorf("duration = %f, want 135", got)
	}
}

func TestLyrics_RecomputedOnTrackChange(t *testing.T) {
	withLyrics := audioTrack("1", "a")
	withLyrics.Lyrics = "[00:00.00] line one\n[00:10.00] line two"
	f := newFixture(t, withLyrics, audioTrack("2", "b"))

	if got := len(f.controller.Lyrics()); got != 2 {
		t.Fatalf("lyrics for track 1 = %d lines, want 2", got)
	}

	f.controller.Next()
	lines := f.controller.Lyrics()
	if len(lines) != 1 {
		t.Fatalf("lyrics for lyricless track = %d lines, want 1 fallback", len(lines))
	}
}

func TestActiveLyric_FollowsPosition(t *testing.T) {
	track := audioTrack("1", "a")
	track.Lyrics = "[00:00.00] one\n[00:10.00] two\n[00:30.00] three"
	f := newFixture(t, track)

	f.controller.TogglePlay()
	f.audio.handlers.TimeUpdate(15 * time.Second)

	if got := f.controller.ActiveLyric(); got != 1 {
		t.Errorf("active lyric at 15s = %d, want 1", got)
	}
}
