// Package player owns the playback state machine: current track,
// play/pause, progress, volume and ducking, and the dispatch between the
// audio backend and the narration engine.
package player

import (
	"strconv"
	"sync"
	"time"

	"github.com/Laky-64/gologging"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/history"
	"github.com/jiuzhougroup/soulsync/internal/lyrics"
	"github.com/jiuzhougroup/soulsync/internal/narration"
	"github.com/jiuzhougroup/soulsync/internal/playlist"
	"github.com/jiuzhougroup/soulsync/internal/storage"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
	"github.com/jiuzhougroup/soulsync/pkg/events"
)

// DefaultVolume is used when no persisted volume exists.
const DefaultVolume = 0.7

// duckFactor scales the audio volume while external narration is active.
const duckFactor = 0.2

// Controller is the playback state machine. All state lives behind its
// mutex and is mutated only through its operations; backend callbacks
// arrive on backend goroutines and funnel through the same lock.
type Controller struct {
	playlist *playlist.Model
	audio    api.AudioBackend
	narrator *narration.Engine
	history  *history.Store
	kv       storage.KV
	bus      *events.Bus

	session api.MediaSession // optional
	haptics api.Haptics      // optional

	mu          sync.Mutex
	state       api.PlaybackState
	lines       []lyrics.Line
	lastTrackID string
}

// NewController wires the playback controller and loads the track at
// index 0 without starting playback. The persisted volume is restored;
// a missing or corrupt value falls back to defaultVolume (the
// configured default), or to DefaultVolume when that is out of range.
func NewController(pl *playlist.Model, audio api.AudioBackend, narrator *narration.Engine, hist *history.Store, kv storage.KV, bus *events.Bus, defaultVolume float64) *Controller {
	c := &Controller{
		playlist: pl,
		audio:    audio,
		narrator: narrator,
		history:  hist,
		kv:       kv,
		bus:      bus,
	}

	if defaultVolume <= 0 || defaultVolume > 1 {
		defaultVolume = DefaultVolume
	}
	c.state.Volume = defaultVolume
	if raw, ok := kv.Get(storage.KeyVolume); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			c.state.Volume = v
		}
	}

	audio.SetHandlers(api.AudioHandlers{
		TimeUpdate:     c.onTimeUpdate,
		LoadedMetadata: c.onLoadedMetadata,
		Ended:          c.onEnded,
	})

	c.mu.Lock()
	c.applyVolumeLocked()
	if pl.Len() > 0 {
		c.setIndexLocked(0)
	}
	c.mu.Unlock()

	return c
}

// AttachMediaSession hooks up the optional system now-playing surface.
func (c *Controller) AttachMediaSession(s api.MediaSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = s
	if track := c.playlist.Get(c.state.Index); track != nil {
		c.pushSessionLocked(track)
	}
}

// AttachHaptics hooks up the optional transport-pulse surface.
func (c *Controller) AttachHaptics(h api.Haptics) {
	c.mu.Lock()
	c.haptics = h
	c.mu.Unlock()
}

// TogglePlay flips the playing flag and routes the transport command to
// the backend matching the current track type.
func (c *Controller) TogglePlay() {
	c.pulse()

	c.mu.Lock()
	defer c.mu.Unlock()

	track := c.playlist.Get(c.state.Index)
	if track == nil {
		return
	}

	c.state.Playing = !c.state.Playing
	if c.state.Playing {
		c.startLocked(track)
	} else if track.IsNarration {
		c.narrator.Pause()
	} else {
		c.audio.Pause()
	}

	c.publishStateLocked()
}

// Next advances to the next track, wrapping at the end of the playlist.
// The playing flag is preserved.
func (c *Controller) Next() {
	c.pulse()
	c.mu.Lock()
	c.advanceLocked(1)
	c.mu.Unlock()
}

// Previous retreats to the previous track, wrapping at the front.
func (c *Controller) Previous() {
	c.pulse()
	c.mu.Lock()
	c.advanceLocked(-1)
	c.mu.Unlock()
}

// PlayTrack resolves id, makes it current, starts playing and expands the
// player.
func (c *Controller) PlayTrack(id string) error {
	idx, err := c.playlist.FindIndex(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state.Playing = true
	c.state.Expanded = true
	c.setIndexLocked(idx)
	c.mu.Unlock()
	return nil
}

// AddAndPlay inserts track into the playlist (no-op on duplicate ID) and
// plays it immediately.
func (c *Controller) AddAndPlay(track *api.Track) error {
	c.playlist.Add(track)
	return c.PlayTrack(track.ID)
}

// Seek moves the audio position. Narration tracks have no seekable
// timeline; seeking them is ignored.
func (c *Controller) Seek(position time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	track := c.playlist.Get(c.state.Index)
	if track == nil || track.IsNarration {
		return
	}

	c.audio.Seek(position)
	c.state.Position = position.Seconds()
	c.publishStateLocked()
}

// SetVolume stores the user volume (0.0 to 1.0), applies the ducking rule
// and persists the value. Persistence failures are logged and ignored.
func (c *Controller) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return playerrors.ErrInvalidVolume
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Volume = level
	c.applyVolumeLocked()

	if err := c.kv.Set(storage.KeyVolume, strconv.FormatFloat(level, 'f', -1, 64)); err != nil {
		gologging.WarnF("player: persist volume: %v", err)
	}

	c.publishStateLocked()
	return nil
}

// SetDucking flips the external narration-active flag. The effective
// backend volume is recomputed immediately on every change.
func (c *Controller) SetDucking(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Ducked == active {
		return
	}
	c.state.Ducked = active
	c.applyVolumeLocked()
	c.publishStateLocked()
}

// SetExpanded toggles the expanded player surface.
func (c *Controller) SetExpanded(expanded bool) {
	c.mu.Lock()
	c.state.Expanded = expanded
	c.publishStateLocked()
	c.mu.Unlock()
}

// SetViewMode switches the expanded player between cover, lyrics and
// history.
func (c *Controller) SetViewMode(mode api.ViewMode) {
	c.mu.Lock()
	c.state.View = mode
	c.publishStateLocked()
	c.mu.Unlock()
}

// State returns a copy of the playback state.
func (c *Controller) State() api.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentTrack returns a copy of the current track, or nil when the
// playlist is empty.
func (c *Controller) CurrentTrack() *api.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	track := c.playlist.Get(c.state.Index)
	if track == nil {
		return nil
	}
	cp := *track
	return &cp
}

// Lyrics returns the parsed lines for the current track.
func (c *Controller) Lyrics() []lyrics.Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]lyrics.Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// ActiveLyric returns the index of the lyric line active at the current
// position, or lyrics.NoActiveLine.
func (c *Controller) ActiveLyric() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lyrics.ActiveIndex(c.lines, c.state.Position)
}

// History returns the recently-played ledger, most-recent-first.
func (c *Controller) History() []api.Track {
	return c.history.Entries()
}

// Close tears down the backends and the media session.
func (c *Controller) Close() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	c.narrator.Stop()
	c.audio.Close()
	if session != nil {
		session.ClearHandlers()
		session.Close()
	}
}

// setIndexLocked makes index i current: stops any narration left over
// from the previous track, reparses lyrics, records history once per
// identifier change, refreshes the media session and starts playback if
// the playing flag is set.
func (c *Controller) setIndexLocked(i int) {
	track := c.playlist.Get(i)
	if track == nil {
		return
	}

	// Always silence the narrator before switching so a narrated track
	// never overlaps the next one. That also kills any quote reading in
	// flight, so its ducking must not outlive it.
	c.narrator.Stop()
	if c.state.Ducked {
		c.state.Ducked = false
		c.applyVolumeLocked()
	}

	c.state.Index = i
	c.state.Position = 0
	c.state.Duration = 0
	c.lines = lyrics.Parse(track.Lyrics)

	if track.ID != c.lastTrackID {
		c.lastTrackID = track.ID
		c.history.Record(*track)
		c.publish(api.PlayerEvent{Type: api.EventHistoryUpdate, Payload: c.history.Entries()})
	}

	c.pushSessionLocked(track)

	if !track.IsNarration {
		c.audio.Load(track.URL)
	} else {
		c.audio.Pause()
	}

	if c.state.Playing {
		c.startLocked(track)
	}

	cp := *track
	c.publish(api.PlayerEvent{Type: api.EventTrackChanged, Payload: &cp})
	c.publishStateLocked()
}

// startLocked issues the play command for track on the matching backend.
func (c *Controller) startLocked(track *api.Track) {
	if track.IsNarration {
		if track.Narration == nil {
			gologging.WarnF("player: %v", playerrors.NewPlayerError("narrate", track.ID, playerrors.ErrNoNarrationData))
			return
		}
		if c.narrator.IsSpeaking() {
			c.narrator.Resume()
			return
		}
		c.narrator.Speak(track.Narration.Text, track.Narration.Persona, c.autoAdvance)
		return
	}

	if err := c.audio.Play(); err != nil {
		// Autoplay-style rejection: log and stay optimistic, the user
		// can retry via an explicit control.
		gologging.WarnF("player: %v", playerrors.NewPlayerError("play", track.ID, err))
		c.publish(api.PlayerEvent{Type: api.EventError, Payload: err})
	}
}

// advanceLocked moves the index circularly by delta, preserving the
// playing flag.
func (c *Controller) advanceLocked(delta int) {
	n := c.playlist.Len()
	if n == 0 {
		return
	}
	c.setIndexLocked(((c.state.Index+delta)%n + n) % n)
}

// autoAdvance is the end-of-track path shared by the audio backend and
// the narration engine. The playing flag is kept as-is so the player
// autoplays continuously through the playlist.
func (c *Controller) autoAdvance() {
	c.mu.Lock()
	c.advanceLocked(1)
	c.mu.Unlock()
}

// applyVolumeLocked recomputes the effective backend volume from the
// user volume and the ducking flag.
func (c *Controller) applyVolumeLocked() {
	effective := c.state.Volume
	if c.state.Ducked {
		effective *= duckFactor
	}
	c.audio.SetVolume(effective)
}

// pushSessionLocked refreshes the media-session metadata and replaces the
// transport handlers so a superseded track's closures can never fire.
func (c *Controller) pushSessionLocked(track *api.Track) {
	if c.session == nil {
		return
	}

	c.session.SetHandlers(api.TransportHandlers{
		Play:     c.TogglePlay,
		Pause:    c.TogglePlay,
		Next:     c.Next,
		Previous: c.Previous,
		Stop: func() {
			if c.State().Playing {
				c.TogglePlay()
			}
		},
		Seek: c.Seek,
	})
	c.session.SetMetadata(track)
}

// pulse emits a best-effort haptic tick on manual transport actions.
func (c *Controller) pulse() {
	c.mu.Lock()
	h := c.haptics
	c.mu.Unlock()
	if h != nil {
		h.Pulse()
	}
}

func (c *Controller) publishStateLocked() {
	c.publish(api.PlayerEvent{Type: api.EventStateChange, Payload: c.state})
}

func (c *Controller) publish(event api.PlayerEvent) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

// onTimeUpdate is the audio backend's position callback.
func (c *Controller) onTimeUpdate(position time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	track := c.playlist.Get(c.state.Index)
	if track == nil || track.IsNarration {
		return
	}

	c.state.Position = position.Seconds()
	if c.session != nil {
		c.session.SetPosition(position, time.Duration(c.state.Duration*float64(time.Second)), c.state.Playing)
	}
	c.publish(api.PlayerEvent{Type: api.EventPositionUpdate, Payload: c.state.Position})
}

// onLoadedMetadata fires once a loaded source's duration is known. If the
// intent is still "playing" the command is reissued, which keeps autoplay
// going when a load finishes after TogglePlay.
func (c *Controller) onLoadedMetadata(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Duration = duration.Seconds()

	track := c.playlist.Get(c.state.Index)
	if track != nil && !track.IsNarration && c.state.Playing {
		if err := c.audio.Play(); err != nil {
			gologging.WarnF("player: %v", playerrors.NewPlayerError("play", track.ID, err))
		}
	}
	c.publishStateLocked()
}

// onEnded is the audio backend's end-of-track callback.
func (c *Controller) onEnded() {
	c.autoAdvance()
}
