// Package audio implements the playable-media backend over the beep
// speaker.
package audio

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Laky-64/gologging"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/jiuzhougroup/soulsync/api"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

// Ensure Backend implements the audio element contract at compile time
var _ api.AudioBackend = (*Backend)(nil)

// Backend decodes local files and http(s) URLs and plays them through the
// beep speaker. Loading is asynchronous; a Play issued before the load
// resolves records intent and is re-driven by the LoadedMetadata
// callback, so out-of-order command resolution never corrupts state.
type Backend struct {
	mu         sync.Mutex
	handlers   api.AudioHandlers
	streamer   beep.StreamSeekCloser
	sampleRate beep.SampleRate
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	level      float64
	started    bool
	pending    bool // play requested before the load resolved
	loadGen    int
	tmpFile    string
	done       chan struct{}
}

// NewBackend creates an audio backend and starts its position ticker.
func NewBackend() *Backend {
	b := &Backend{
		level: 0.7,
		done:  make(chan struct{}),
	}
	go b.trackPosition()
	return b
}

// SetHandlers registers the element callbacks.
func (b *Backend) SetHandlers(h api.AudioHandlers) {
	b.mu.Lock()
	b.handlers = h
	b.mu.Unlock()
}

// Load prepares url for playback, superseding any previous source. The
// LoadedMetadata handler fires once the duration is known.
func (b *Backend) Load(url string) {
	b.mu.Lock()
	b.loadGen++
	gen := b.loadGen
	b.stopLocked()
	b.mu.Unlock()

	if url == "" {
		return
	}
	go b.load(url, gen)
}

// load resolves, decodes and installs the source if it is still current.
func (b *Backend) load(url string, gen int) {
	file, tmp, err := openSource(url)
	if err != nil {
		gologging.WarnF("audio: %v", playerrors.NewPlayerError("load", url, err))
		return
	}

	streamer, format, err := DecodeAudio(file, url)
	if err != nil {
		file.Close()
		removeTemp(tmp)
		gologging.WarnF("audio: %v", playerrors.NewPlayerError("decode", url, err))
		return
	}

	b.mu.Lock()
	if gen != b.loadGen {
		// A newer Load superseded this one while we were decoding.
		b.mu.Unlock()
		streamer.Close()
		removeTemp(tmp)
		return
	}

	b.streamer = streamer
	b.sampleRate = format.SampleRate
	b.ctrl = &beep.Ctrl{Streamer: streamer}
	b.volume = &effects.Volume{
		Streamer: b.ctrl,
		Base:     2,
		Volume:   b.level*2 - 1, // -1 to 1 range
		Silent:   b.level == 0,
	}
	b.tmpFile = tmp
	b.started = false

	duration := format.SampleRate.D(streamer.Len())
	pending := b.pending
	b.pending = false
	onLoaded := b.handlers.LoadedMetadata
	b.mu.Unlock()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		gologging.WarnF("audio: %v", playerrors.NewPlayerError("speaker_init", url, err))
		return
	}

	if onLoaded != nil {
		onLoaded(duration)
	}
	if pending {
		if err := b.Play(); err != nil {
			gologging.WarnF("audio: %v", playerrors.NewPlayerError("play", url, err))
		}
	}
}

// Play starts or resumes the loaded source. Before the load resolves it
// records intent and succeeds.
func (b *Backend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		b.pending = true
		return nil
	}

	if b.started {
		speaker.Lock()
		b.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	b.started = true
	ended := b.handlers.Ended
	speaker.Play(beep.Seq(b.volume, beep.Callback(func() {
		if ended != nil {
			go ended()
		}
	})))
	return nil
}

// Pause suspends playback.
func (b *Backend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = false
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
}

// Seek moves the playback position.
func (b *Backend) Seek(position time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return
	}
	speaker.Lock()
	err := b.streamer.Seek(b.sampleRate.N(position))
	speaker.Unlock()
	if err != nil {
		gologging.WarnF("audio: seek: %v", err)
	}
}

// Position returns the current playback position.
func (b *Backend) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return 0
	}
	return b.sampleRate.D(b.streamer.Position())
}

// Duration returns the loaded source's length.
func (b *Backend) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return 0
	}
	return b.sampleRate.D(b.streamer.Len())
}

// SetVolume sets the effective output volume (0.0 to 1.0).
func (b *Backend) SetVolume(level float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level = level
	if b.volume == nil {
		return
	}
	speaker.Lock()
	b.volume.Volume = level*2 - 1
	b.volume.Silent = level == 0
	speaker.Unlock()
}

// Close stops playback and releases resources.
func (b *Backend) Close() {
	close(b.done)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

// stopLocked clears the speaker and drops the current source.
func (b *Backend) stopLocked() {
	speaker.Clear()
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	b.ctrl = nil
	b.volume = nil
	b.started = false
	b.pending = false
	removeTemp(b.tmpFile)
	b.tmpFile = ""
}

// trackPosition drives the TimeUpdate handler every 500ms while a source
// is playing.
func (b *Backend) trackPosition() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.mu.Lock()
			var update func(time.Duration)
			var pos time.Duration
			if b.streamer != nil && b.started && b.ctrl != nil && !b.ctrl.Paused {
				pos = b.sampleRate.D(b.streamer.Position())
				update = b.handlers.TimeUpdate
			}
			b.mu.Unlock()

			if update != nil {
				update(pos)
			}
		}
	}
}

// openSource opens a local path directly and streams an http(s) URL to a
// temp file first, since decoding needs a seekable reader. The temp path
// is returned for cleanup, empty for local files.
func openSource(url string) (io.ReadSeekCloser, string, error) {
	if len(url) < 4 || url[:4] != "http" {
		f, err := os.Open(url)
		return f, "", err
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch source: status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "soulsync-*.audio")
	if err != nil {
		return nil, "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", fmt.Errorf("download source: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", err
	}
	return tmp, tmp.Name(), nil
}

func removeTemp(path string) {
	if path != "" {
		os.Remove(path)
	}
}
