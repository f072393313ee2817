package api

import "time"

// AudioHandlers are the callbacks an audio backend fires while a track is
// loaded. Handlers may be invoked from the backend's own goroutine.
type AudioHandlers struct {
	TimeUpdate     func(position time.Duration)
	LoadedMetadata func(duration time.Duration)
	Ended          func()
}

// AudioBackend abstracts a playable-media element. Implementations must
// tolerate transport commands arriving while a previous command is still
// resolving; a rejected Play is an error for the caller to log, not a
// state rollback.
type AudioBackend interface {
	// Load prepares the given source for playback. Loading is
	// asynchronous; LoadedMetadata fires when the duration is known.
	Load(url string)
	// Play starts or resumes playback of the loaded source.
	Play() error
	Pause()
	Seek(position time.Duration)
	Position() time.Duration
	Duration() time.Duration
	// SetVolume sets the effective output volume (0.0 to 1.0).
	SetVolume(level float64)
	SetHandlers(h AudioHandlers)
	Close()
}

// Voice describes one voice a speech backend offers.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single synthesis request.
type Utterance struct {
	Text    string
	Pitch   float64 // 1.0 = neutral
	Rate    float64 // 1.0 = neutral
	Lang    string
	Voice   string // backend voice name, empty for backend default
	OnEnd   func()
	OnError func(err error)
}

// SpeechBackend abstracts a speech-synthesis capability. Speaking stays
// true while paused.
type SpeechBackend interface {
	Speak(u Utterance)
	Cancel()
	Pause()
	Resume()
	Speaking() bool
	Paused() bool
	Voices() []Voice
}

// TransportHandlers route remote transport commands from a system media
// surface back into the player.
type TransportHandlers struct {
	Play     func()
	Pause    func()
	Next     func()
	Previous func()
	Stop     func()
	Seek     func(position time.Duration)
}

// MediaSession is the optional system-level "now playing" surface.
// Implementations are best-effort; the player works with a nil session.
type MediaSession interface {
	SetMetadata(track *Track)
	SetPosition(position, duration time.Duration, playing bool)
	// SetHandlers replaces any previously registered handlers so a
	// superseded track's closures can never fire.
	SetHandlers(h TransportHandlers)
	ClearHandlers()
	Close()
}

// Haptics emits a short pulse on manual transport actions. Best-effort.
type Haptics interface {
	Pulse()
}
