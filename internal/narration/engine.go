// Package narration wraps a speech-synthesis backend with persona
// presets, pause/resume/stop semantics and a safety watchdog.
package narration

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Laky-64/gologging"
	"github.com/jiuzhougroup/soulsync/api"
)

// settings is a persona's pitch/rate preset.
type settings struct {
	Pitch float64
	Rate  float64
}

// personaSettings is the fixed persona table. The locale is fixed to a
// single language for every preset in this deployment.
var personaSettings = map[api.Persona]settings{
	api.PersonaDeep:   {Pitch: 0.8, Rate: 0.9},
	api.PersonaNormal: {Pitch: 1.0, Rate: 1.0},
	api.PersonaGentle: {Pitch: 1.2, Rate: 0.9},
}

// DefaultLocale is the narration locale for every persona.
const DefaultLocale = "zh-CN"

// watchdog fallbacks, in addition to the estimated utterance length.
const (
	minUtterance   = 5 * time.Second
	watchdogBuffer = 5 * time.Second
	charsPerSecond = 3
)

// session is one in-flight utterance. At most one session exists at a
// time; superseded sessions are marked done so their callbacks no-op.
type session struct {
	watchdog *time.Timer
	onEnd    func()
	done     bool
}

// Engine drives a SpeechBackend. Construct one instance and share it by
// reference; starting a new utterance implicitly cancels the prior one.
type Engine struct {
	backend api.SpeechBackend
	locale  string
	// preferredVoice is a substring a higher-quality voice name is
	// matched against before falling back to any locale match.
	preferredVoice string

	mu      sync.Mutex
	current *session

	// afterFunc is swapped in tests to drive the watchdog with a fake
	// clock.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewEngine creates a narration engine over the given backend. An empty
// locale falls back to DefaultLocale.
func NewEngine(backend api.SpeechBackend, locale, preferredVoice string) *Engine {
	if locale == "" {
		locale = DefaultLocale
	}
	return &Engine{
		backend:        backend,
		locale:         locale,
		preferredVoice: preferredVoice,
		afterFunc:      time.AfterFunc,
	}
}

// WatchdogDuration returns the forced-termination deadline for text:
// the estimated utterance length (3 chars/second, minimum 5s) plus a 5s
// buffer.
func WatchdogDuration(text string) time.Duration {
	estimated := time.Duration(utf8.RuneCountInString(text)) * time.Second / charsPerSecond
	if estimated < minUtterance {
		estimated = minUtterance
	}
	return estimated + watchdogBuffer
}

// Speak cancels any in-flight narration, then starts synthesizing text
// under the given persona. onEnd is invoked exactly once, on natural
// completion, synthesis error, or watchdog expiry. onEnd may be nil.
func (e *Engine) Speak(text string, persona api.Persona, onEnd func()) {
	e.mu.Lock()
	e.cancelLocked()

	cfg, ok := personaSettings[persona]
	if !ok {
		cfg = personaSettings[api.PersonaNormal]
	}

	s := &session{onEnd: onEnd}
	e.current = s
	s.watchdog = e.afterFunc(WatchdogDuration(text), func() {
		gologging.WarnF("narration: watchdog fired, forcing stop")
		e.finish(s, true)
	})
	e.mu.Unlock()

	e.backend.Speak(api.Utterance{
		Text:  text,
		Pitch: cfg.Pitch,
		Rate:  cfg.Rate,
		Lang:  e.locale,
		Voice: e.selectVoice(),
		OnEnd: func() { e.finish(s, false) },
		OnError: func(err error) {
			// Best-effort: errors complete the session like a natural end.
			gologging.ErrorF("narration: synthesis error: %v", err)
			e.finish(s, false)
		},
	})
}

// finish tears down session s and fires its onEnd once. The watchdog and
// the backend's completion/error callbacks race; whichever reaches a
// session first wins and the rest are no-ops.
func (e *Engine) finish(s *session, forced bool) {
	e.mu.Lock()
	if s.done {
		e.mu.Unlock()
		return
	}
	s.done = true
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	// Cancel under the lock, and only while s is still current: a stale
	// watchdog must never kill an utterance started after it was armed.
	if forced && e.current == s {
		e.backend.Cancel()
	}
	if e.current == s {
		e.current = nil
	}
	onEnd := s.onEnd
	e.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// Stop cancels active or pending synthesis and the watchdog. Idempotent;
// safe when nothing is speaking. The session's onEnd does not fire.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.cancelLocked()
	e.mu.Unlock()
}

// cancelLocked retires the current session without invoking its onEnd.
func (e *Engine) cancelLocked() {
	if s := e.current; s != nil {
		s.done = true
		if s.watchdog != nil {
			s.watchdog.Stop()
		}
		e.current = nil
	}
	if e.backend.Speaking() || e.backend.Paused() {
		e.backend.Cancel()
	}
}

// Pause suspends synthesis if it is speaking and not already paused.
func (e *Engine) Pause() {
	if e.backend.Speaking() && !e.backend.Paused() {
		e.backend.Pause()
	}
}

// Resume continues synthesis if it is paused.
func (e *Engine) Resume() {
	if e.backend.Paused() {
		e.backend.Resume()
	}
}

// IsSpeaking mirrors the backend's live speaking flag. It stays true
// while paused, matching the backend's own semantics.
func (e *Engine) IsSpeaking() bool {
	return e.backend.Speaking()
}

// selectVoice picks a voice for the engine locale: a preferred named
// voice when available, else any locale match, else the backend default.
// Never fails.
func (e *Engine) selectVoice() string {
	voices := e.backend.Voices()

	if e.preferredVoice != "" {
		for _, v := range voices {
			if matchesLocale(v.Lang, e.locale) && strings.Contains(v.Name, e.preferredVoice) {
				return v.Name
			}
		}
	}
	for _, v := range voices {
		if matchesLocale(v.Lang, e.locale) {
			return v.Name
		}
	}
	return ""
}

// matchesLocale compares a backend voice language against the engine
// locale by primary subtag, case-insensitively. espeak-ng reports
// Mandarin as cmn rather than zh, so those two count as the same.
func matchesLocale(lang, locale string) bool {
	lb := primarySubtag(lang)
	cb := primarySubtag(locale)
	if lb == cb {
		return true
	}
	return (lb == "cmn" && cb == "zh") || (lb == "zh" && cb == "cmn")
}

// primarySubtag lowercases a language tag and strips any region suffix.
func primarySubtag(tag string) string {
	tag = strings.ToLower(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}
