package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrTrackNotFound        = errors.New("track not found")
	ErrEmptyPlaylist        = errors.New("playlist is empty")
	ErrInvalidFormat        = errors.New("unsupported audio format")
	ErrPlaybackFailed       = errors.New("playback failed")
	ErrInvalidVolume        = errors.New("volume must be between 0.0 and 1.0")
	ErrSpeechUnavailable    = errors.New("speech synthesis unavailable")
	ErrNoNarrationData      = errors.New("narration track has no narration payload")
	ErrSeekNotSupported     = errors.New("narration tracks have no seekable timeline")
	ErrMediaSessionOffline  = errors.New("system media session unavailable")
	ErrMarketFeedDisconnect = errors.New("market feed disconnected")
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op    string // Operation that failed
	Track string // Track ID if applicable
	Err   error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for track %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, track string, err error) *PlayerError {
	return &PlayerError{Op: op, Track: track, Err: err}
}

// ScanError represents an error during library scanning
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
