package api

// Persona selects a narration voice preset.
type Persona string

const (
	PersonaDeep   Persona = "DEEP"
	PersonaNormal Persona = "NORMAL"
	PersonaGentle Persona = "GENTLE"
)

// NarrationPayload holds the text a narration track is synthesized from.
type NarrationPayload struct {
	Text    string  `json:"text"`
	Persona Persona `json:"persona"`
}

// Track is a single playlist entry. For narration tracks URL is empty and
// Narration must be set; for audio tracks URL must point at a playable
// resource (local path or http URL).
type Track struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Artist      string            `json:"artist"`
	Cover       string            `json:"cover"`
	URL         string            `json:"url"`
	Duration    string            `json:"duration"` // display string, e.g. "4:32" or "语音"
	Bitrate     string            `json:"bitrate"`
	Lyrics      string            `json:"lyrics,omitempty"`
	IsNarration bool              `json:"is_narration,omitempty"`
	Narration   *NarrationPayload `json:"narration,omitempty"`
}

// ViewMode selects what the expanded player is showing. It lives in the
// core state only because it gates lyric auto-scroll.
type ViewMode int

const (
	ViewCover ViewMode = iota
	ViewLyrics
	ViewHistory
)

// String returns the string representation of the view mode.
func (m ViewMode) String() string {
	switch m {
	case ViewCover:
		return "cover"
	case ViewLyrics:
		return "lyrics"
	case ViewHistory:
		return "history"
	default:
		return "unknown"
	}
}

// PlaybackState is the controller-owned mutable state. Consumers receive
// copies; only the playback controller mutates it.
type PlaybackState struct {
	Index    int
	Playing  bool
	Position float64 // seconds
	Duration float64 // seconds
	Volume   float64 // user-set, 0-1, persisted
	Ducked   bool    // external narration active, audio scaled to 20%
	Expanded bool
	View     ViewMode
}
