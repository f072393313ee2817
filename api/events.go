package api

// EventType identifies a player event on the bus.
type EventType int

const (
	EventTrackChanged EventType = iota
	EventStateChange
	EventPositionUpdate
	EventHistoryUpdate
	EventQuoteNarration
	EventMarketUpdate
	EventError
)

// PlayerEvent is broadcast by the playback controller and its
// collaborators whenever observable state changes.
type PlayerEvent struct {
	Type    EventType
	Payload any
}

// AllEventTypes lists every event type the bus knows about.
var AllEventTypes = []EventType{
	EventTrackChanged,
	EventStateChange,
	EventPositionUpdate,
	EventHistoryUpdate,
	EventQuoteNarration,
	EventMarketUpdate,
	EventError,
}
