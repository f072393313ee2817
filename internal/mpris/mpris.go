// Package mpris publishes the player on the session bus so desktop
// media keys and applets can drive it.
package mpris

import (
	"sync"
	"time"

	"github.com/Laky-64/gologging"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/jiuzhougroup/soulsync/api"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

const (
	busName    = "org.mpris.MediaPlayer2.soulsync"
	objectPath = "/org/mpris/MediaPlayer2"

	rootInterface   = "org.mpris.MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
)

var _ api.MediaSession = (*Session)(nil)

// Session implements the MPRIS player interface. All incoming method
// calls arrive on dbus goroutines, never on the caller's.
type Session struct {
	conn  *dbus.Conn
	props *prop.Properties

	mu       sync.Mutex
	handlers api.TransportHandlers
	meta     map[string]dbus.Variant
	position time.Duration
}

// Connect registers the player on the session bus. Headless
// environments have no session bus; that returns ErrMediaSessionOffline
// and the player runs without desktop integration.
func Connect() (*Session, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, playerrors.ErrMediaSessionOffline
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagReplaceExisting)
	if err != nil || reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, playerrors.ErrMediaSessionOffline
	}

	s := &Session{conn: conn}

	propSpec := map[string]map[string]*prop.Prop{
		rootInterface: {
			"Identity":      {Value: "SoulSync", Emit: prop.EmitTrue},
			"CanQuit":       {Value: false, Emit: prop.EmitTrue},
			"CanRaise":      {Value: false, Emit: prop.EmitTrue},
			"HasTrackList":  {Value: false, Emit: prop.EmitTrue},
			"SupportedUriSchemes": {Value: []string{"http", "https", "file"}, Emit: prop.EmitTrue},
			"SupportedMimeTypes":  {Value: []string{"audio/mpeg", "audio/flac", "audio/wav"}, Emit: prop.EmitTrue},
		},
		playerInterface: {
			"PlaybackStatus": {Value: "Stopped", Emit: prop.EmitTrue},
			"Metadata":       {Value: map[string]dbus.Variant{}, Emit: prop.EmitTrue},
			"Position":       {Value: int64(0), Emit: prop.EmitFalse},
			"CanGoNext":      {Value: true, Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: true, Emit: prop.EmitTrue},
			"CanPlay":        {Value: true, Emit: prop.EmitTrue},
			"CanPause":       {Value: true, Emit: prop.EmitTrue},
			"CanSeek":        {Value: true, Emit: prop.EmitTrue},
			"CanControl":     {Value: true, Emit: prop.EmitTrue},
		},
	}
	props, err := prop.Export(conn, objectPath, propSpec)
	if err != nil {
		conn.Close()
		return nil, playerrors.ErrMediaSessionOffline
	}
	s.props = props

	// Only the MPRIS player methods go on the bus; exporting the
	// Session itself would expose Close and the api surface too.
	if err := conn.Export(remote{s}, objectPath, playerInterface); err != nil {
		conn.Close()
		return nil, playerrors.ErrMediaSessionOffline
	}

	gologging.InfoF("mpris: registered as %s", busName)
	return s, nil
}

// SetHandlers installs the transport callbacks, replacing any previous
// set.
func (s *Session) SetHandlers(h api.TransportHandlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

// ClearHandlers detaches all transport callbacks.
func (s *Session) ClearHandlers() {
	s.SetHandlers(api.TransportHandlers{})
}

// SetMetadata publishes the current track.
func (s *Session) SetMetadata(track *api.Track) {
	meta := map[string]dbus.Variant{}
	if track != nil {
		meta["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath("/org/soulsync/track/" + sanitizeID(track.ID)))
		meta["xesam:title"] = dbus.MakeVariant(track.Title)
		meta["xesam:artist"] = dbus.MakeVariant([]string{track.Artist})
		if track.Cover != "" {
			meta["mpris:artUrl"] = dbus.MakeVariant(track.Cover)
		}
	}
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
	s.props.SetMust(playerInterface, "Metadata", meta)
}

// SetPosition publishes the playback position and status. The track
// length rides along in Metadata once the backend has resolved it.
func (s *Session) SetPosition(position, duration time.Duration, playing bool) {
	status := "Paused"
	if playing {
		status = "Playing"
	}
	s.mu.Lock()
	s.position = position
	s.mu.Unlock()

	s.props.SetMust(playerInterface, "Position", position.Microseconds())
	s.props.SetMust(playerInterface, "PlaybackStatus", status)

	if duration <= 0 {
		return
	}
	s.mu.Lock()
	if s.meta == nil {
		s.mu.Unlock()
		return
	}
	if v, ok := s.meta["mpris:length"]; ok && v.Value() == duration.Microseconds() {
		s.mu.Unlock()
		return
	}
	s.meta["mpris:length"] = dbus.MakeVariant(duration.Microseconds())
	meta := s.meta
	s.mu.Unlock()
	s.props.SetMust(playerInterface, "Metadata", meta)
}

// Close releases the bus name and connection.
func (s *Session) Close() {
	s.ClearHandlers()
	s.conn.ReleaseName(busName)
	s.conn.Close()
}

// remote carries the MPRIS player methods that get exported on the
// bus. They arrive on dbus goroutines, never on the caller's.
type remote struct {
	s *Session
}

// Play handles the MPRIS Play method.
func (r remote) Play() *dbus.Error {
	r.s.dispatch(func(h api.TransportHandlers) func() { return h.Play })
	return nil
}

// Pause handles the MPRIS Pause method.
func (r remote) Pause() *dbus.Error {
	r.s.dispatch(func(h api.TransportHandlers) func() { return h.Pause })
	return nil
}

// PlayPause toggles between playing and paused.
func (r remote) PlayPause() *dbus.Error {
	if status, err := r.s.props.Get(playerInterface, "PlaybackStatus"); err == nil && status.Value() == "Playing" {
		return r.Pause()
	}
	return r.Play()
}

// Next handles the MPRIS Next method.
func (r remote) Next() *dbus.Error {
	r.s.dispatch(func(h api.TransportHandlers) func() { return h.Next })
	return nil
}

// Previous handles the MPRIS Previous method.
func (r remote) Previous() *dbus.Error {
	r.s.dispatch(func(h api.TransportHandlers) func() { return h.Previous })
	return nil
}

// Stop handles the MPRIS Stop method.
func (r remote) Stop() *dbus.Error {
	r.s.dispatch(func(h api.TransportHandlers) func() { return h.Stop })
	return nil
}

// Seek handles the MPRIS Seek method. The offset is relative, in
// microseconds; the controller seeks to absolute positions, so it is
// added to the last published position. Results below zero clamp to
// the track start.
func (r remote) Seek(offset int64) *dbus.Error {
	r.s.mu.Lock()
	seek := r.s.handlers.Seek
	target := r.s.position + time.Duration(offset)*time.Microsecond
	r.s.mu.Unlock()

	if target < 0 {
		target = 0
	}
	if seek != nil {
		seek(target)
	}
	return nil
}

// SetPosition handles the MPRIS SetPosition method. The position is
// absolute, in microseconds; the track id is not checked since the
// player exposes a single active track.
func (r remote) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	r.s.mu.Lock()
	seek := r.s.handlers.Seek
	r.s.mu.Unlock()

	if seek != nil {
		seek(time.Duration(position) * time.Microsecond)
	}
	return nil
}

func (s *Session) dispatch(pick func(api.TransportHandlers) func()) {
	s.mu.Lock()
	fn := pick(s.handlers)
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// sanitizeID maps a track ID onto the characters a dbus object path
// allows.
func sanitizeID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
