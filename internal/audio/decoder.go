package audio

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

// DecodeAudio picks a decoder by the source's extension. Sources without
// a recognizable extension, which is common for streaming URLs, are
// treated as mp3.
func DecodeAudio(r io.ReadSeekCloser, source string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(stripQuery(source)), ".")) {
	case "mp3", "":
		return mp3.Decode(r)
	case "wav":
		return wav.Decode(r)
	case "flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, playerrors.ErrInvalidFormat
	}
}

// stripQuery drops a URL query so the extension check sees the path.
func stripQuery(source string) string {
	if i := strings.IndexByte(source, '?'); i >= 0 {
		return source[:i]
	}
	return source
}
