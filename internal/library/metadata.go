package library

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// readMetadata extracts title, artist and an inline cover reference from
// the file's embedded tags. Files without tags fall back to the file
// name; only open failures are errors.
func readMetadata(path string) (title, artist, cover string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	title = fallbackTitle(path)
	artist = "Unknown Artist"

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return title, artist, "", nil
	}

	if t := strings.TrimSpace(meta.Title()); t != "" {
		title = t
	}
	if a := strings.TrimSpace(meta.Artist()); a != "" {
		artist = a
	}
	if pic := meta.Picture(); pic != nil {
		cover = "embedded:" + pic.MIMEType
	}
	return title, artist, cover, nil
}

// fallbackTitle derives a display title from the file name.
func fallbackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
