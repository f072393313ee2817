package library

import (
	"github.com/Laky-64/gologging"
	"github.com/fsnotify/fsnotify"
	"github.com/jiuzhougroup/soulsync/api"
)

// Watcher reports audio files appearing in the music directories while
// the player runs.
type Watcher struct {
	fs    *fsnotify.Watcher
	dirs  []string
	added func(*api.Track)
	done  chan struct{}
}

// NewWatcher watches dirs and calls added for each new playable file.
// The callback runs on the watcher goroutine.
func NewWatcher(dirs []string, added func(*api.Track)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fs: fs, dirs: dirs, added: added, done: make(chan struct{})}
	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			gologging.WarnF("library: watch %s: %v", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !IsSupported(event.Name) {
				continue
			}
			track, err := TrackFromFile(event.Name)
			if err != nil {
				gologging.WarnF("library: %v", err)
				continue
			}
			gologging.InfoF("library: new track %s", track.Title)
			w.added(track)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			gologging.WarnF("library: watcher: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.fs.Close()
}
