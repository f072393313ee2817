// SoulSync is a terminal music player with spoken narration, the
// Jiuzhou Group soundscape companion.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Laky-64/gologging"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/audio"
	"github.com/jiuzhougroup/soulsync/internal/config"
	"github.com/jiuzhougroup/soulsync/internal/history"
	"github.com/jiuzhougroup/soulsync/internal/library"
	"github.com/jiuzhougroup/soulsync/internal/market"
	"github.com/jiuzhougroup/soulsync/internal/mpris"
	"github.com/jiuzhougroup/soulsync/internal/narration"
	"github.com/jiuzhougroup/soulsync/internal/player"
	"github.com/jiuzhougroup/soulsync/internal/playlist"
	"github.com/jiuzhougroup/soulsync/internal/quotes"
	"github.com/jiuzhougroup/soulsync/internal/speech"
	"github.com/jiuzhougroup/soulsync/internal/storage"
	"github.com/jiuzhougroup/soulsync/internal/ui"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
	"github.com/jiuzhougroup/soulsync/pkg/events"
)

// bellHaptics approximates a vibration pulse with the terminal bell.
type bellHaptics struct{}

func (bellHaptics) Pulse() {
	fmt.Fprint(os.Stderr, "\a")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		gologging.Fatal(err.Error())
	}
	level := gologging.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = gologging.DebugLevel
	case "warn":
		level = gologging.WarnLevel
	case "error":
		level = gologging.ErrorLevel
	}
	gologging.SetLevel(level)

	kv := storage.OpenFileStore(cfg.StatePath())

	tracks, err := playlist.NewSeeded()
	if err != nil {
		gologging.FatalF("Failed to load the built-in playlist: %v", err)
	}
	local := library.NewScanner(cfg.MusicDirs).Scan()
	for _, t := range local {
		tracks.Append(t)
	}
	gologging.InfoF("Loaded %d local tracks from %v", len(local), cfg.MusicDirs)

	galleries, err := quotes.Load()
	if err != nil {
		gologging.FatalF("Failed to load the quote galleries: %v", err)
	}

	bus := events.NewBus()
	defer bus.Close()

	speaker := speech.NewEspeak()
	engine := narration.NewEngine(speaker, cfg.Locale, cfg.PreferredVoice)
	backend := audio.NewBackend()

	hist := history.NewStore(kv)
	ctrl := player.NewController(tracks, backend, engine, hist, kv, bus, cfg.DefaultVolume)
	defer ctrl.Close()
	ctrl.AttachHaptics(bellHaptics{})
	reader := quotes.NewNarrator(engine, ctrl, bus)

	if session, err := mpris.Connect(); err == nil {
		ctrl.AttachMediaSession(session)
		defer session.Close()
	} else if errors.Is(err, playerrors.ErrMediaSessionOffline) {
		gologging.InfoF("No session bus; desktop media keys disabled")
	}

	watcher, err := library.NewWatcher(cfg.MusicDirs, func(t *api.Track) {
		tracks.Add(t)
		bus.Publish(api.PlayerEvent{Type: api.EventStateChange})
	})
	if err != nil {
		gologging.WarnF("Library watcher disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	var ticker *market.Ticker
	if cfg.MarketFeed {
		ticker = market.NewTicker(bus)
		ticker.Start()
		defer ticker.Stop()
	}

	if err := ui.Run(ui.NewModel(ctrl, tracks, reader, galleries, ticker, bus)); err != nil {
		gologging.FatalF("UI error: %v", err)
	}
}
