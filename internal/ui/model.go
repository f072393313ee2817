// Package ui is the terminal front end, a bubbletea program driven by
// key input and player events.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/internal/market"
	"github.com/jiuzhougroup/soulsync/internal/player"
	"github.com/jiuzhougroup/soulsync/internal/playlist"
	"github.com/jiuzhougroup/soulsync/internal/quotes"
	"github.com/jiuzhougroup/soulsync/pkg/events"
)

type screen int

const (
	screenPlaylist screen = iota
	screenQuotes
	screenMarket
)

type playerEventMsg api.PlayerEvent

type refreshMsg time.Time

// Model is the root bubbletea model.
type Model struct {
	ctrl      *player.Controller
	tracks    *playlist.Model
	narrator  *quotes.Narrator
	galleries []quotes.Gallery
	ticker    *market.Ticker
	bus       *events.Bus
	eventCh   <-chan api.PlayerEvent

	screen   screen
	search   textinput.Model
	filtered []*api.Track
	selected int
	quoteSel int
	width    int
	height   int
	status   string
}

// NewModel wires the UI to the running player. ticker may be nil when
// the market feed is disabled.
func NewModel(ctrl *player.Controller, tracks *playlist.Model, narrator *quotes.Narrator, galleries []quotes.Gallery, ticker *market.Ticker, bus *events.Bus) Model {
	search := textinput.New()
	search.Placeholder = "搜索音乐..."
	search.CharLimit = 64
	search.Width = 30

	return Model{
		ctrl:      ctrl,
		tracks:    tracks,
		narrator:  narrator,
		galleries: galleries,
		ticker:    ticker,
		bus:       bus,
		eventCh:   bus.SubscribeAll(),
		search:    search,
		filtered:  tracks.All(),
	}
}

// Run starts the program and blocks until the user quits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventCh), refreshTick())
}

// waitForEvent relays one bus event into the update loop.
func waitForEvent(ch <-chan api.PlayerEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return playerEventMsg(event)
	}
}

// refreshTick repaints once a second so clocks and sparklines stay
// current even without player events.
func refreshTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case playerEventMsg:
		if msg.Type == api.EventError {
			if err, ok := msg.Payload.(error); ok {
				m.status = err.Error()
			}
		}
		// Tracks can arrive from the library watcher at any time.
		m.applyFilter()
		return m, waitForEvent(m.eventCh)

	case refreshMsg:
		return m, refreshTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey routes key input. A focused search box captures everything
// except escape and enter, so typing a space never toggles playback.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		switch msg.String() {
		case "esc":
			m.search.Blur()
			m.search.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter":
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.applyFilter()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.search.Focus()
		return m, textinput.Blink

	case "tab":
		m.screen = (m.screen + 1) % 3
		return m, nil
	case "1":
		m.screen = screenPlaylist
	case "2":
		m.screen = screenQuotes
	case "3":
		m.screen = screenMarket

	case " ":
		m.ctrl.TogglePlay()
	case "ctrl+right", "n":
		m.ctrl.Next()
	case "ctrl+left", "b":
		m.ctrl.Previous()

	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)

	case "enter":
		return m.activateSelection()

	case "s":
		// Read the highlighted quote over the music instead of
		// replacing it.
		if m.screen == screenQuotes {
			if g, q, ok := m.quoteAt(m.quoteSel); ok {
				m.narrator.Speak(g, q)
			}
		}
	case "esc":
		m.narrator.Stop()

	case "e":
		m.ctrl.SetExpanded(!m.ctrl.State().Expanded)
	case "v":
		state := m.ctrl.State()
		m.ctrl.SetViewMode((state.View + 1) % 3)

	case "+", "=":
		m.nudgeVolume(0.05)
	case "-":
		m.nudgeVolume(-0.05)

	case "right":
		m.seekBy(5 * time.Second)
	case "left":
		m.seekBy(-5 * time.Second)
	}

	return m, nil
}

func (m *Model) moveSelection(delta int) {
	switch m.screen {
	case screenPlaylist:
		m.selected = clamp(m.selected+delta, 0, len(m.filtered)-1)
	case screenQuotes:
		m.quoteSel = clamp(m.quoteSel+delta, 0, m.totalQuotes()-1)
	}
}

// activateSelection plays the highlighted entry on the current screen.
func (m Model) activateSelection() (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenPlaylist:
		if m.selected < len(m.filtered) {
			if err := m.ctrl.PlayTrack(m.filtered[m.selected].ID); err != nil {
				m.status = err.Error()
			}
		}
	case screenQuotes:
		if g, q, ok := m.quoteAt(m.quoteSel); ok {
			if err := m.ctrl.AddAndPlay(quotes.AsTrack(g, q)); err != nil {
				m.status = err.Error()
			}
			m.filtered = m.tracks.All()
		}
	}
	return m, nil
}

func (m *Model) applyFilter() {
	m.filtered = m.tracks.Filter(m.search.Value())
	if m.selected >= len(m.filtered) {
		m.selected = 0
	}
}

func (m *Model) nudgeVolume(delta float64) {
	level := m.ctrl.State().Volume + delta
	level = clampFloat(level, 0, 1)
	if err := m.ctrl.SetVolume(level); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) seekBy(delta time.Duration) {
	pos := time.Duration(m.ctrl.State().Position*float64(time.Second)) + delta
	if pos < 0 {
		pos = 0
	}
	m.ctrl.Seek(pos)
}

func (m Model) totalQuotes() int {
	n := 0
	for _, g := range m.galleries {
		n += len(g.Quotes)
	}
	return n
}

// quoteAt maps a flat selection index onto a gallery and quote.
func (m Model) quoteAt(i int) (quotes.Gallery, quotes.Quote, bool) {
	for _, g := range m.galleries {
		if i < len(g.Quotes) {
			return g, g.Quotes[i], true
		}
		i -= len(g.Quotes)
	}
	return quotes.Gallery{}, quotes.Quote{}, false
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
