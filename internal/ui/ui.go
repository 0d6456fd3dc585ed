package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

// tickInterval drives the playback position clock between feed updates.
const tickInterval = 250 * time.Millisecond

// chrome is the number of rows the title and status lines take away from
// the viewport.
const chrome = 6

// Model represents the lyrics overlay state.
type Model struct {
	ctx     context.Context
	bus     ipc.Sender
	feed    *songfeed.Feed
	events  chan songfeed.Event
	offFeed func()

	viewport viewport.Model
	help     help.Model
	keys     keyMap

	song    models.SongInfo
	hasSong bool
	sheet   *models.Lyrics
	pos     time.Duration
	playing bool
	follow  bool
	fetched bool

	width  int
	height int
	ready  bool
}

type lyricsFetchedMsg struct {
	sheet *models.Lyrics
	err   error
}

type songEventMsg songfeed.Event

type tickMsg time.Time

// NewModel creates a new overlay model attached to a message bus and song feed.
func NewModel(ctx context.Context, bus ipc.Sender, feed *songfeed.Feed) *Model {
	m := &Model{
		ctx:    ctx,
		bus:    bus,
		feed:   feed,
		events: make(chan songfeed.Event, 16),
		help:   help.New(),
		keys:   newKeyMap(),
		follow: true,
	}
	m.offFeed = feed.Subscribe(func(ev songfeed.Event) {
		select {
		case m.events <- ev:
		default:
		}
	})
	if song, ok := feed.Current(); ok {
		m.song = song
		m.hasSong = true
		m.pos = song.Elapsed
		m.playing = !song.IsPaused
	}
	return m
}

// Init starts the position clock and the first lyric fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchLyrics(), m.waitForSong(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chrome
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case lyricsFetchedMsg:
		m.fetched = true
		if msg.err != nil {
			m.sheet = nil
		} else {
			m.sheet = msg.sheet
		}
		m.follow = true
		m.refreshContent()
		return m, nil

	case songEventMsg:
		return m.handleSongEvent(songfeed.Event(msg))

	case tickMsg:
		if m.playing {
			m.pos += tickInterval
			if m.follow {
				m.refreshContent()
			}
		}
		return m, m.tick()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the overlay.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.renderTitle(), m.viewport.View(), m.renderStatus())
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.offFeed()
		return m, tea.Quit
	case "f":
		m.follow = true
		m.refreshContent()
		return m, nil
	case "g", "home":
		m.follow = false
		m.viewport.GotoTop()
		return m, nil
	case "G", "end":
		m.follow = false
		m.viewport.GotoBottom()
		return m, nil
	case "up", "k", "down", "j", "pgup", "pgdown":
		m.follow = false
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleSongEvent(ev songfeed.Event) (tea.Model, tea.Cmd) {
	changed := ev.Kind == songfeed.VideoSrcChanged && ev.Song.VideoID != m.song.VideoID
	m.song = ev.Song
	m.hasSong = true
	m.pos = ev.Song.Elapsed
	m.playing = !ev.Song.IsPaused

	cmds := []tea.Cmd{m.waitForSong()}
	if changed || !m.fetched {
		m.sheet = nil
		m.fetched = false
		m.follow = true
		cmds = append(cmds, m.fetchLyrics())
	}
	m.refreshContent()
	return m, tea.Batch(cmds...)
}

// fetchLyrics asks the host for the current song's sheet.
func (m *Model) fetchLyrics() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()

		raw, err := m.bus.Invoke(ctx, ipc.ChanGetLyrics, nil)
		if err != nil {
			return lyricsFetchedMsg{err: err}
		}

		var sheet models.Lyrics
		if err := json.Unmarshal(raw, &sheet); err != nil {
			return lyricsFetchedMsg{err: err}
		}
		return lyricsFetchedMsg{sheet: &sheet}
	}
}

func (m *Model) waitForSong() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return songEventMsg(ev)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshContent re-renders the sheet into the viewport and, while following
// a synced sheet, keeps the active line vertically centered.
func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLines())

	if m.follow && m.sheet != nil && m.sheet.Synced {
		active := m.sheet.LineAt(m.pos)
		if active >= 0 {
			offset := active - m.viewport.Height/2
			if offset < 0 {
				offset = 0
			}
			m.viewport.SetYOffset(offset)
		} else {
			m.viewport.GotoTop()
		}
	}
}

// renderLines paints the sheet, highlighting the active line of a synced
// sheet and dimming the rest.
func (m *Model) renderLines() string {
	if m.sheet == nil || len(m.sheet.Lines) == 0 {
		if !m.fetched {
			return styles.dim.Render("fetching lyrics...")
		}
		return styles.dim.Render("no lyrics found")
	}

	active := -1
	if m.sheet.Synced {
		active = m.sheet.LineAt(m.pos)
	}

	var b strings.Builder
	for i, line := range m.sheet.Lines {
		text := line.Text
		if text == "" {
			text = " "
		}
		if i == active {
			b.WriteString(styles.active.Render(text))
		} else if m.sheet.Synced {
			b.WriteString(styles.dim.Render(text))
		} else {
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTitle() string {
	if !m.hasSong {
		return styles.title.Render("Nothing playing")
	}
	return styles.title.Render(fmt.Sprintf("%s - %s", m.song.Title, m.song.Artist))
}

func (m *Model) renderStatus() string {
	var status string
	if m.hasSong {
		state := "playing"
		if !m.playing {
			state = "paused"
		}
		status = fmt.Sprintf("%s  %s / %s", state,
			shared.FormatDuration(m.pos), shared.FormatDuration(m.song.Duration))
		if m.sheet != nil {
			status += fmt.Sprintf("  [%s]", m.sheet.Source)
		}
		if !m.follow {
			status += "  (scrolling, f to follow)"
		}
	}
	return fmt.Sprintf("%s\n%s", styles.dim.Render(status), m.help.ShortHelpView(m.keys.ShortHelp()))
}
