package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"ytune/internal/browse"
	"ytune/internal/domain"
)

// tickInterval paces end-of-track polling. The session state only notices a
// finished track when Tick runs.
const tickInterval = 100 * time.Millisecond

type tickMsg time.Time

type stopper interface{ Stop() }

type albumCreator interface {
	Create(name, description string, tracks []domain.AlbumTrack) error
}

// Model is the bubbletea shell around the browse session state. All the
// interesting transitions live in browse.State; the model translates key
// events and owns the filter overlay.
type Model struct {
	state    *browse.State
	keys     KeyMap
	prefetch stopper
	creator  albumCreator
	logger   *slog.Logger

	width  int
	height int

	filtering   bool
	filterInput textinput.Model
	unfiltered  []*domain.Track

	namingAlbum bool
	albumInput  textinput.Model

	confirmDelete bool
	status        string
}

func New(state *browse.State, prefetch stopper, creator albumCreator, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = 80
	ai := textinput.New()
	ai.Prompt = "album name: "
	ai.CharLimit = 120
	return Model{
		state:       state,
		keys:        DefaultKeyMap(),
		prefetch:    prefetch,
		creator:     creator,
		logger:      logger,
		filterInput: ti,
		albumInput:  ai,
	}
}

// Run drives a browse session to completion, cleaning up playback and the
// prefetcher on the way out regardless of how the program ended.
func Run(state *browse.State, prefetch stopper, creator albumCreator, logger *slog.Logger) error {
	p := tea.NewProgram(New(state, prefetch, creator, logger), tea.WithAltScreen())
	_, err := p.Run()
	if prefetch != nil {
		prefetch.Stop()
	}
	state.StopPlayback()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.state.Tick()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		rows := msg.Height - chromeRows
		if rows < 1 {
			rows = 1
		}
		m.state.SetRows(rows)
		return m, nil

	case tea.KeyMsg:
		if m.confirmDelete {
			return m.updateConfirm(msg)
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		if m.namingAlbum {
			return m.updateAlbumName(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.confirmDelete = false
		if m.state.Mode() == browse.ModeAlbumDetail {
			if !m.state.RemoveSelectedFromAlbum() {
				m.status = "remove failed"
			}
		} else {
			if !m.state.DeleteSelected() {
				m.status = "delete failed"
			}
		}
	case key.Matches(msg, m.keys.Deny):
		m.confirmDelete = false
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.filtering = false
		m.filterInput.Blur()
		m.clearFilter()
		return m, nil
	case msg.Type == tea.KeyEnter:
		// Commit: leave the filtered view up, drop the input line.
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter(m.filterInput.Value())
	return m, cmd
}

func (m Model) updateAlbumName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.namingAlbum = false
		m.albumInput.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		m.namingAlbum = false
		m.albumInput.Blur()
		name := m.albumInput.Value()
		t := m.state.SelectedTrack()
		if name == "" || t == nil {
			return m, nil
		}
		err := m.creator.Create(name, "", []domain.AlbumTrack{{Track: *t, Order: 1}})
		if err != nil {
			m.status = "album create failed: " + err.Error()
		} else {
			m.status = "created album " + name
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.albumInput, cmd = m.albumInput.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.state.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.state.Move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.state.Page(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.state.Page(1)
	case key.Matches(msg, m.keys.Home):
		m.state.Home()
	case key.Matches(msg, m.keys.End):
		m.state.End()

	case key.Matches(msg, m.keys.Enter):
		if m.state.Mode() == browse.ModeAlbums {
			if !m.state.EnterAlbum() {
				m.status = "album has no playable tracks"
			}
		} else if !m.state.PlaySelected() {
			m.status = "not available yet"
		}

	case key.Matches(msg, m.keys.Back):
		if m.unfiltered != nil {
			m.clearFilter()
			return m, nil
		}
		if !m.state.GoBack() {
			return m, tea.Quit
		}

	case key.Matches(msg, m.keys.Albums):
		m.clearFilter()
		if !m.state.SwitchToAlbums() {
			m.status = "no albums"
		}

	case key.Matches(msg, m.keys.Loop):
		m.state.ToggleLoop()
	case key.Matches(msg, m.keys.Pause):
		if !m.state.TogglePause() {
			m.status = "pause not supported by this player"
		}
	case key.Matches(msg, m.keys.Stop):
		m.state.StopPlayback()
	case key.Matches(msg, m.keys.Rename):
		if !m.state.RenameSelected() {
			m.status = "nothing to rename"
		}

	case key.Matches(msg, m.keys.Delete):
		switch m.state.Mode() {
		case browse.ModeLibrary, browse.ModeAlbumDetail:
			m.confirmDelete = true
		}

	case key.Matches(msg, m.keys.NewAlbum):
		if m.creator != nil && m.state.Mode() == browse.ModeLibrary && m.state.SelectedTrack() != nil {
			m.namingAlbum = true
			m.albumInput.SetValue("")
			m.albumInput.Focus()
		}

	case key.Matches(msg, m.keys.Filter):
		if m.state.Mode() != browse.ModeAlbums {
			m.filtering = true
			m.filterInput.SetValue("")
			m.filterInput.Focus()
		}
	}
	return m, nil
}

// applyFilter swaps the visible collection for the fuzzy-matched subset.
// The full list is kept aside so Back/Escape can restore it.
func (m *Model) applyFilter(query string) {
	if m.unfiltered == nil {
		m.unfiltered = m.state.Items()
	}
	if query == "" {
		m.state.ReplaceItems(m.unfiltered)
		return
	}
	titles := make([]string, len(m.unfiltered))
	for i, t := range m.unfiltered {
		titles[i] = t.DisplayTitle()
	}
	matches := fuzzy.Find(query, titles)
	filtered := make([]*domain.Track, 0, len(matches))
	for _, match := range matches {
		filtered = append(filtered, m.unfiltered[match.Index])
	}
	m.state.ReplaceItems(filtered)
}

func (m *Model) clearFilter() {
	if m.unfiltered == nil {
		return
	}
	m.state.ReplaceItems(m.unfiltered)
	m.unfiltered = nil
	m.filterInput.SetValue("")
}
