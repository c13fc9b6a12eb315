package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/formatter"
	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BrowseView ViewState = iota
	PlaylistsView
	SearchView
	CreateView
)

const (
	seekStep   = 10.0
	volumeStep = 5
	chromeRows = 12
)

type tab struct {
	label string
	view  models.BrowseView
}

var tabs = []tab{
	{"Home", models.ViewHome},
	{"Artists", models.ViewArtists},
	{"Trending", models.ViewTrending},
	{"Playlists", models.ViewPlaylist},
	{"About", models.ViewAbout},
}

// Session is the intent surface of a running session loop.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Navigate(bc models.BrowseContext) error
	Retry() error
	SelectTrack(t models.Track) error
	Next() error
	Prev() error
	TogglePlay() error
	Seek(percent float64) error
	SetVolume(v int) error
	ToggleShuffle() error
	CycleRepeat() error
	SetExpanded(expanded bool) error
}

// Library is the part of the library store the TUI edits directly.
type Library interface {
	Playlists() []models.Playlist
	History() []string
	CreatePlaylist(ctx context.Context, name string) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) (bool, error)
	ToggleTrack(ctx context.Context, playlistID string, track models.Track) (bool, error)
	RemoveSearchTerm(ctx context.Context, term string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	session      Session
	library      Library
	logger       *log.Logger
	snaps        <-chan session.Snapshot
	unsubscribe  func()
	snap         session.Snapshot
	queueKey     string
	tab          int
	trackList    list.Model
	playlistList list.Model
	input        textinput.Model
	historyIdx   int
	status       string
	err          error
	width        int
	height       int
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model subscribed to s.
func NewModel(ctx context.Context, s Session, lib Library, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}

	snaps, unsubscribe := s.Subscribe()

	trackList := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	trackList.SetShowHelp(false)
	trackList.SetFilteringEnabled(false)
	trackList.Title = tabs[0].label

	playlistList := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	playlistList.SetShowHelp(false)
	playlistList.SetFilteringEnabled(false)
	playlistList.Title = "Playlists"

	input := textinput.New()
	input.CharLimit = 300

	return &Model{
		ctx:          ctx,
		view:         BrowseView,
		session:      s,
		library:      lib,
		logger:       logger,
		snaps:        snaps,
		unsubscribe:  unsubscribe,
		snap:         s.Snapshot(),
		trackList:    trackList,
		playlistList: playlistList,
		input:        input,
		historyIdx:   -1,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init opens the home tab and starts listening for snapshots.
func (m *Model) Init() tea.Cmd {
	home := models.BrowseContext{View: models.ViewHome}
	return tea.Batch(m.waitForSnapshot(), func() tea.Msg {
		if err := m.session.Navigate(home); err != nil {
			return libraryResultMsg("", err)
		}
		return nil
	})
}

// Close releases the snapshot subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := max(msg.Height-chromeRows, 5)
		m.trackList.SetSize(msg.Width-4, h)
		m.playlistList.SetSize(msg.Width-4, h)
		m.help.Width = msg.Width
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgSnapshot:
			m.snap = msg.data.(session.Snapshot)
			return m, tea.Batch(m.syncTracks(), m.waitForSnapshot())
		case MsgSessionClosed:
			return m, tea.Quit
		case MsgLibraryResult:
			res := msg.data.(libraryResult)
			m.err = res.err
			if res.err == nil {
				m.status = res.status
			} else {
				m.logger.Error("library update failed", "error", res.err)
			}
			return m, m.syncPlaylists()
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case CreateView:
			return m.handleCreateKeys(msg)
		case PlaylistsView:
			return m.handlePlaylistKeys(msg)
		default:
			return m.handleBrowseKeys(msg)
		}
	}

	return m.updateLists(msg)
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snaps
		if !ok {
			return sessionClosedMsg()
		}
		return snapshotMsg(snap)
	}
}

// syncTracks rebuilds the track list when the queue or current track changed.
func (m *Model) syncTracks() tea.Cmd {
	ids := make([]string, 0, len(m.snap.Queue)+1)
	ids = append(ids, m.snap.CurrentTrackID)
	for _, t := range m.snap.Queue {
		ids = append(ids, t.ID)
	}
	k := strings.Join(ids, "\x00")
	if k == m.queueKey {
		return nil
	}
	m.queueKey = k
	m.trackList.Title = m.contextTitle()
	return m.trackList.SetItems(trackItems(m.snap.Queue, m.snap.CurrentTrackID))
}

func (m *Model) syncPlaylists() tea.Cmd {
	return m.playlistList.SetItems(playlistItems(m.library.Playlists()))
}

func (m *Model) contextTitle() string {
	bc := m.snap.Context
	if bc.IsSearch() {
		return fmt.Sprintf("Search: %s", bc.Query)
	}
	if bc.IsPlaylist() {
		for _, p := range m.library.Playlists() {
			if p.ID == bc.PlaylistID {
				return p.Name
			}
		}
	}
	for _, t := range tabs {
		if t.view == bc.View {
			return t.label
		}
	}
	return tabs[0].label
}

// intent records a failed send so the status line shows it.
func (m *Model) intent(err error) {
	if err != nil {
		m.err = err
		m.logger.Error("session intent failed", "error", err)
	}
}

func (m *Model) openTab(i int) tea.Cmd {
	m.tab = (i + len(tabs)) % len(tabs)
	m.err = nil
	m.status = ""

	v := tabs[m.tab].view
	m.intent(m.session.Navigate(models.BrowseContext{View: v}))
	if v == models.ViewPlaylist {
		m.view = PlaylistsView
		return m.syncPlaylists()
	}
	m.view = BrowseView
	return nil
}

// handleTransportKeys handles the keys shared by the list views. It reports whether msg was consumed.
func (m *Model) handleTransportKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return true, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		return true, m.openTab(m.tab + 1)
	case key.Matches(msg, m.keys.prevTab):
		return true, m.openTab(m.tab - 1)
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.historyIdx = -1
		m.input.Placeholder = "Search songs or artists"
		m.input.SetValue("")
		return true, m.input.Focus()
	case key.Matches(msg, m.keys.play):
		m.intent(m.session.TogglePlay())
	case key.Matches(msg, m.keys.next):
		m.intent(m.session.Next())
	case key.Matches(msg, m.keys.prev):
		m.intent(m.session.Prev())
	case key.Matches(msg, m.keys.seekBack):
		m.intent(m.session.Seek(max(0, m.snap.Progress()-seekStep)))
	case key.Matches(msg, m.keys.seekAhead):
		m.intent(m.session.Seek(min(100, m.snap.Progress()+seekStep)))
	case key.Matches(msg, m.keys.volUp):
		m.intent(m.session.SetVolume(m.snap.Volume + volumeStep))
	case key.Matches(msg, m.keys.volDown):
		m.intent(m.session.SetVolume(m.snap.Volume - volumeStep))
	case key.Matches(msg, m.keys.shuffle):
		m.intent(m.session.ToggleShuffle())
	case key.Matches(msg, m.keys.repeat):
		m.intent(m.session.CycleRepeat())
	case key.Matches(msg, m.keys.expand):
		m.intent(m.session.SetExpanded(!m.snap.IsExpanded))
	case key.Matches(msg, m.keys.retry):
		m.err = nil
		m.intent(m.session.Retry())
	default:
		return false, nil
	}
	return true, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if ok, cmd := m.handleTransportKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.intent(m.session.SelectTrack(item.track))
		}
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		return m, m.toggleFavorite()
	case key.Matches(msg, m.keys.back):
		if m.snap.IsExpanded {
			m.intent(m.session.SetExpanded(false))
			return m, nil
		}
		if m.snap.Context.IsPlaylist() {
			return m, m.openTab(m.tab)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if ok, cmd := m.handleTransportKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.view = BrowseView
			m.intent(m.session.Navigate(models.BrowseContext{View: models.ViewPlaylist, PlaylistID: item.playlist.ID}))
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		m.view = CreateView
		m.input.Placeholder = "Playlist name"
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.deletePlaylist(item.playlist)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	history := m.library.History()

	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.view = BrowseView
		return m, nil
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		m.input.Blur()
		m.view = BrowseView
		m.err = nil
		m.intent(m.session.Navigate(models.BrowseContext{View: models.ViewHome, Query: q}))
		return m, nil
	case "up":
		if len(history) > 0 {
			m.historyIdx = min(m.historyIdx+1, len(history)-1)
			m.input.SetValue(history[m.historyIdx])
			m.input.CursorEnd()
		}
		return m, nil
	case "down":
		if m.historyIdx > 0 {
			m.historyIdx--
			m.input.SetValue(history[m.historyIdx])
		} else {
			m.historyIdx = -1
			m.input.SetValue("")
		}
		m.input.CursorEnd()
		return m, nil
	case "ctrl+d":
		if m.historyIdx >= 0 && m.historyIdx < len(history) {
			term := history[m.historyIdx]
			m.historyIdx = -1
			m.input.SetValue("")
			return m, m.removeSearchTerm(term)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.view = PlaylistsView
		return m, nil
	case "enter":
		name := m.input.Value()
		m.input.Blur()
		m.view = PlaylistsView
		return m, m.createPlaylist(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case BrowseView:
		m.trackList, cmd = m.trackList.Update(msg)
	case PlaylistsView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case SearchView, CreateView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// favoriteTarget is the highlighted track, falling back to the current one.
func (m *Model) favoriteTarget() (models.Track, bool) {
	if item, ok := m.trackList.SelectedItem().(trackItem); ok {
		return item.track, true
	}
	if m.snap.Current != nil {
		return *m.snap.Current, true
	}
	return models.Track{}, false
}

func (m *Model) toggleFavorite() tea.Cmd {
	track, ok := m.favoriteTarget()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		added, err := m.library.ToggleTrack(m.ctx, library.DefaultPlaylistID, track)
		verb := "removed from"
		if added {
			verb = "added to"
		}
		return libraryResultMsg(fmt.Sprintf("%q %s %s", track.Title, verb, library.DefaultPlaylistName), err)
	}
}

func (m *Model) createPlaylist(name string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.library.CreatePlaylist(m.ctx, name)
		return libraryResultMsg(fmt.Sprintf("created %q", p.Name), err)
	}
}

func (m *Model) deletePlaylist(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.library.DeletePlaylist(m.ctx, p.ID)
		if !deleted && err == nil {
			return libraryResultMsg(fmt.Sprintf("%q cannot be deleted", p.Name), nil)
		}
		return libraryResultMsg(fmt.Sprintf("deleted %q", p.Name), err)
	}
}

func (m *Model) removeSearchTerm(term string) tea.Cmd {
	return func() tea.Msg {
		return libraryResultMsg(fmt.Sprintf("forgot %q", term), m.library.RemoveSearchTerm(m.ctx, term))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderTabs())
	sb.WriteString("\n\n")

	switch m.view {
	case PlaylistsView:
		sb.WriteString(m.playlistList.View())
	case SearchView:
		sb.WriteString(m.renderSearch())
	case CreateView:
		sb.WriteString(styles.title.Render("New playlist"))
		sb.WriteString("\n")
		sb.WriteString(m.input.View())
	default:
		sb.WriteString(m.renderBrowse())
	}

	sb.WriteString("\n\n")
	sb.WriteString(m.renderPlayer())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return sb.String()
}

func (m *Model) helpKeys() []key.Binding {
	switch m.view {
	case SearchView, CreateView:
		return []key.Binding{m.keys.enter, m.keys.back}
	case PlaylistsView:
		return []key.Binding{m.keys.enter, m.keys.create, m.keys.remove, m.keys.nextTab, m.keys.quit}
	default:
		return []key.Binding{m.keys.enter, m.keys.play, m.keys.next, m.keys.prev, m.keys.favorite, m.keys.search, m.keys.quit}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, len(tabs))
	for i, t := range tabs {
		if i == m.tab && !m.snap.Context.IsSearch() {
			parts[i] = styles.active.Render(t.label)
		} else {
			parts[i] = styles.tab.Render(t.label)
		}
	}
	out := strings.Join(parts, " ")
	if m.snap.Context.IsSearch() {
		out += "  " + styles.active.Render("Search: "+m.snap.Context.Query)
	}
	return out
}

func (m *Model) renderBrowse() string {
	switch {
	case m.snap.Loading:
		return styles.help.Render("Loading...")
	case m.snap.LastError != "":
		return styles.err.Render(m.snap.LastError) + "\n" + styles.help.Render("press R to retry")
	case m.snap.Context.View == models.ViewAbout && !m.snap.Context.IsSearch():
		return styles.title.Render("limuzic") + "\nA terminal music player. Browse, search and keep playlists of your favorite tracks."
	case len(m.snap.Queue) == 0:
		return styles.help.Render("No tracks")
	default:
		return m.trackList.View()
	}
}

func (m *Model) renderSearch() string {
	var sb strings.Builder
	sb.WriteString(styles.title.Render("Search"))
	sb.WriteString("\n")
	sb.WriteString(m.input.View())

	history := m.library.History()
	if len(history) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(styles.help.Render("Recent searches (↑/↓ to pick, ctrl+d to forget)"))
		for i, term := range history {
			marker := "  "
			if i == m.historyIdx {
				marker = "> "
			}
			sb.WriteString("\n" + marker + term)
		}
	}
	return sb.String()
}

// renderProgressBar draws a fixed-width bar for position within duration.
func renderProgressBar(position, duration float64, width int) string {
	filled := 0
	if duration > 0 {
		filled = int(float64(width) * min(1, max(0, position/duration)))
	}
	return styles.bar.Render(strings.Repeat("━", filled)) + styles.barEmpty.Render(strings.Repeat("─", width-filled))
}

func (m *Model) renderPlayer() string {
	snap := m.snap
	if snap.CurrentTrackID == "" {
		return styles.player.Render(styles.help.Render("Nothing playing"))
	}

	title := fmt.Sprintf("Unknown track (%s)", snap.CurrentTrackID)
	if snap.Current != nil {
		title = fmt.Sprintf("%s · %s", snap.Current.Title, snap.Current.Artist)
	}

	state := "❚❚ paused"
	if snap.IsPlaying {
		state = "▶ playing"
	}
	if snap.Phase == session.PhaseLoading {
		state = "… loading"
	}

	width := max(m.width-24, 20)
	progress := fmt.Sprintf("%s %s %s",
		formatter.FormatSeconds(snap.Position),
		renderProgressBar(snap.Position, snap.Duration, width),
		formatter.FormatSeconds(snap.Duration),
	)

	flags := fmt.Sprintf("%s  repeat:%s  vol:%d%%", state, snap.Repeat, snap.Volume)
	if snap.Shuffle {
		flags += "  shuffle"
	}

	lines := []string{styles.ok.Render(title), progress, styles.help.Render(flags)}
	if snap.IsExpanded {
		if snap.Current != nil && snap.Current.Album != "" {
			lines = append(lines, "Album: "+snap.Current.Album)
		}
		if snap.UpNext != nil {
			lines = append(lines, fmt.Sprintf("Up next: %s · %s", snap.UpNext.Title, snap.UpNext.Artist))
		}
	}
	return styles.player.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.status != "" {
		return styles.warn.Render(m.status)
	}
	return ""
}
