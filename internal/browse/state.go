package browse

import (
	"context"
	"log/slog"

	"ytune/internal/domain"
)

// Mode identifies which collection the session is navigating.
type Mode int

const (
	ModeLibrary Mode = iota
	ModeAlbums
	ModeAlbumDetail
	ModePlaylist
)

func (m Mode) String() string {
	switch m {
	case ModeLibrary:
		return "library"
	case ModeAlbums:
		return "albums"
	case ModeAlbumDetail:
		return "album"
	case ModePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

type library interface {
	ListTracks() []*domain.Track
	DeleteArtifact(t *domain.Track)
	RenameToTitle(t *domain.Track) string
	FindExisting(id, titleHint string) string
}

type albumShelf interface {
	List() []domain.AlbumSummary
	Tracks(albumPath string) []*domain.Track
	RemoveTrack(albumPath, id string) error
}

type trackResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type cursorSink interface {
	SetIndex(idx int)
}

type audioPlayer interface {
	Play(path string, volume float64) bool
	Stop()
	PauseResume() bool
	IsPlaying() bool
	IsPaused() bool
	SupportsPause() bool
}

// State is the browse session state machine. All mutations happen on the
// foreground loop; the only concurrent writer anywhere is the prefetcher
// annotating entry paths, which State re-checks at play time anyway.
type State struct {
	lib    library
	shelf  albumShelf
	player audioPlayer
	res    trackResolver
	sink   cursorSink
	volume float64
	logger *slog.Logger

	mode   Mode
	items  []*domain.Track
	albums []domain.AlbumSummary

	selected int
	offset   int
	rows     int

	playingIdx  int
	playingFile string
	loop        domain.LoopMode

	albumPath string
	albumName string
}

// NewLibrary opens a session over the cached library.
func NewLibrary(lib library, shelf albumShelf, player audioPlayer, volume float64, logger *slog.Logger) *State {
	s := newState(lib, shelf, player, volume, logger)
	s.mode = ModeLibrary
	s.items = lib.ListTracks()
	return s
}

// NewPlaylist opens a session over a fixed entry list, typically playlist
// entries being filled in by a prefetcher.
func NewPlaylist(entries []*domain.Track, lib library, player audioPlayer, volume float64, logger *slog.Logger) *State {
	s := newState(lib, nil, player, volume, logger)
	s.mode = ModePlaylist
	s.items = entries
	return s
}

func newState(lib library, shelf albumShelf, player audioPlayer, volume float64, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		lib:        lib,
		shelf:      shelf,
		player:     player,
		volume:     volume,
		logger:     logger,
		rows:       20,
		playingIdx: -1,
	}
}

// SetResolver enables on-demand resolution when playing an entry whose
// audio is not cached yet. The download blocks the foreground loop, the same
// way a direct URL play does.
func (s *State) SetResolver(res trackResolver) { s.res = res }

// SetPrefetchCursor points the background prefetcher at whatever is playing,
// so its window stays ahead of playback.
func (s *State) SetPrefetchCursor(sink cursorSink) { s.sink = sink }

func (s *State) Mode() Mode                    { return s.mode }
func (s *State) Items() []*domain.Track        { return s.items }
func (s *State) Albums() []domain.AlbumSummary { return s.albums }
func (s *State) Selected() int                 { return s.selected }
func (s *State) Offset() int                   { return s.offset }
func (s *State) PlayingIndex() int             { return s.playingIdx }
func (s *State) Loop() domain.LoopMode         { return s.loop }
func (s *State) AlbumName() string             { return s.albumName }
func (s *State) Paused() bool                  { return s.player.IsPaused() }
func (s *State) CanPause() bool                { return s.player.SupportsPause() }

// SetRows tells the state how many list rows are visible, so selection
// moves keep the cursor on screen.
func (s *State) SetRows(n int) {
	if n < 1 {
		n = 1
	}
	s.rows = n
	s.ensureVisible(s.selected)
}

func (s *State) collectionLen() int {
	if s.mode == ModeAlbums {
		return len(s.albums)
	}
	return len(s.items)
}

func (s *State) ensureVisible(idx int) {
	if idx < s.offset {
		s.offset = idx
	}
	if idx >= s.offset+s.rows {
		s.offset = idx - s.rows + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

func (s *State) clampSelection() {
	n := s.collectionLen()
	if s.selected >= n {
		s.selected = n - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
	s.ensureVisible(s.selected)
}

// Move shifts selection by delta rows, clamped to the collection bounds.
func (s *State) Move(delta int) {
	n := s.collectionLen()
	if n == 0 {
		return
	}
	s.selected += delta
	if s.selected < 0 {
		s.selected = 0
	}
	if s.selected >= n {
		s.selected = n - 1
	}
	s.ensureVisible(s.selected)
}

func (s *State) Page(dir int) { s.Move(dir * s.rows) }

func (s *State) Home() {
	s.selected = 0
	s.offset = 0
}

func (s *State) End() {
	n := s.collectionLen()
	if n == 0 {
		return
	}
	s.selected = n - 1
	s.ensureVisible(s.selected)
}

// PlayItem stops any current playback and starts the track at index.
// The playing index only moves when the new playback actually started;
// a failed start leaves no stale playing state behind.
func (s *State) PlayItem(index int) bool {
	if s.mode == ModeAlbums {
		return false
	}
	if index < 0 || index >= len(s.items) {
		return false
	}
	t := s.items[index]
	path := t.Path
	if path == "" {
		// The prefetcher may have landed the file without updating this
		// entry yet.
		path = s.lib.FindExisting(t.ID, t.Title)
		if path != "" {
			t.Path = path
		}
	}
	if path == "" && s.res != nil && t.WebpageURL != "" {
		resolved, err := s.res.Resolve(context.Background(), t.WebpageURL)
		if err != nil {
			s.logger.Warn("on-demand resolve failed", "id", t.ID, "error", err)
		} else {
			path = resolved
			t.Path = resolved
		}
	}
	s.player.Stop()
	if path == "" || !s.player.Play(path, s.volume) {
		s.playingIdx = -1
		s.playingFile = ""
		return false
	}
	s.playingIdx = index
	s.playingFile = path
	if s.sink != nil {
		s.sink.SetIndex(index)
	}
	s.logger.Debug("playing", "index", index, "file", path)
	return true
}

func (s *State) PlaySelected() bool { return s.PlayItem(s.selected) }

// SelectedTrack returns the selected track record, nil in albums mode or on
// an empty collection.
func (s *State) SelectedTrack() *domain.Track {
	if s.mode == ModeAlbums || s.selected >= len(s.items) {
		return nil
	}
	return s.items[s.selected]
}

// Tick is the per-refresh poll. A playing-file marker with a player that no
// longer reports playing means the track finished on its own, which is when
// loop mode applies.
func (s *State) Tick() {
	if s.playingFile == "" || s.player.IsPlaying() {
		return
	}
	finished := s.playingIdx
	s.playingFile = ""
	if finished < 0 {
		return
	}
	switch s.loop {
	case domain.LoopSingle:
		s.PlayItem(finished)
	case domain.LoopAll:
		if len(s.items) == 0 {
			s.playingIdx = -1
			return
		}
		next := (finished + 1) % len(s.items)
		s.selected = next
		s.ensureVisible(next)
		s.PlayItem(next)
	default:
		s.playingIdx = -1
	}
}

func (s *State) ToggleLoop() { s.loop = s.loop.Next() }

func (s *State) TogglePause() bool { return s.player.PauseResume() }

func (s *State) StopPlayback() {
	s.player.Stop()
	s.playingIdx = -1
	s.playingFile = ""
}

// SwitchToAlbums moves library -> albums. With no albums on disk this is a
// no-op. Playback carries across the transition untouched.
func (s *State) SwitchToAlbums() bool {
	if s.mode != ModeLibrary || s.shelf == nil {
		return false
	}
	albums := s.shelf.List()
	if len(albums) == 0 {
		return false
	}
	s.mode = ModeAlbums
	s.albums = albums
	s.selected = 0
	s.offset = 0
	return true
}

// EnterAlbum opens the selected album, if it has at least one track whose
// audio is actually present.
func (s *State) EnterAlbum() bool {
	if s.mode != ModeAlbums || s.selected >= len(s.albums) {
		return false
	}
	a := s.albums[s.selected]
	tracks := s.shelf.Tracks(a.Path)
	resolvable := false
	for _, t := range tracks {
		if t.Path != "" {
			resolvable = true
			break
		}
	}
	if !resolvable {
		return false
	}
	s.mode = ModeAlbumDetail
	s.items = tracks
	s.albumPath = a.Path
	s.albumName = a.Name
	s.selected = 0
	s.offset = 0
	return true
}

// GoBack walks the mode hierarchy one level up. Returns false at the root,
// which callers treat as a quit request.
func (s *State) GoBack() bool {
	switch s.mode {
	case ModeAlbumDetail:
		s.mode = ModeAlbums
		s.albums = s.shelf.List()
		s.albumPath = ""
		s.albumName = ""
		s.clampSelection()
		return true
	case ModeAlbums:
		s.mode = ModeLibrary
		s.items = s.lib.ListTracks()
		s.clampSelection()
		return true
	case ModePlaylist:
		s.mode = ModeLibrary
		s.items = s.lib.ListTracks()
		s.clampSelection()
		return true
	default:
		return false
	}
}

// DeleteSelected removes the selected library track's on-disk artifact. The
// record stays in the view as an unresolved entry.
func (s *State) DeleteSelected() bool {
	if s.mode != ModeLibrary || s.selected >= len(s.items) {
		return false
	}
	t := s.items[s.selected]
	if t.Path == "" {
		return false
	}
	if s.playingIdx == s.selected {
		s.StopPlayback()
	}
	s.lib.DeleteArtifact(t)
	t.Path = ""
	t.Duration = nil
	return true
}

// RemoveSelectedFromAlbum drops only the album membership; the cached audio
// stays on disk.
func (s *State) RemoveSelectedFromAlbum() bool {
	if s.mode != ModeAlbumDetail || s.selected >= len(s.items) {
		return false
	}
	t := s.items[s.selected]
	if err := s.shelf.RemoveTrack(s.albumPath, t.ID); err != nil {
		s.logger.Warn("album remove failed", "album", s.albumName, "id", t.ID, "error", err)
		return false
	}
	if s.playingIdx == s.selected {
		s.playingIdx = -1
	}
	s.items = s.shelf.Tracks(s.albumPath)
	s.clampSelection()
	return true
}

// RenameSelected renames the artifact file to its sanitized display title.
func (s *State) RenameSelected() bool {
	if s.mode != ModeLibrary || s.selected >= len(s.items) {
		return false
	}
	t := s.items[s.selected]
	newPath := s.lib.RenameToTitle(t)
	if newPath == "" {
		return false
	}
	if s.playingIdx == s.selected {
		s.playingFile = newPath
	}
	t.Path = newPath
	return true
}

// ReplaceItems swaps the visible collection in place, used by the TUI's
// filter view. The playing index and the completion marker are cleared
// because indices no longer line up with the playing track; whatever is
// playing keeps playing but no longer participates in loop handling.
func (s *State) ReplaceItems(items []*domain.Track) {
	s.items = items
	s.playingIdx = -1
	s.playingFile = ""
	s.selected = 0
	s.offset = 0
}
