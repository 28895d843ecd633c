package browse

import (
	"io"
	"log/slog"
	"testing"

	"ytune/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePlayer struct {
	playing  bool
	paused   bool
	pausable bool
	failNext bool
	played   []string
	stops    int
}

func (p *fakePlayer) Play(path string, volume float64) bool {
	if p.failNext {
		p.failNext = false
		return false
	}
	p.playing = true
	p.played = append(p.played, path)
	return true
}

func (p *fakePlayer) Stop() {
	p.stops++
	p.playing = false
}

func (p *fakePlayer) PauseResume() bool {
	if !p.pausable {
		return false
	}
	p.paused = !p.paused
	return true
}

func (p *fakePlayer) IsPlaying() bool     { return p.playing }
func (p *fakePlayer) IsPaused() bool      { return p.paused }
func (p *fakePlayer) SupportsPause() bool { return p.pausable }

type fakeLib struct {
	tracks  []*domain.Track
	found   map[string]string
	deleted []string
	renamed map[string]string
}

func (l *fakeLib) ListTracks() []*domain.Track { return l.tracks }

func (l *fakeLib) DeleteArtifact(t *domain.Track) {
	l.deleted = append(l.deleted, t.ID)
}

func (l *fakeLib) RenameToTitle(t *domain.Track) string {
	return l.renamed[t.ID]
}

func (l *fakeLib) FindExisting(id, titleHint string) string {
	return l.found[id]
}

type fakeShelf struct {
	albums  []domain.AlbumSummary
	tracks  map[string][]*domain.Track
	removed []string
}

func (s *fakeShelf) List() []domain.AlbumSummary { return s.albums }

func (s *fakeShelf) Tracks(albumPath string) []*domain.Track {
	return s.tracks[albumPath]
}

func (s *fakeShelf) RemoveTrack(albumPath, id string) error {
	s.removed = append(s.removed, id)
	kept := s.tracks[albumPath][:0]
	for _, t := range s.tracks[albumPath] {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tracks[albumPath] = kept
	return nil
}

func libTracks(n int) []*domain.Track {
	tracks := make([]*domain.Track, n)
	for i := range tracks {
		tracks[i] = &domain.Track{
			ID:    string(rune('a' + i)),
			Title: "Track " + string(rune('A'+i)),
			Path:  "/cache/" + string(rune('a'+i)) + ".mp3",
		}
	}
	return tracks
}

func newLibraryState(n int) (*State, *fakePlayer, *fakeLib) {
	lib := &fakeLib{tracks: libTracks(n), found: map[string]string{}, renamed: map[string]string{}}
	player := &fakePlayer{pausable: true}
	return NewLibrary(lib, &fakeShelf{}, player, -1, testLogger()), player, lib
}

func TestPlayItemStopsBeforeStarting(t *testing.T) {
	s, player, _ := newLibraryState(3)

	if !s.PlayItem(0) {
		t.Fatal("PlayItem(0) failed")
	}
	if s.PlayingIndex() != 0 {
		t.Fatalf("playing index = %d", s.PlayingIndex())
	}
	stops := player.stops
	if !s.PlayItem(1) {
		t.Fatal("PlayItem(1) failed")
	}
	if player.stops != stops+1 {
		t.Error("previous playback was not stopped first")
	}
	if s.PlayingIndex() != 1 {
		t.Errorf("playing index = %d, want 1", s.PlayingIndex())
	}
}

func TestPlayItemFailureClearsState(t *testing.T) {
	s, player, _ := newLibraryState(3)
	if !s.PlayItem(0) {
		t.Fatal("PlayItem(0) failed")
	}

	player.failNext = true
	if s.PlayItem(1) {
		t.Fatal("PlayItem(1) reported success")
	}
	if s.PlayingIndex() != -1 {
		t.Errorf("playing index = %d after failure, want -1", s.PlayingIndex())
	}
	// The next tick must not misread the failure as a completed track.
	s.Tick()
	if len(player.played) != 1 {
		t.Errorf("tick after failure started playback: %v", player.played)
	}
}

func TestPlayItemUnresolvedEntry(t *testing.T) {
	s, player, lib := newLibraryState(3)
	s.Items()[1].Path = ""

	if s.PlayItem(1) {
		t.Error("unresolvable entry played")
	}

	// A prefetcher landing the file makes the same entry playable.
	lib.found["b"] = "/cache/b.mp3"
	if !s.PlayItem(1) {
		t.Error("entry with freshly cached audio did not play")
	}
	if player.played[len(player.played)-1] != "/cache/b.mp3" {
		t.Errorf("played %v", player.played)
	}
}

func TestTickLoopAllAdvances(t *testing.T) {
	s, player, _ := newLibraryState(3)
	if !s.PlayItem(0) {
		t.Fatal("PlayItem failed")
	}
	s.ToggleLoop()
	s.ToggleLoop() // none -> single -> all
	if s.Loop() != domain.LoopAll {
		t.Fatalf("loop = %v", s.Loop())
	}

	player.playing = false // natural completion
	s.Tick()

	if s.PlayingIndex() != 1 {
		t.Errorf("playing index = %d, want 1", s.PlayingIndex())
	}
	if s.Selected() != 1 {
		t.Errorf("selected = %d, want 1", s.Selected())
	}
	if got := player.played[len(player.played)-1]; got != "/cache/b.mp3" {
		t.Errorf("advanced to %q", got)
	}

	// From the last index, loop all wraps to 0.
	s.PlayItem(2)
	player.playing = false
	s.Tick()
	if s.PlayingIndex() != 0 {
		t.Errorf("wrap: playing index = %d, want 0", s.PlayingIndex())
	}
}

func TestTickLoopSingleReplays(t *testing.T) {
	s, player, _ := newLibraryState(3)
	s.PlayItem(1)
	s.ToggleLoop() // single
	player.playing = false
	s.Tick()

	if s.PlayingIndex() != 1 {
		t.Errorf("playing index = %d, want 1", s.PlayingIndex())
	}
	if len(player.played) != 2 || player.played[1] != "/cache/b.mp3" {
		t.Errorf("played = %v", player.played)
	}
}

func TestTickLoopNoneClears(t *testing.T) {
	s, player, _ := newLibraryState(3)
	s.PlayItem(1)
	player.playing = false
	s.Tick()

	if s.PlayingIndex() != -1 {
		t.Errorf("playing index = %d, want -1", s.PlayingIndex())
	}
	if len(player.played) != 1 {
		t.Errorf("loop none restarted playback: %v", player.played)
	}
	// Idle ticks stay idle.
	s.Tick()
	if len(player.played) != 1 {
		t.Error("idle tick started playback")
	}
}

func TestUserStopIsNotCompletion(t *testing.T) {
	s, player, _ := newLibraryState(3)
	s.PlayItem(0)
	s.ToggleLoop()
	s.ToggleLoop() // all

	s.StopPlayback()
	s.Tick()

	if s.PlayingIndex() != -1 {
		t.Errorf("playing index = %d after user stop", s.PlayingIndex())
	}
	if len(player.played) != 1 {
		t.Errorf("user stop triggered loop advance: %v", player.played)
	}
}

func TestDeleteSelected(t *testing.T) {
	s, player, lib := newLibraryState(3)
	s.PlayItem(0)

	if !s.DeleteSelected() {
		t.Fatal("DeleteSelected failed")
	}
	if len(lib.deleted) != 1 || lib.deleted[0] != "a" {
		t.Errorf("deleted = %v", lib.deleted)
	}
	// Record persists as an unresolved entry.
	if len(s.Items()) != 3 {
		t.Errorf("items = %d, want 3", len(s.Items()))
	}
	if s.Items()[0].Path != "" || s.Items()[0].Duration != nil {
		t.Error("deleted record still resolved")
	}
	// Deleting the playing item stops playback.
	if s.PlayingIndex() != -1 || player.playing {
		t.Error("playback survived deleting the playing item")
	}

	if s.DeleteSelected() {
		t.Error("deleting an unresolved entry succeeded")
	}
}

func TestAlbumNavigation(t *testing.T) {
	albumTracks := []*domain.Track{
		{ID: "x", Title: "X", Path: "/cache/x.mp3", Kind: domain.KindAlbumTrack},
		{ID: "y", Title: "Y", Kind: domain.KindAlbumTrack},
	}
	shelf := &fakeShelf{
		albums: []domain.AlbumSummary{{Name: "Mix", TrackCount: 2, Path: "/albums/mix"}},
		tracks: map[string][]*domain.Track{"/albums/mix": albumTracks},
	}
	lib := &fakeLib{tracks: libTracks(2), found: map[string]string{}}
	player := &fakePlayer{pausable: true}
	s := NewLibrary(lib, shelf, player, -1, testLogger())

	s.PlayItem(1)

	if !s.SwitchToAlbums() {
		t.Fatal("SwitchToAlbums failed")
	}
	if s.Mode() != ModeAlbums {
		t.Fatalf("mode = %v", s.Mode())
	}
	// Navigation never disturbs playback.
	if s.PlayingIndex() != 1 || !player.playing {
		t.Error("entering albums reset playback")
	}

	if !s.EnterAlbum() {
		t.Fatal("EnterAlbum failed")
	}
	if s.Mode() != ModeAlbumDetail || len(s.Items()) != 2 {
		t.Fatalf("mode = %v items = %d", s.Mode(), len(s.Items()))
	}

	if !s.GoBack() {
		t.Fatal("GoBack from album detail failed")
	}
	if s.Mode() != ModeAlbums {
		t.Fatalf("mode = %v, want albums", s.Mode())
	}
	if !s.GoBack() {
		t.Fatal("GoBack from albums failed")
	}
	if s.Mode() != ModeLibrary {
		t.Fatalf("mode = %v, want library", s.Mode())
	}
	// Back at the root means quit.
	if s.GoBack() {
		t.Error("GoBack at root returned true")
	}
}

func TestSwitchToAlbumsEmptyIsNoop(t *testing.T) {
	lib := &fakeLib{tracks: libTracks(1), found: map[string]string{}}
	s := NewLibrary(lib, &fakeShelf{}, &fakePlayer{}, -1, testLogger())

	if s.SwitchToAlbums() {
		t.Error("switched to albums with none on disk")
	}
	if s.Mode() != ModeLibrary {
		t.Errorf("mode = %v", s.Mode())
	}
}

func TestEnterAlbumRequiresResolvableTrack(t *testing.T) {
	shelf := &fakeShelf{
		albums: []domain.AlbumSummary{{Name: "Ghost", TrackCount: 1, Path: "/albums/ghost"}},
		tracks: map[string][]*domain.Track{
			"/albums/ghost": {{ID: "z", Title: "Z"}},
		},
	}
	lib := &fakeLib{tracks: libTracks(1), found: map[string]string{}}
	s := NewLibrary(lib, shelf, &fakePlayer{}, -1, testLogger())
	s.SwitchToAlbums()

	if s.EnterAlbum() {
		t.Error("entered an album with no resolvable tracks")
	}
	if s.Mode() != ModeAlbums {
		t.Errorf("mode = %v", s.Mode())
	}
}

func TestRemoveSelectedFromAlbum(t *testing.T) {
	shelf := &fakeShelf{
		albums: []domain.AlbumSummary{{Name: "Mix", TrackCount: 2, Path: "/albums/mix"}},
		tracks: map[string][]*domain.Track{"/albums/mix": {
			{ID: "x", Title: "X", Path: "/cache/x.mp3"},
			{ID: "y", Title: "Y", Path: "/cache/y.mp3"},
		}},
	}
	lib := &fakeLib{tracks: libTracks(1), found: map[string]string{}}
	s := NewLibrary(lib, shelf, &fakePlayer{}, -1, testLogger())
	s.SwitchToAlbums()
	s.EnterAlbum()
	s.End() // select the last member

	if !s.RemoveSelectedFromAlbum() {
		t.Fatal("RemoveSelectedFromAlbum failed")
	}
	if len(shelf.removed) != 1 || shelf.removed[0] != "y" {
		t.Errorf("removed = %v", shelf.removed)
	}
	if len(s.Items()) != 1 {
		t.Errorf("items = %d, want 1", len(s.Items()))
	}
	// Selection clamps to the shrunken list.
	if s.Selected() != 0 {
		t.Errorf("selected = %d, want 0", s.Selected())
	}
}

func TestRenameSelected(t *testing.T) {
	s, _, lib := newLibraryState(2)
	lib.renamed["a"] = "/cache/Track A.mp3"
	s.PlayItem(0)

	if !s.RenameSelected() {
		t.Fatal("RenameSelected failed")
	}
	if s.Items()[0].Path != "/cache/Track A.mp3" {
		t.Errorf("path = %q", s.Items()[0].Path)
	}
}

func TestTickAfterCollectionSwapStaysIdle(t *testing.T) {
	s, player, _ := newLibraryState(4)
	s.PlayItem(2)
	s.ToggleLoop()
	s.ToggleLoop() // all

	s.ReplaceItems(s.Items()[:1])
	player.playing = false // the swapped-out track finishes
	s.Tick()

	if s.PlayingIndex() != -1 {
		t.Errorf("playing index = %d after completion in a swapped collection", s.PlayingIndex())
	}
	if len(player.played) != 1 {
		t.Errorf("loop advanced into the filtered view: %v", player.played)
	}
}

func TestReplaceItemsClearsPlayingIndex(t *testing.T) {
	s, _, _ := newLibraryState(4)
	s.PlayItem(2)

	s.ReplaceItems(s.Items()[:1])

	if s.PlayingIndex() != -1 {
		t.Errorf("playing index = %d after collection swap", s.PlayingIndex())
	}
	if s.Selected() != 0 {
		t.Errorf("selected = %d", s.Selected())
	}
}

func TestMoveClampsAndScrolls(t *testing.T) {
	s, _, _ := newLibraryState(10)
	s.SetRows(3)

	s.Move(-1)
	if s.Selected() != 0 {
		t.Errorf("selected = %d, want clamp at 0", s.Selected())
	}
	for i := 0; i < 20; i++ {
		s.Move(1)
	}
	if s.Selected() != 9 {
		t.Errorf("selected = %d, want clamp at 9", s.Selected())
	}
	if s.Offset() != 7 {
		t.Errorf("offset = %d, want 7", s.Offset())
	}
	s.Home()
	if s.Selected() != 0 || s.Offset() != 0 {
		t.Errorf("Home: selected %d offset %d", s.Selected(), s.Offset())
	}
}
