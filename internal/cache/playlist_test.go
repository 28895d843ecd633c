package cache

import (
	"path/filepath"
	"testing"

	"ytune/internal/domain"
)

func TestPlaylistManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, false, testLogger())

	m := &PlaylistManifest{
		ID:    "PLabc",
		Title: "Road Mix",
		Tracks: []domain.Track{
			{ID: "aaa", Title: "First", Kind: domain.KindPlaylist},
			{ID: "bbb", Title: "Second", Kind: domain.KindPlaylist},
		},
	}
	if err := s.SavePlaylistManifest(m); err != nil {
		t.Fatal(err)
	}

	lists := s.ListPlaylists()
	if len(lists) != 1 {
		t.Fatalf("ListPlaylists = %d entries, want 1", len(lists))
	}
	if lists[0].ID != "PLabc" || lists[0].Title != "Road Mix" || lists[0].Count != 2 {
		t.Errorf("summary = %+v", lists[0])
	}

	got, err := LoadPlaylistManifest(lists[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != 2 || got.Tracks[0].ID != "aaa" {
		t.Errorf("manifest round trip = %+v", got)
	}
}

func TestListPlaylistsSkipsMalformed(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, false, testLogger())
	writeFile(t, filepath.Join(root, "broken.plist.json"), []byte("{not json"))
	if err := s.SavePlaylistManifest(&PlaylistManifest{ID: "PLok", Title: "Fine"}); err != nil {
		t.Fatal(err)
	}

	lists := s.ListPlaylists()
	if len(lists) != 1 || lists[0].ID != "PLok" {
		t.Errorf("ListPlaylists = %+v", lists)
	}
}

func TestPlaylistManifestsInvisibleToTrackListing(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, false, testLogger())
	if err := s.SavePlaylistManifest(&PlaylistManifest{
		ID:     "PLabc",
		Title:  "Road Mix",
		Tracks: []domain.Track{{ID: "aaa"}},
	}); err != nil {
		t.Fatal(err)
	}
	if got := s.ListTracks(); len(got) != 0 {
		t.Errorf("playlist manifest leaked into track listing: %+v", got)
	}
}
