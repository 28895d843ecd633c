package cache

import (
	"fmt"
	"sort"
	"strings"

	"ytune/internal/domain"
)

// Shelf presents albums and saved playlist manifests as one browsable
// collection. Playlist manifests are read-only members: their tracks play
// when cached but their membership cannot be edited.
type Shelf struct {
	albums *Albums
	store  *Store
}

func NewShelf(albums *Albums, store *Store) *Shelf {
	return &Shelf{albums: albums, store: store}
}

// List returns albums first, then saved playlists, each group sorted
// case-insensitively by name.
func (s *Shelf) List() []domain.AlbumSummary {
	out := s.albums.List()
	playlists := s.store.ListPlaylists()
	sort.Slice(playlists, func(i, j int) bool {
		return strings.ToLower(playlists[i].Title) < strings.ToLower(playlists[j].Title)
	})
	for _, p := range playlists {
		name := p.Title
		if name == "" {
			name = p.ID
		}
		out = append(out, domain.AlbumSummary{
			Name:        name,
			Description: "playlist",
			TrackCount:  p.Count,
			Path:        p.Path,
		})
	}
	return out
}

// Tracks loads the members behind a summary path, resolving each against
// the cache.
func (s *Shelf) Tracks(path string) []*domain.Track {
	if !strings.HasSuffix(path, playlistSuffix) {
		return s.albums.Tracks(path)
	}
	m, err := LoadPlaylistManifest(path)
	if err != nil {
		return nil
	}
	out := make([]*domain.Track, 0, len(m.Tracks))
	for i := range m.Tracks {
		t := m.Tracks[i]
		t.Kind = domain.KindPlaylist
		if t.ID != "" {
			t.Path = s.store.FindExisting(t.ID, t.Title)
		}
		out = append(out, &t)
	}
	return out
}

// RemoveTrack edits album membership. Playlist manifests mirror their
// source and are not editable here.
func (s *Shelf) RemoveTrack(path, id string) error {
	if strings.HasSuffix(path, playlistSuffix) {
		return fmt.Errorf("playlist members are fixed")
	}
	return s.albums.RemoveTrack(path, id)
}
