package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"ytune/internal/domain"
)

// playlistSuffix marks playlist manifest files in the cache root.
const playlistSuffix = ".plist.json"

// PlaylistManifest is the persisted form of an extracted playlist.
type PlaylistManifest struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Tracks []domain.Track `json:"tracks"`
}

// SavePlaylistManifest writes a playlist manifest into the cache root.
func (s *Store) SavePlaylistManifest(m *PlaylistManifest) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	name := SanitizeTitle(m.Title)
	if name == "" {
		name = m.ID
	}
	return os.WriteFile(filepath.Join(s.root, name+playlistSuffix), data, 0644)
}

// LoadPlaylistManifest reads one manifest file.
func LoadPlaylistManifest(path string) (*PlaylistManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m PlaylistManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListPlaylists returns summaries for every manifest in the cache root.
// Malformed manifests are skipped, not fatal.
func (s *Store) ListPlaylists() []domain.PlaylistSummary {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var out []domain.PlaylistSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), playlistSuffix) {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		m, err := LoadPlaylistManifest(path)
		if err != nil {
			s.logger.Debug("skipping malformed playlist manifest", "path", path, "error", err)
			continue
		}
		out = append(out, domain.PlaylistSummary{
			ID:    m.ID,
			Title: m.Title,
			Count: len(m.Tracks),
			Path:  path,
		})
	}
	return out
}
