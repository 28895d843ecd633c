package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ytune/internal/domain"
)

const albumSuffix = ".album.json"

var albumNameRe = regexp.MustCompile(`[^\w\s-]`)

// albumFile is the persisted album manifest shape.
type albumFile struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Tracks      []domain.AlbumTrack `json:"tracks"`
}

// Albums manages user-created albums, one manifest file per album under
// <cache_root>/albums.
type Albums struct {
	dir    string
	store  *Store
	logger *slog.Logger
}

// NewAlbums creates the album manager for a store's cache root.
func NewAlbums(store *Store, logger *slog.Logger) *Albums {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(store.Root(), "albums")
	os.MkdirAll(dir, 0755)
	return &Albums{dir: dir, store: store, logger: logger}
}

func sanitizeAlbumName(name string) string {
	s := albumNameRe.ReplaceAllString(name, "")
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// Create writes a new album manifest. Fails if the name is empty or an album
// with the same sanitized name already exists.
func (a *Albums) Create(name, description string, tracks []domain.AlbumTrack) error {
	if name == "" {
		return fmt.Errorf("album name is empty")
	}
	path := filepath.Join(a.dir, sanitizeAlbumName(name)+albumSuffix)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("album %q already exists", name)
	}
	if tracks == nil {
		tracks = []domain.AlbumTrack{}
	}
	return a.write(path, &albumFile{Name: name, Description: description, Tracks: tracks})
}

func (a *Albums) read(path string) (*albumFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f albumFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (a *Albums) write(path string, f *albumFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// List returns album summaries sorted case-insensitively by name.
// Malformed manifests are skipped.
func (a *Albums) List() []domain.AlbumSummary {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil
	}
	var out []domain.AlbumSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), albumSuffix) {
			continue
		}
		path := filepath.Join(a.dir, e.Name())
		f, err := a.read(path)
		if err != nil {
			a.logger.Debug("skipping malformed album", "path", path, "error", err)
			continue
		}
		name := f.Name
		if name == "" {
			name = strings.TrimSuffix(e.Name(), albumSuffix)
		}
		out = append(out, domain.AlbumSummary{
			Name:        name,
			Description: f.Description,
			TrackCount:  len(f.Tracks),
			Path:        path,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Tracks loads an album's members, resolving each against the cache and
// sorting by the explicit order field.
func (a *Albums) Tracks(albumPath string) []*domain.Track {
	f, err := a.read(albumPath)
	if err != nil {
		return nil
	}
	tracks := make([]domain.AlbumTrack, len(f.Tracks))
	copy(tracks, f.Tracks)
	for i := range tracks {
		if tracks[i].Order == 0 {
			tracks[i].Order = i + 1
		}
	}
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Order < tracks[j].Order })

	out := make([]*domain.Track, 0, len(tracks))
	for _, at := range tracks {
		t := at.Track
		t.Kind = domain.KindAlbumTrack
		if t.ID != "" {
			t.Path = a.store.FindExisting(t.ID, t.Title)
		}
		out = append(out, &t)
	}
	return out
}

// AddTrack appends a track to an album. A duplicate id is rejected and the
// album is left unchanged.
func (a *Albums) AddTrack(albumPath string, track domain.AlbumTrack) error {
	f, err := a.read(albumPath)
	if err != nil {
		return err
	}
	for _, existing := range f.Tracks {
		if existing.ID != "" && existing.ID == track.ID {
			return fmt.Errorf("track %s already in album", track.ID)
		}
	}
	if track.Order == 0 {
		track.Order = len(f.Tracks) + 1
	}
	f.Tracks = append(f.Tracks, track)
	return a.write(albumPath, f)
}

// RemoveTrack removes a track by id. Removing a nonexistent id is an error
// and leaves the album unchanged.
func (a *Albums) RemoveTrack(albumPath, id string) error {
	f, err := a.read(albumPath)
	if err != nil {
		return err
	}
	kept := f.Tracks[:0]
	for _, t := range f.Tracks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(f.Tracks) {
		return domain.ErrNotFound
	}
	f.Tracks = kept
	return a.write(albumPath, f)
}

// ByName returns the manifest path for an album name, or "" when absent.
func (a *Albums) ByName(name string) string {
	path := filepath.Join(a.dir, sanitizeAlbumName(name)+albumSuffix)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
