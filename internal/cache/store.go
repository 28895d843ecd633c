package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ytune/internal/domain"
)

// Store owns the on-disk cache: audio artifacts, metadata sidecars, album
// files, and playlist manifests. It composes the per-track directory layout
// and the legacy flat layout in that fixed priority order.
type Store struct {
	root    string
	dir     *dirLayout
	flat    *flatLayout
	dedupID bool
	logger  *slog.Logger
}

// NewStore creates a Store rooted at cacheDir. When dedupByID is set,
// ListTracks drops flat-layout entries whose id already appeared in a
// per-track directory.
func NewStore(cacheDir string, dedupByID bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:    cacheDir,
		dir:     &dirLayout{root: cacheDir},
		flat:    &flatLayout{root: cacheDir},
		dedupID: dedupByID,
		logger:  logger,
	}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// TrackDir returns the per-track directory path for a title/id pair.
func (s *Store) TrackDir(title, id string) string {
	return filepath.Join(s.root, TrackDirName(title, id))
}

// FindExisting resolves an id (plus optional title hint) to a cached audio
// path. Tiers, first hit wins: per-track directories, flat exact id match,
// flat fuzzy title match. Returns "" on a full miss.
func (s *Store) FindExisting(id, titleHint string) string {
	if s.root == "" || (id == "" && titleHint == "") {
		return ""
	}
	for _, layout := range []Layout{s.dir, s.flat} {
		if p := layout.Locate(id, titleHint); p != "" {
			return p
		}
	}
	return ""
}

// SaveSidecar writes metadata next to the audio artifact. The legacy flat
// sidecar is always written; the per-track meta.json is added when trackDir
// is non-empty. Writes are best-effort: a failure in one location never
// prevents the other, so at least one lookup path stays available.
func (s *Store) SaveSidecar(meta *domain.Track, trackDir string) {
	if meta == nil || meta.ID == "" {
		return
	}
	if err := s.flat.Write(meta); err != nil {
		s.logger.Warn("flat sidecar write failed", "id", meta.ID, "error", err)
	}
	if trackDir != "" {
		if err := s.dir.Write(meta, trackDir); err != nil {
			s.logger.Warn("track dir sidecar write failed", "id", meta.ID, "dir", trackDir, "error", err)
		}
	}
}

// ListTracks enumerates both layouts, sorted case-insensitively by title
// with filename fallback. Per-track directory entries come from the newer
// layout and are listed alongside flat entries for the same id unless the
// dedup flag is set; showing both lets the user spot stale flat copies.
func (s *Store) ListTracks() []*domain.Track {
	if _, err := os.Stat(s.root); err != nil {
		return nil
	}
	tracks := s.dir.Enumerate()
	if s.dedupID {
		seen := make(map[string]bool, len(tracks))
		for _, t := range tracks {
			if t.ID != "" {
				seen[t.ID] = true
			}
		}
		for _, t := range s.flat.Enumerate() {
			if t.ID != "" && seen[t.ID] {
				continue
			}
			tracks = append(tracks, t)
		}
	} else {
		tracks = append(tracks, s.flat.Enumerate()...)
	}
	// Sidecars written by other tools carry durations under varying keys;
	// recover what we can before presenting the list.
	for _, t := range tracks {
		EnsureDuration(t)
		EnsureUploader(t)
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		return strings.ToLower(sortKey(tracks[i])) < strings.ToLower(sortKey(tracks[j]))
	})
	return tracks
}

func sortKey(t *domain.Track) string {
	if t.Title != "" {
		return t.Title
	}
	return filepath.Base(t.Path)
}

// DeleteArtifact removes a track's audio file and flat sidecar from disk.
// The caller clears the in-memory record; the record itself survives the
// session as an unresolved entry.
func (s *Store) DeleteArtifact(t *domain.Track) {
	if t.Path == "" {
		return
	}
	if err := os.Remove(t.Path); err != nil {
		s.logger.Warn("artifact remove failed", "path", t.Path, "error", err)
	}
	stem := strings.TrimSuffix(t.Path, filepath.Ext(t.Path))
	if err := os.Remove(stem + ".json"); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("sidecar remove failed", "path", stem+".json", "error", err)
	}
	// Per-track layout keeps its sidecar beside the audio file.
	if dir := filepath.Dir(t.Path); dir != s.root {
		if err := os.Remove(filepath.Join(dir, metaFileName)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("meta.json remove failed", "dir", dir, "error", err)
		}
	}
}

// RenameToTitle renames a flat artifact to its sanitized display title,
// keeping the extension. Returns the new path, or "" when nothing changed.
func (s *Store) RenameToTitle(t *domain.Track) string {
	if t.Path == "" {
		return ""
	}
	if _, err := os.Stat(t.Path); err != nil {
		return ""
	}
	name := SanitizeTitle(t.DisplayTitle())
	if name == "" {
		name = "track"
	}
	newPath := filepath.Join(filepath.Dir(t.Path), name+filepath.Ext(t.Path))
	if newPath == t.Path {
		return ""
	}
	if err := os.Rename(t.Path, newPath); err != nil {
		s.logger.Warn("rename failed", "from", t.Path, "to", newPath, "error", err)
		return ""
	}
	return newPath
}
