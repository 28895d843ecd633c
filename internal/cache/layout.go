package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"ytune/internal/domain"
)

// metaFileName is the sidecar name inside a per-track directory.
const metaFileName = "meta.json"

// fuzzyRankLimit caps the edit distance the fuzzy title tier accepts.
// Anything farther than this is a different track, not a spelling variant.
const fuzzyRankLimit = 3

// Layout is one on-disk cache arrangement. The store composes the concrete
// layouts in fixed priority order so no call site hardcodes the tier search.
type Layout interface {
	// Locate returns the path of a cached audio artifact for the id, or ""
	// when this layout holds nothing for it.
	Locate(id, titleHint string) string

	// Enumerate returns every track this layout holds.
	Enumerate() []*domain.Track
}

// dirLayout is the per-track directory layout:
// <root>/<sanitized-title> [<id8>]/audio.<ext> plus meta.json.
type dirLayout struct {
	root string
}

func (l *dirLayout) trackDirs() []string {
	names, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range names {
		if !e.IsDir() {
			continue
		}
		d := filepath.Join(l.root, e.Name())
		if _, err := os.Stat(filepath.Join(d, metaFileName)); err == nil {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func readSidecarFile(path string) (*domain.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t domain.Track
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// firstAudioInDir returns the first file in dir with a known audio extension.
func firstAudioInDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isAudioName(e.Name()) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

func isAudioName(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, known := range KnownExts {
		if ext == known {
			return true
		}
	}
	return false
}

func (l *dirLayout) Locate(id, titleHint string) string {
	if id == "" {
		return ""
	}
	for _, d := range l.trackDirs() {
		meta, err := readSidecarFile(filepath.Join(d, metaFileName))
		if err != nil {
			continue
		}
		if meta.ID != id {
			continue
		}
		if p := firstAudioInDir(d); p != "" {
			return p
		}
	}
	return ""
}

func (l *dirLayout) Enumerate() []*domain.Track {
	var out []*domain.Track
	for _, d := range l.trackDirs() {
		audio := firstAudioInDir(d)
		if audio == "" {
			continue
		}
		t, err := readSidecarFile(filepath.Join(d, metaFileName))
		if err != nil {
			t = &domain.Track{}
		}
		if t.Title == "" {
			t.Title = filepath.Base(d)
		}
		t.Path = audio
		out = append(out, t)
	}
	return out
}

// Write stores the per-track sidecar, creating the directory if needed.
func (l *dirLayout) Write(meta *domain.Track, trackDir string) error {
	if err := os.MkdirAll(trackDir, 0755); err != nil {
		return err
	}
	return writeSidecarFile(filepath.Join(trackDir, metaFileName), meta)
}

func writeSidecarFile(path string, meta *domain.Track) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// flatLayout is the legacy flat layout: <root>/<id>.<ext> plus <root>/<id>.json.
// Title-based fuzzy lookup only applies here; the dir layout carries ids in
// its sidecars so it never needs a title guess.
type flatLayout struct {
	root string
}

func (l *flatLayout) Locate(id, titleHint string) string {
	if p := l.locateByID(id); p != "" {
		return p
	}
	return l.locateByTitle(titleHint)
}

func (l *flatLayout) locateByID(id string) string {
	if id == "" {
		return ""
	}
	for _, ext := range KnownExts {
		p := filepath.Join(l.root, id+"."+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// Filename merely containing the id still counts; yt-dlp templates vary.
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), id) {
			continue
		}
		if isAudioName(e.Name()) {
			return filepath.Join(l.root, e.Name())
		}
	}
	return ""
}

func (l *flatLayout) locateByTitle(titleHint string) string {
	san := SanitizeTitle(titleHint)
	if san == "" {
		return ""
	}
	for _, ext := range KnownExts {
		p := filepath.Join(l.root, san+"."+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return ""
	}
	sanLower := strings.ToLower(san)
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isAudioName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	for _, name := range names {
		stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if strings.HasPrefix(stem, sanLower) || strings.Contains(stem, sanLower) {
			return filepath.Join(l.root, name)
		}
	}
	// Fuzzy is the last resort and must not alias distinct tracks: only a
	// near-identical stem (small edit distance) counts, best rank wins.
	best := ""
	bestRank := fuzzyRankLimit + 1
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if rank := fuzzy.RankMatchNormalizedFold(sanLower, strings.ToLower(stem)); rank >= 0 && rank < bestRank {
			best, bestRank = name, rank
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(l.root, best)
}

func (l *flatLayout) Enumerate() []*domain.Track {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}
	// Merge audio files and sidecars by id; a sidecar without an artifact is
	// a record of an in-flight or deleted download and is skipped.
	byID := make(map[string]*domain.Track)
	var order []string
	get := func(id string) *domain.Track {
		if t, ok := byID[id]; ok {
			return t
		}
		t := &domain.Track{ID: id}
		byID[id] = t
		order = append(order, id)
		return t
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(l.root, name)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		switch {
		case isAudioName(name):
			get(stem).Path = full
		case strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".plist.json") && !strings.HasSuffix(name, ".album.json"):
			meta, err := readSidecarFile(full)
			if err != nil {
				continue
			}
			id := meta.ID
			if id == "" {
				id = stem
			}
			t := get(id)
			t.ID = id
			t.Title = meta.Title
			t.Uploader = meta.Uploader
			t.Duration = meta.Duration
			t.WebpageURL = meta.WebpageURL
		}
	}
	var out []*domain.Track
	for _, id := range order {
		t := byID[id]
		if t.Path == "" {
			t.Path = l.locateByID(id)
		}
		if t.Path == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Write stores the legacy flat sidecar keyed by video id.
func (l *flatLayout) Write(meta *domain.Track) error {
	if meta.ID == "" {
		return nil
	}
	if err := os.MkdirAll(l.root, 0755); err != nil {
		return err
	}
	return writeSidecarFile(filepath.Join(l.root, meta.ID+".json"), meta)
}
