package cache

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"ytune/internal/domain"
)

// sidecarKeys are tried in order when recovering a duration from a sidecar
// written by another tool.
var sidecarKeys = []string{
	"duration",
	"length_seconds",
	"duration_seconds",
	"duration_ms",
	"approx_duration_ms",
	"duration_string",
}

// readRawSidecar loads the sidecar for an audio path as a generic map, trying
// the flat "<stem>.json" location first and the per-track meta.json second.
func readRawSidecar(audioPath string) map[string]any {
	if audioPath == "" {
		return nil
	}
	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, p := range []string{stem + ".json", filepath.Join(filepath.Dir(audioPath), metaFileName)} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		return m
	}
	return nil
}

// EnsureDuration fills t.Duration from, in order: the sidecar JSON, then an
// ffprobe of the cached file. A no-op when the duration is already known.
func EnsureDuration(t *domain.Track) {
	if t.Duration != nil {
		return
	}
	if sc := readRawSidecar(t.Path); sc != nil {
		if sec := durationFromSidecar(sc); sec != nil {
			t.Duration = sec
			return
		}
	}
	if t.Path != "" {
		t.Duration = probeDuration(t.Path)
	}
}

func durationFromSidecar(sc map[string]any) *int {
	var val any
	for _, k := range sidecarKeys {
		if v, ok := sc[k]; ok && v != nil {
			val = v
			break
		}
	}
	switch v := val.(type) {
	case float64:
		// Values over 1000 are assumed to be milliseconds. Lossy for the
		// 1000-1999 range, where seconds and milliseconds collide.
		if v > 1000 {
			n := int(v / 1000)
			return &n
		}
		n := int(v)
		return &n
	case string:
		if sec := domain.ParseISO8601Duration(v); sec != nil {
			return sec
		}
		if sec := parseClockDuration(v); sec != nil {
			return sec
		}
	}
	if ms, ok := sc["duration_ms"].(float64); ok {
		n := int(ms / 1000)
		return &n
	}
	if ms, ok := sc["approx_duration_ms"].(float64); ok {
		n := int(ms / 1000)
		return &n
	}
	return nil
}

// parseClockDuration handles "mm:ss" and "hh:mm:ss" strings.
func parseClockDuration(s string) *int {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil
		}
		total = total*60 + n
	}
	return &total
}

// probeDuration asks ffprobe for the duration in seconds, nil on any failure.
func probeDuration(path string) *int {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	out, err := exec.Command("ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path).Output()
	if err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// EnsureUploader fills t.Uploader from sidecar uploader/artist/channel keys.
func EnsureUploader(t *domain.Track) {
	if t.Uploader != "" {
		return
	}
	sc := readRawSidecar(t.Path)
	if sc == nil {
		return
	}
	for _, k := range []string{"uploader", "artist", "channel"} {
		if v, ok := sc[k].(string); ok && strings.TrimSpace(v) != "" {
			t.Uploader = strings.TrimSpace(v)
			return
		}
	}
}
