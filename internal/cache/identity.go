package cache

import (
	"regexp"
	"strings"
)

// KnownExts lists every audio extension the cache may hold. Downloads can be
// transcoded, so lookups match any of these rather than one expected format.
var KnownExts = []string{"mp3", "m4a", "opus", "flac", "wav", "webm", "ogg", "oga", "aac"}

var (
	youtubeURLRe = regexp.MustCompile(`(?i)(https?://)?(www\.)?(youtube\.com|youtu\.be)/`)
	videoIDRe    = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:[^0-9A-Za-z_-]|$)`)
	playlistRe   = regexp.MustCompile(`[?&]list=[a-zA-Z0-9_-]{10,}`)
	sanitizeRe   = regexp.MustCompile(`[:/\\?*"<>|\n\r\t]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// IsURL reports whether the reference is a YouTube URL. Anything that fails
// this check is treated as a search query by the rest of the system.
func IsURL(ref string) bool {
	return youtubeURLRe.MatchString(ref)
}

// ExtractVideoID pulls an 11-character video id out of common URL forms.
// Returns "" when the reference does not match any recognized pattern; that is
// the expected outcome for plain search strings, not an error.
func ExtractVideoID(ref string) string {
	if ref == "" {
		return ""
	}
	m := videoIDRe.FindStringSubmatch(ref)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsPlaylistURL reports whether the reference points at a playlist rather
// than a single video, independent of IsURL.
func IsPlaylistURL(ref string) bool {
	if playlistRe.MatchString(ref) {
		return true
	}
	return strings.Contains(strings.ToLower(ref), "/playlist")
}

// SanitizeTitle makes a filesystem-safe name from a title, keeping unicode.
// Path-hostile characters are stripped, whitespace collapsed, length capped
// at 200 characters.
func SanitizeTitle(title string) string {
	s := strings.TrimSpace(title)
	s = sanitizeRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200])
	}
	return strings.TrimSpace(s)
}

// TrackDirName builds the per-track directory name:
// "<sanitized-title-or-id> [<first-8-of-id>]", or literal "track" when
// neither a title nor an id is known.
func TrackDirName(title, id string) string {
	base := SanitizeTitle(title)
	if base == "" {
		base = id
	}
	if base == "" {
		base = "track"
	}
	if id != "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		base = base + " [" + short + "]"
	}
	return base
}
