package domain

import "fmt"

// TrackKind indicates where a track record came from.
type TrackKind string

const (
	KindLibrary    TrackKind = ""
	KindPlaylist   TrackKind = "playlist"
	KindAlbumTrack TrackKind = "album_track"
)

// Track is the unit of cached content. It is created in memory by search or
// playlist extraction and gains a Path once resolved into the cache. Deleting
// the on-disk artifact clears Path but keeps the record alive for the session.
type Track struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Uploader   string    `json:"uploader,omitempty"`
	Duration   *int      `json:"duration"` // whole seconds, nil until resolved
	WebpageURL string    `json:"webpage_url"`
	Path       string    `json:"-"`
	Kind       TrackKind `json:"-"`
}

// DisplayTitle returns the title, falling back to the video id.
func (t *Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

// FormattedDuration renders the duration as m:ss or h:mm:ss, "?:??" when unknown.
func (t *Track) FormattedDuration() string {
	return FormatSeconds(t.Duration)
}

// Cached reports whether the track has a resolved local artifact.
func (t *Track) Cached() bool { return t.Path != "" }

// FormatSeconds renders a second count as m:ss or h:mm:ss, "?:??" for nil.
func FormatSeconds(sec *int) string {
	if sec == nil {
		return "?:??"
	}
	s := *sec
	m := s / 60
	s = s % 60
	h := m / 60
	m = m % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// AlbumTrack is a track plus its explicit position within an album.
type AlbumTrack struct {
	Track
	Order int `json:"order"`
}

// AlbumSummary describes an album for list views.
type AlbumSummary struct {
	Name        string
	Description string
	TrackCount  int
	Path        string
}

// PlaylistSummary describes a cached playlist manifest for list views.
type PlaylistSummary struct {
	ID    string
	Title string
	Count int
	Path  string
}
