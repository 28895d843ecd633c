package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested video, album, or playlist does not exist
	ErrNotFound = errors.New("not found")

	// ErrAPIKeyMissing indicates a duration-aware operation was requested
	// without a YouTube Data API key configured
	ErrAPIKeyMissing = errors.New("youtube api key missing: set $YT_API_KEY or configure api_key")

	// ErrSearchQuery indicates a download was requested for a plain search
	// query instead of a URL
	ErrSearchQuery = errors.New("refusing to download from a search query: pass a YouTube URL")

	// ErrUnsupportedFormat indicates the requested audio format is not supported
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNoPlayer indicates no playable binary was found on the system
	ErrNoPlayer = errors.New("no supported audio player found: install mpv or ffmpeg")

	// ErrDownloadFailed indicates the download tool failed after its retry
	ErrDownloadFailed = errors.New("download failed")
)
