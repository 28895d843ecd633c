package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"ytune/internal/domain"
)

// Tool wraps the yt-dlp binary. It is consumed as a black box: fetch plus
// optional transcode and metadata embedding, with the realized output path
// reported back when the tool knows it.
type Tool struct {
	bin    string
	logger *slog.Logger
}

// NewTool locates yt-dlp on PATH.
func NewTool(logger *slog.Logger) (*Tool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bin, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found on PATH: %w", err)
	}
	return &Tool{bin: bin, logger: logger}, nil
}

// FetchOptions controls a single audio fetch.
type FetchOptions struct {
	OutputTemplate string // yt-dlp -o value, e.g. "<dir>/audio.%(ext)s"
	AudioFormat    string // transcode target; empty keeps the native container
	AudioQuality   string // ffmpeg quality hint, "0" (best VBR) when empty
	EmbedMetadata  bool
}

func (t *Tool) fetchArgs(url string, opts FetchOptions) []string {
	args := []string{
		url,
		"-o", opts.OutputTemplate,
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--restrict-filenames",
		"--retries", "2",
		"--socket-timeout", "10",
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	if opts.AudioFormat != "" {
		quality := opts.AudioQuality
		if quality == "" {
			quality = "0"
		}
		args = append(args, "-x", "--audio-format", opts.AudioFormat, "--audio-quality", quality)
		if opts.EmbedMetadata {
			args = append(args, "--embed-metadata", "--embed-thumbnail")
		}
	}
	return args
}

// Fetch downloads audio for a single video URL. Returns the output path the
// tool reported, which may be empty: transcoding can change the extension in
// ways older tool versions do not report, so callers keep their own
// directory-snapshot fallback.
func (t *Tool) Fetch(ctx context.Context, url string, opts FetchOptions) (string, error) {
	cmd := exec.CommandContext(ctx, t.bin, t.fetchArgs(url, opts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Info("fetching audio", "url", url, "template", opts.OutputTemplate)

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrDownloadFailed, lastLine(msg))
		}
		return "", fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}

	// --print after_move:filepath emits the realized path, one per download.
	if path := lastLine(stdout.String()); path != "" {
		return path, nil
	}
	return "", nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

// SelfUpdate runs yt-dlp -U. Best effort: extractor breakage is usually
// fixed by an update, so the resolver calls this between fetch attempts.
func (t *Tool) SelfUpdate(ctx context.Context) {
	t.logger.Info("attempting yt-dlp self-update")
	if err := exec.CommandContext(ctx, t.bin, "-U").Run(); err != nil {
		t.logger.Warn("yt-dlp self-update failed", "error", err)
		return
	}
	t.logger.Info("yt-dlp updated")
}

// Playlist is the flat extraction result: identity plus minimal per-entry
// records, nothing downloaded.
type Playlist struct {
	ID      string
	Title   string
	Entries []*domain.Track
}

type flatPlaylist struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Entries []struct {
		ID         string   `json:"id"`
		URL        string   `json:"url"`
		WebpageURL string   `json:"webpage_url"`
		Title      string   `json:"title"`
		Uploader   string   `json:"uploader"`
		Duration   *float64 `json:"duration"`
	} `json:"entries"`
}

// PlaylistEntries extracts minimal entries for a playlist URL without
// downloading anything.
func (t *Tool) PlaylistEntries(ctx context.Context, url string) (*Playlist, error) {
	cmd := exec.CommandContext(ctx, t.bin,
		url, "--dump-single-json", "--flat-playlist", "--skip-download", "--no-warnings")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("playlist extraction failed: %w", err)
	}
	var pl flatPlaylist
	if err := json.Unmarshal(out, &pl); err != nil {
		return nil, fmt.Errorf("failed to parse playlist metadata: %w", err)
	}
	result := &Playlist{ID: pl.ID, Title: pl.Title}
	for _, e := range pl.Entries {
		id := e.ID
		if id == "" {
			id = e.URL
		}
		webURL := e.WebpageURL
		if webURL == "" && id != "" {
			webURL = "https://www.youtube.com/watch?v=" + id
		}
		var dur *int
		if e.Duration != nil {
			n := int(*e.Duration)
			dur = &n
		}
		result.Entries = append(result.Entries, &domain.Track{
			ID:         id,
			Title:      e.Title,
			Uploader:   e.Uploader,
			Duration:   dur,
			WebpageURL: webURL,
			Kind:       domain.KindPlaylist,
		})
	}
	return result, nil
}

// AudioFormat describes one audio-only CDN format.
type AudioFormat struct {
	ID       string
	Ext      string
	ABR      float64
	ASR      int
	Filesize int64
	Note     string
}

type formatDump struct {
	Formats []struct {
		FormatID   string  `json:"format_id"`
		Ext        string  `json:"ext"`
		ACodec     string  `json:"acodec"`
		VCodec     string  `json:"vcodec"`
		ABR        float64 `json:"abr"`
		ASR        int     `json:"asr"`
		Filesize   int64   `json:"filesize"`
		FormatNote string  `json:"format_note"`
	} `json:"formats"`
}

// Formats inspects the audio-only formats available for a URL. Heavyweight:
// it hits the CDN metadata rather than the Data API.
func (t *Tool) Formats(ctx context.Context, url string) ([]AudioFormat, error) {
	cmd := exec.CommandContext(ctx, t.bin,
		url, "--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("format inspection failed: %w", err)
	}
	var dump formatDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse format metadata: %w", err)
	}
	var formats []AudioFormat
	for _, f := range dump.Formats {
		audioOnly := f.ACodec != "" && f.ACodec != "none" && (f.VCodec == "" || f.VCodec == "none")
		if !audioOnly {
			continue
		}
		formats = append(formats, AudioFormat{
			ID:       f.FormatID,
			Ext:      f.Ext,
			ABR:      f.ABR,
			ASR:      f.ASR,
			Filesize: f.Filesize,
			Note:     f.FormatNote,
		})
	}
	return formats, nil
}
