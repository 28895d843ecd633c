package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ytune/internal/cache"
	"ytune/internal/domain"
	"ytune/internal/ytdlp"
)

// metadataAPI is the slice of the Data API client the resolver needs.
type metadataAPI interface {
	VideoInfo(ctx context.Context, id string) (*domain.Track, error)
}

// fetchTool is the slice of the download tool the resolver needs.
type fetchTool interface {
	Fetch(ctx context.Context, url string, opts ytdlp.FetchOptions) (string, error)
	SelfUpdate(ctx context.Context)
}

// Options is the fixed download configuration, constructed once at startup
// and passed by reference.
type Options struct {
	AudioFormat   string // transcode target; empty keeps the native container
	AudioQuality  string
	EmbedMetadata bool
}

// Resolver turns a video reference into a local cached path, downloading only
// on a cache miss.
type Resolver struct {
	store  *cache.Store
	api    metadataAPI // nil degrades to id-only operation
	tool   fetchTool
	opts   *Options
	logger *slog.Logger
}

// New creates a Resolver. api may be nil when no API key is available; the
// resolver then operates on parsed video ids alone.
func New(store *cache.Store, api metadataAPI, tool fetchTool, opts *Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, api: api, tool: tool, opts: opts, logger: logger}
}

// Resolve returns a local audio path for a video URL, fetching at most once:
// a cache hit short-circuits the network download path entirely. Plain
// search text is rejected; the caller must materialize a search into a URL
// first.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if !cache.IsURL(ref) {
		return "", domain.ErrSearchQuery
	}

	meta := r.lookupMeta(ctx, ref)
	if meta.ID == "" {
		return "", fmt.Errorf("could not extract video id from %q", ref)
	}

	if existing := r.store.FindExisting(meta.ID, meta.Title); existing != "" {
		r.logger.Info("cache hit", "id", meta.ID, "path", existing)
		return existing, nil
	}

	// Provisional sidecar before the fetch so concurrent browse views can
	// already show the track as known-but-downloading.
	r.store.SaveSidecar(meta, "")

	return r.download(ctx, meta)
}

// lookupMeta fetches minimal metadata for the URL, degrading gracefully to
// identifier-only operation when the API is unavailable or failing.
func (r *Resolver) lookupMeta(ctx context.Context, ref string) *domain.Track {
	id := cache.ExtractVideoID(ref)
	if r.api != nil && id != "" {
		if meta, err := r.api.VideoInfo(ctx, id); err == nil {
			return meta
		} else {
			r.logger.Warn("metadata fetch failed, continuing with id only", "id", id, "error", err)
		}
	}
	title := id
	return &domain.Track{ID: id, Title: title, WebpageURL: ref}
}

func (r *Resolver) download(ctx context.Context, meta *domain.Track) (string, error) {
	trackDir := r.store.TrackDir(meta.Title, meta.ID)
	if err := os.MkdirAll(trackDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create track directory: %w", err)
	}

	fetchOpts := ytdlp.FetchOptions{
		OutputTemplate: filepath.Join(trackDir, "audio.%(ext)s"),
		AudioFormat:    r.opts.AudioFormat,
		AudioQuality:   r.opts.AudioQuality,
		EmbedMetadata:  r.opts.EmbedMetadata,
	}

	before := snapshotDir(trackDir)

	url := meta.WebpageURL
	if url == "" {
		url = "https://www.youtube.com/watch?v=" + meta.ID
	}

	reported, err := r.tool.Fetch(ctx, url, fetchOpts)
	if err != nil {
		// One retry after a tool self-update; extractor breakage is the
		// common cause and an update usually fixes it.
		r.logger.Warn("fetch failed, updating tool and retrying once", "id", meta.ID, "error", err)
		r.tool.SelfUpdate(ctx)
		reported, err = r.tool.Fetch(ctx, url, fetchOpts)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, meta.ID, err)
		}
	}

	final := r.finalPath(reported, trackDir, before)

	r.store.SaveSidecar(meta, trackDir)
	return final, nil
}

// finalPath determines the realized output file. The tool's own report wins;
// otherwise a before/after snapshot diff of the track directory filtered to
// known audio extensions; otherwise the constructed template fallback.
// Transcoding can change the extension, so the template alone is not trusted.
func (r *Resolver) finalPath(reported, trackDir string, before map[string]bool) string {
	if reported != "" {
		return reported
	}
	entries, err := os.ReadDir(trackDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() || before[e.Name()] {
				continue
			}
			if isKnownAudio(e.Name()) {
				return filepath.Join(trackDir, e.Name())
			}
		}
	}
	ext := r.opts.AudioFormat
	if ext == "" {
		ext = "webm"
	}
	return filepath.Join(trackDir, "audio."+ext)
}

func snapshotDir(dir string) map[string]bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names
}

func isKnownAudio(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	ext = strings.ToLower(ext[1:])
	for _, known := range cache.KnownExts {
		if ext == known {
			return true
		}
	}
	return false
}
