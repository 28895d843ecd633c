package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ytune/internal/browse"
	"ytune/internal/cache"
	"ytune/internal/config"
	"ytune/internal/domain"
	"ytune/internal/player"
	"ytune/internal/resolver"
	"ytune/internal/tui"
	"ytune/internal/ytapi"
	"ytune/internal/ytdlp"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion  bool
		browseFlag   bool
		downloadOnly bool
		listFormats  bool
		volume       float64
		format       string
		native       bool
		noMeta       bool
		playerCmd    string
		prefetch     int
		cacheDir     string
		apiKey       string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&browseFlag, "browse", false, "browse the cached library")
	flag.BoolVar(&downloadOnly, "download-only", false, "fetch into the cache without playing")
	flag.BoolVar(&listFormats, "list-formats", false, "list audio-only formats for a URL")
	flag.Float64Var(&volume, "volume", -1, "playback volume 0.0-1.0")
	flag.StringVar(&format, "format", "", "transcode target (mp3, m4a, opus, flac, wav)")
	flag.BoolVar(&native, "native", false, "keep the source container, skip transcoding")
	flag.BoolVar(&noMeta, "no-meta", false, "skip tag and thumbnail embedding")
	flag.StringVar(&playerCmd, "player", "", "preferred player binary")
	flag.IntVar(&prefetch, "prefetch", 0, "playlist prefetch window")
	flag.StringVar(&cacheDir, "dir", "", "cache directory")
	flag.StringVar(&apiKey, "yt-api-key", "", "YouTube Data API key")
	flag.Parse()

	if showVersion {
		fmt.Printf("ytune %s\n", Version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override config only when actually given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "volume":
			cfg.Player.Volume = volume
		case "format":
			cfg.Audio.Format = config.NormalizeFormat(format)
		case "native":
			cfg.Audio.Native = native
		case "no-meta":
			cfg.Audio.EmbedMetadata = !noMeta
		case "player":
			cfg.Player.Command = playerCmd
		case "prefetch":
			cfg.Playlist.Prefetch = prefetch
		case "dir":
			cfg.Cache.Dir = cacheDir
		case "yt-api-key":
			cfg.API.Key = apiKey
		}
	})

	app := appFlags{
		browse:       browseFlag,
		downloadOnly: downloadOnly,
		listFormats:  listFormats,
		ref:          strings.TrimSpace(strings.Join(flag.Args(), " ")),
	}
	if err := run(cfg, app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type appFlags struct {
	browse       bool
	downloadOnly bool
	listFormats  bool
	ref          string
}

func run(cfg *config.Config, app appFlags) error {
	logger, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = config.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting ytune", "version", Version)

	if !cfg.Audio.Native {
		if err := config.ValidateFormat(cfg.Audio.Format); err != nil {
			return err
		}
	}

	store := cache.NewStore(cfg.Cache.Dir, cfg.Cache.DedupID, logger)

	metaCache, err := ytapi.NewMetaCache(cfg.Cache.Dir)
	if err != nil {
		logger.Warn("metadata cache unavailable, running without", "error", err)
		metaCache = nil
	}
	defer metaCache.Close()

	ctx := context.Background()

	switch {
	case app.browse || app.ref == "":
		return runBrowse(cfg, store, metaCache, logger)

	case cache.IsURL(app.ref):
		if app.listFormats {
			return runListFormats(ctx, app.ref, logger)
		}
		if cache.IsPlaylistURL(app.ref) {
			return runPlaylist(ctx, cfg, store, metaCache, app.ref, logger)
		}
		return runResolve(ctx, cfg, store, metaCache, app.ref, app.downloadOnly, logger)

	default:
		return runSearch(ctx, cfg, metaCache, app.ref, logger)
	}
}

// quietAPIKey looks up the API key without ever prompting. Interactive
// prompting is reserved for the search path, where the key is mandatory.
func quietAPIKey(cfg *config.Config) string {
	if cfg.API.Key != "" {
		return cfg.API.Key
	}
	for _, env := range []string{"YTUNE_API_KEY", "YT_API_KEY"} {
		if k := os.Getenv(env); k != "" {
			return k
		}
	}
	return ""
}

func newResolver(cfg *config.Config, store *cache.Store, metaCache *ytapi.MetaCache, logger *slog.Logger) (*resolver.Resolver, *ytdlp.Tool, error) {
	tool, err := ytdlp.NewTool(logger)
	if err != nil {
		return nil, nil, err
	}
	opts := &resolver.Options{
		AudioQuality:  cfg.Audio.Quality,
		EmbedMetadata: cfg.Audio.EmbedMetadata,
	}
	if !cfg.Audio.Native {
		opts.AudioFormat = cfg.Audio.Format
	}
	if key := quietAPIKey(cfg); key != "" {
		return resolver.New(store, ytapi.NewClient(key, metaCache, logger), tool, opts, logger), tool, nil
	}
	return resolver.New(store, nil, tool, opts, logger), tool, nil
}

func runBrowse(cfg *config.Config, store *cache.Store, metaCache *ytapi.MetaCache, logger *slog.Logger) error {
	plyr, err := player.Detect(cfg.Player.Command, logger)
	if err != nil {
		return err
	}
	albums := cache.NewAlbums(store, logger)
	shelf := cache.NewShelf(albums, store)
	state := browse.NewLibrary(store, shelf, plyr, cfg.Player.Volume, logger)
	// Album entries whose audio was pruned can still be fetched back.
	if res, _, err := newResolver(cfg, store, metaCache, logger); err == nil {
		state.SetResolver(res)
	}
	return tui.Run(state, nil, albums, logger)
}

func runPlaylist(ctx context.Context, cfg *config.Config, store *cache.Store, metaCache *ytapi.MetaCache, url string, logger *slog.Logger) error {
	res, tool, err := newResolver(cfg, store, metaCache, logger)
	if err != nil {
		return err
	}
	pl, err := tool.PlaylistEntries(ctx, url)
	if err != nil {
		return err
	}
	if len(pl.Entries) == 0 {
		return fmt.Errorf("playlist has no entries")
	}
	if err := store.SavePlaylistManifest(&cache.PlaylistManifest{
		ID:     pl.ID,
		Title:  pl.Title,
		Tracks: dereference(pl.Entries),
	}); err != nil {
		logger.Warn("playlist manifest save failed", "error", err)
	}

	pre := resolver.NewPrefetcher(pl.Entries, res, store, cfg.Playlist.Prefetch, logger)
	pre.Start()

	plyr, err := player.Detect(cfg.Player.Command, logger)
	if err != nil {
		pre.Stop()
		return err
	}
	state := browse.NewPlaylist(pl.Entries, store, plyr, cfg.Player.Volume, logger)
	state.SetResolver(res)
	state.SetPrefetchCursor(pre)
	return tui.Run(state, pre, nil, logger)
}

func dereference(entries []*domain.Track) []domain.Track {
	out := make([]domain.Track, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}

func runResolve(ctx context.Context, cfg *config.Config, store *cache.Store, metaCache *ytapi.MetaCache, url string, downloadOnly bool, logger *slog.Logger) error {
	res, _, err := newResolver(cfg, store, metaCache, logger)
	if err != nil {
		return err
	}
	path, err := res.Resolve(ctx, url)
	if err != nil {
		return err
	}
	if downloadOnly {
		fmt.Println(path)
		return nil
	}
	plyr, err := player.Detect(cfg.Player.Command, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Playing %s\n", path)
	if !plyr.Play(path, cfg.Player.Volume) {
		return fmt.Errorf("playback failed for %s", path)
	}
	waitForPlayback(plyr)
	return nil
}

// waitForPlayback blocks until the track ends or the user interrupts, in
// which case the player is torn down first.
func waitForPlayback(plyr player.Player) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	for plyr.IsPlaying() {
		select {
		case <-sig:
			plyr.Stop()
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func runListFormats(ctx context.Context, url string, logger *slog.Logger) error {
	tool, err := ytdlp.NewTool(logger)
	if err != nil {
		return err
	}
	formats, err := tool.Formats(ctx, url)
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		fmt.Println("no audio-only formats")
		return nil
	}
	fmt.Printf("%-8s %-6s %-10s %-10s %s\n", "ID", "EXT", "ABR", "ASR", "NOTE")
	for _, f := range formats {
		abr := "-"
		if f.ABR > 0 {
			abr = fmt.Sprintf("%.0fk", f.ABR)
		}
		asr := "-"
		if f.ASR > 0 {
			asr = fmt.Sprintf("%dHz", f.ASR)
		}
		fmt.Printf("%-8s %-6s %-10s %-10s %s\n", f.ID, f.Ext, abr, asr, f.Note)
	}
	return nil
}

func runSearch(ctx context.Context, cfg *config.Config, metaCache *ytapi.MetaCache, query string, logger *slog.Logger) error {
	key, err := ytapi.ResolveAPIKey(cfg.API.Key)
	if err != nil {
		return err
	}
	client := ytapi.NewClient(key, metaCache, logger)
	results, err := client.Search(ctx, query, 15)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	durations, err := client.Durations(ctx, ids)
	if err != nil {
		logger.Warn("duration lookup failed", "error", err)
	}
	for i, r := range results {
		if d, ok := durations[r.ID]; ok {
			r.Duration = d
		}
		fmt.Printf("%2d. %s  [%s]  %s\n    %s\n",
			i+1, r.DisplayTitle(), r.FormattedDuration(), r.Uploader, ytapi.WatchURL(r.ID))
	}
	return nil
}
