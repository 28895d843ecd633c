package resolver

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ytune/internal/domain"
)

// pollInterval is the sleep slice between stop checks; a raised stop signal
// is observed within roughly this long.
const pollInterval = 100 * time.Millisecond

// idleSlices is how many poll intervals a full rest between scan cycles takes.
const idleSlices = 10

// trackResolver is the slice of the Resolver the prefetcher needs.
type trackResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// pathFinder is the slice of the cache store the prefetcher needs.
type pathFinder interface {
	FindExisting(id, titleHint string) string
}

// Prefetcher keeps the next few playlist entries resolved into cache ahead of
// playback. It is best-effort: every internal error is swallowed, and the
// next cycle naturally retries anything still uncached. It only ever writes
// the Path field of shared entries (a single atomic-enough assignment); it
// never touches browse state.
type Prefetcher struct {
	entries  []*domain.Track
	resolver trackResolver
	finder   pathFinder
	window   int
	logger   *slog.Logger

	cursor   atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPrefetcher creates a prefetcher over an ordered entry list. window is
// clamped to at least 1.
func NewPrefetcher(entries []*domain.Track, res trackResolver, finder pathFinder, window int, logger *slog.Logger) *Prefetcher {
	if window < 1 {
		window = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		entries:  entries,
		resolver: res,
		finder:   finder,
		window:   window,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background worker.
func (p *Prefetcher) Start() {
	go p.run()
}

// Stop signals the worker and waits for it to finish, so all background I/O
// has ceased when Stop returns.
func (p *Prefetcher) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

// SetIndex advances the cursor as playback moves through the list.
func (p *Prefetcher) SetIndex(idx int) {
	if idx < 0 {
		idx = 0
	}
	p.cursor.Store(int64(idx))
}

func (p *Prefetcher) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Prefetcher) run() {
	defer close(p.done)
	ctx := context.Background()
	for !p.stopped() {
		p.scan(ctx)
		for i := 0; i < idleSlices; i++ {
			select {
			case <-p.stop:
				return
			case <-time.After(pollInterval):
			}
		}
	}
}

// scan walks the open half-interval (cursor, cursor+window], clipped to the
// list bounds, annotating cached entries and resolving the rest.
func (p *Prefetcher) scan(ctx context.Context) {
	start := int(p.cursor.Load()) + 1
	end := start + p.window
	if end > len(p.entries) {
		end = len(p.entries)
	}
	for i := start; i < end; i++ {
		if p.stopped() {
			return
		}
		entry := p.entries[i]
		if cached := p.finder.FindExisting(entry.ID, entry.Title); cached != "" {
			entry.Path = cached
			continue
		}
		path, err := p.resolver.Resolve(ctx, entry.WebpageURL)
		if err != nil {
			// Prefetch never surfaces errors to the UI.
			p.logger.Debug("prefetch failed", "id", entry.ID, "error", err)
			continue
		}
		entry.Path = path
	}
}
