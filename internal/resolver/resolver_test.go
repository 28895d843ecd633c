package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"ytune/internal/cache"
	"ytune/internal/domain"
	"ytune/internal/ytdlp"
)

const testID = "dQw4w9WgXcQ"
const testURL = "https://www.youtube.com/watch?v=" + testID

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	track *domain.Track
	err   error
	calls int
}

func (f *fakeAPI) VideoInfo(ctx context.Context, id string) (*domain.Track, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.track, nil
}

// fakeTool simulates the download collaborator. failures counts down before
// fetches start succeeding; each successful fetch drops a file matching the
// output template.
type fakeTool struct {
	failures int
	fetches  int
	updates  int
	report   bool
	ext      string
}

func (f *fakeTool) Fetch(ctx context.Context, url string, opts ytdlp.FetchOptions) (string, error) {
	f.fetches++
	if f.failures > 0 {
		f.failures--
		return "", domain.ErrDownloadFailed
	}
	ext := f.ext
	if ext == "" {
		ext = "mp3"
	}
	dir := filepath.Dir(opts.OutputTemplate)
	path := filepath.Join(dir, "audio."+ext)
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		return "", err
	}
	if f.report {
		return path, nil
	}
	return "", nil
}

func (f *fakeTool) SelfUpdate(ctx context.Context) { f.updates++ }

func newTestResolver(t *testing.T, api *fakeAPI, tool *fakeTool) (*Resolver, *cache.Store) {
	t.Helper()
	store := cache.NewStore(t.TempDir(), false, testLogger())
	opts := &Options{AudioFormat: "mp3", EmbedMetadata: true}
	var r *Resolver
	if api == nil {
		r = New(store, nil, tool, opts, testLogger())
	} else {
		r = New(store, api, tool, opts, testLogger())
	}
	return r, store
}

func TestResolveRejectsSearchText(t *testing.T) {
	r, _ := newTestResolver(t, nil, &fakeTool{})
	_, err := r.Resolve(context.Background(), "never gonna give you up")
	if !errors.Is(err, domain.ErrSearchQuery) {
		t.Errorf("err = %v, want ErrSearchQuery", err)
	}
}

func TestResolveCacheHitSkipsFetch(t *testing.T) {
	tool := &fakeTool{}
	r, store := newTestResolver(t, nil, tool)
	cached := filepath.Join(store.Root(), testID+".mp3")
	if err := os.WriteFile(cached, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatal(err)
	}
	if got != cached {
		t.Errorf("path = %q, want %q", got, cached)
	}
	if tool.fetches != 0 {
		t.Errorf("cache hit still fetched %d times", tool.fetches)
	}
}

func TestResolveDownloadsOnMiss(t *testing.T) {
	tool := &fakeTool{report: true}
	api := &fakeAPI{track: &domain.Track{ID: testID, Title: "My Song", WebpageURL: testURL}}
	r, store := newTestResolver(t, api, tool)

	got, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatal(err)
	}
	if tool.fetches != 1 {
		t.Errorf("fetches = %d, want 1", tool.fetches)
	}
	wantDir := store.TrackDir("My Song", testID)
	if filepath.Dir(got) != wantDir {
		t.Errorf("artifact landed in %q, want %q", filepath.Dir(got), wantDir)
	}
	// Both sidecars exist after a successful download.
	if _, err := os.Stat(filepath.Join(wantDir, "meta.json")); err != nil {
		t.Errorf("track dir sidecar missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), testID+".json")); err != nil {
		t.Errorf("flat sidecar missing: %v", err)
	}

	// A second Resolve is a cache hit.
	if _, err := r.Resolve(context.Background(), testURL); err != nil {
		t.Fatal(err)
	}
	if tool.fetches != 1 {
		t.Errorf("second resolve fetched again: %d fetches", tool.fetches)
	}
}

func TestResolveRetriesOnceAfterSelfUpdate(t *testing.T) {
	tool := &fakeTool{failures: 1, report: true}
	r, _ := newTestResolver(t, nil, tool)

	if _, err := r.Resolve(context.Background(), testURL); err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if tool.updates != 1 {
		t.Errorf("self-updates = %d, want 1", tool.updates)
	}
	if tool.fetches != 2 {
		t.Errorf("fetches = %d, want 2", tool.fetches)
	}
}

func TestResolveFatalAfterSecondFailure(t *testing.T) {
	tool := &fakeTool{failures: 2}
	r, _ := newTestResolver(t, nil, tool)

	_, err := r.Resolve(context.Background(), testURL)
	if !errors.Is(err, domain.ErrDownloadFailed) {
		t.Errorf("err = %v, want ErrDownloadFailed", err)
	}
	if tool.fetches != 2 {
		t.Errorf("fetches = %d, want exactly 2 (one retry)", tool.fetches)
	}
	if tool.updates != 1 {
		t.Errorf("self-updates = %d, want 1", tool.updates)
	}
}

func TestResolveSnapshotDiffWhenUnreported(t *testing.T) {
	// The tool writes an opus file and reports nothing; the snapshot diff
	// must still find it instead of trusting the mp3 template.
	tool := &fakeTool{report: false, ext: "opus"}
	r, _ := newTestResolver(t, nil, tool)

	got, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(got) != ".opus" {
		t.Errorf("resolved %q, want the snapshot-discovered opus file", got)
	}
}

func TestResolveDegradesWithoutAPI(t *testing.T) {
	api := &fakeAPI{err: errors.New("quota exceeded")}
	tool := &fakeTool{report: true}
	r, store := newTestResolver(t, api, tool)

	got, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("api failure should not be fatal: %v", err)
	}
	if got == "" {
		t.Fatal("no path resolved")
	}
	// Identifier-only fallback names the track dir after the id.
	wantDir := store.TrackDir(testID, testID)
	if filepath.Dir(got) != wantDir {
		t.Errorf("artifact landed in %q, want %q", filepath.Dir(got), wantDir)
	}
}
