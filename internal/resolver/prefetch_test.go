package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ytune/internal/domain"
)

type recordingResolver struct {
	mu       sync.Mutex
	resolved []string
	fail     map[string]bool
}

func (r *recordingResolver) Resolve(ctx context.Context, ref string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[ref] {
		return "", errors.New("boom")
	}
	r.resolved = append(r.resolved, ref)
	return "/cache/" + ref + ".mp3", nil
}

func (r *recordingResolver) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.resolved...)
}

type mapFinder map[string]string

func (m mapFinder) FindExisting(id, titleHint string) string { return m[id] }

func playlistEntries(n int) []*domain.Track {
	entries := make([]*domain.Track, n)
	for i := range entries {
		entries[i] = &domain.Track{
			ID:         fmt.Sprintf("vid%d", i),
			Title:      fmt.Sprintf("Track %d", i),
			WebpageURL: fmt.Sprintf("url%d", i),
			Kind:       domain.KindPlaylist,
		}
	}
	return entries
}

func TestPrefetchWindow(t *testing.T) {
	entries := playlistEntries(10)
	res := &recordingResolver{}
	p := NewPrefetcher(entries, res, mapFinder{}, 3, testLogger())
	p.SetIndex(2)

	p.scan(context.Background())

	want := []string{"url3", "url4", "url5"}
	got := res.calls()
	if len(got) != len(want) {
		t.Fatalf("resolved %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolved %v, want %v", got, want)
		}
	}
	for i, e := range entries {
		inWindow := i >= 3 && i <= 5
		if inWindow && e.Path == "" {
			t.Errorf("entry %d not annotated", i)
		}
		if !inWindow && e.Path != "" {
			t.Errorf("entry %d outside the window was touched", i)
		}
	}
}

func TestPrefetchWindowClippedAtEnd(t *testing.T) {
	entries := playlistEntries(4)
	res := &recordingResolver{}
	p := NewPrefetcher(entries, res, mapFinder{}, 5, testLogger())
	p.SetIndex(2)

	p.scan(context.Background())

	if got := res.calls(); len(got) != 1 || got[0] != "url3" {
		t.Errorf("resolved %v, want [url3]", got)
	}
}

func TestPrefetchSkipsCachedEntries(t *testing.T) {
	entries := playlistEntries(5)
	res := &recordingResolver{}
	finder := mapFinder{"vid1": "/cache/already.mp3"}
	p := NewPrefetcher(entries, res, finder, 2, testLogger())

	p.scan(context.Background())

	if entries[1].Path != "/cache/already.mp3" {
		t.Errorf("cached entry not annotated: %q", entries[1].Path)
	}
	if got := res.calls(); len(got) != 1 || got[0] != "url2" {
		t.Errorf("resolved %v, want [url2]", got)
	}
}

func TestPrefetchSwallowsErrors(t *testing.T) {
	entries := playlistEntries(4)
	res := &recordingResolver{fail: map[string]bool{"url1": true}}
	p := NewPrefetcher(entries, res, mapFinder{}, 3, testLogger())

	p.scan(context.Background())

	if entries[1].Path != "" {
		t.Errorf("failed entry was annotated: %q", entries[1].Path)
	}
	if entries[2].Path == "" || entries[3].Path == "" {
		t.Error("entries after the failure were not attempted")
	}
}

func TestPrefetchStopJoins(t *testing.T) {
	entries := playlistEntries(3)
	res := &recordingResolver{}
	p := NewPrefetcher(entries, res, mapFinder{}, 2, testLogger())

	p.Start()
	p.Stop()
	// Stop is idempotent.
	p.Stop()

	select {
	case <-p.done:
	default:
		t.Error("worker still running after Stop returned")
	}
}
