package ytapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ytune/internal/domain"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTimeout = 10 * time.Second

	// The videos endpoint accepts at most this many ids per call.
	batchSize = 50
)

// Client is a thin REST client for the YouTube Data API. Only three
// operations are consumed: search-by-text, batch durations, and single-video
// info. Descriptions are never requested.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *MetaCache
	logger     *slog.Logger
}

// NewClient creates a new API client. cache may be nil to skip local caching.
func NewClient(apiKey string, cache *MetaCache, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      cache,
		logger:     logger,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	query.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("youtube api request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("youtube api error", "status", resp.StatusCode, "path", path)
		return nil, fmt.Errorf("youtube api returned status %d", resp.StatusCode)
	}
	return body, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Search returns up to limit results for a text query. Durations are not
// included; fetch them with Durations.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*domain.Track, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(limit))
	q.Set("q", query)

	body, err := c.doRequest(ctx, "/search", q)
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	var out []*domain.Track
	for _, it := range sr.Items {
		if it.ID.VideoID == "" {
			continue
		}
		out = append(out, &domain.Track{
			ID:         it.ID.VideoID,
			Title:      it.Snippet.Title,
			Uploader:   it.Snippet.ChannelTitle,
			WebpageURL: WatchURL(it.ID.VideoID),
		})
	}
	return out, nil
}

// Durations fetches durations in seconds for a batch of ids, chunked at 50
// per call. Every requested id is present in the result; ids the API did not
// return, and malformed duration strings, map to nil.
func (c *Client) Durations(ctx context.Context, ids []string) (map[string]*int, error) {
	out := make(map[string]*int, len(ids))

	var misses []string
	for _, id := range ids {
		if d, ok := c.cache.GetDuration(id); ok {
			out[id] = d
		} else {
			misses = append(misses, id)
		}
	}

	for i := 0; i < len(misses); i += batchSize {
		chunk := misses[i:min(i+batchSize, len(misses))]
		q := url.Values{}
		q.Set("part", "contentDetails")
		q.Set("id", strings.Join(chunk, ","))
		q.Set("maxResults", strconv.Itoa(batchSize))

		body, err := c.doRequest(ctx, "/videos", q)
		if err != nil {
			return nil, err
		}
		var vr videosResponse
		if err := json.Unmarshal(body, &vr); err != nil {
			return nil, fmt.Errorf("failed to parse videos response: %w", err)
		}
		for _, it := range vr.Items {
			d := domain.ParseISO8601Duration(it.ContentDetails.Duration)
			out[it.ID] = d
			c.cache.PutDuration(it.ID, d)
		}
		for _, id := range chunk {
			if _, ok := out[id]; !ok {
				out[id] = nil
			}
		}
	}
	return out, nil
}

// VideoInfo fetches minimal info for a single video: title, uploader,
// duration. Returns domain.ErrNotFound when the API knows nothing about the id.
func (c *Client) VideoInfo(ctx context.Context, id string) (*domain.Track, error) {
	if t, ok := c.cache.GetVideo(id); ok {
		return t, nil
	}

	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("id", id)

	body, err := c.doRequest(ctx, "/videos", q)
	if err != nil {
		return nil, err
	}
	var vr videosResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("failed to parse videos response: %w", err)
	}
	if len(vr.Items) == 0 {
		return nil, domain.ErrNotFound
	}
	it := vr.Items[0]
	title := it.Snippet.Title
	if title == "" {
		title = id
	}
	t := &domain.Track{
		ID:         id,
		Title:      title,
		Uploader:   it.Snippet.ChannelTitle,
		Duration:   domain.ParseISO8601Duration(it.ContentDetails.Duration),
		WebpageURL: WatchURL(id),
	}
	c.cache.PutVideo(t)
	return t, nil
}
