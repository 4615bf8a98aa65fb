// Package yamusic is an authenticated client of the Yandex Music HTTP API:
// track metadata, text search, cover art and signed direct download links.
package yamusic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/httpx"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

const (
	defaultAPIBase = "https://api.music.yandex.net"

	// Fixed encoding policy for uploads.
	codecMP3       = "mp3"
	bitrateKbps    = 192
	coverThumbSize = "200x200"

	// maxConcurrent bounds in-flight API calls so a burst of inline queries
	// cannot pile requests onto the backend.
	maxConcurrent = 4
)

// Client talks to the Yandex Music API on behalf of a user token. Safe for
// concurrent use; all API calls share one rate limiter and one concurrency
// bound.
type Client struct {
	log     *zap.Logger
	http    *http.Client
	base    string
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New constructs a metadata client with a shared HTTP transport.
func New(log *zap.Logger) *Client {
	return &Client{
		log:     log,
		http:    httpx.Shared(),
		base:    defaultAPIBase,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), maxConcurrent),
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
}

// getJSON performs one rate-limited authenticated GET and decodes the body.
func (c *Client) getJSON(ctx context.Context, token, rawURL string, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := newGetRequest(ctx, rawURL, token)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yamusic: %s: status %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newGetRequest(ctx context.Context, rawURL, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "OAuth "+token)
	}
	return req, nil
}

// flexID tolerates the id field arriving as a JSON number or a string; the
// API is inconsistent across endpoints.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// trackJSON mirrors the API's track object.
type trackJSON struct {
	ID         flexID       `json:"id"`
	Title      string       `json:"title"`
	Artists    []artistJSON `json:"artists"`
	DurationMs int64        `json:"durationMs"`
	CoverURI   string       `json:"coverUri"`
	Available  bool         `json:"available"`
}

type artistJSON struct {
	Name string `json:"name"`
}

func (t trackJSON) toModel() model.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return model.Track{
		ID:         string(t.ID),
		Title:      t.Title,
		Artists:    artists,
		DurationMs: t.DurationMs,
		CoverURI:   t.CoverURI,
		Available:  t.Available,
	}
}

// Track fetches one track's metadata by id.
func (c *Client) Track(ctx context.Context, token, id string) (model.Track, error) {
	var out struct {
		Result []trackJSON `json:"result"`
	}
	if err := c.getJSON(ctx, token, c.base+"/tracks/"+url.PathEscape(id), &out); err != nil {
		return model.Track{}, fmt.Errorf("fetch track %s: %w", id, err)
	}
	if len(out.Result) == 0 {
		return model.Track{}, fmt.Errorf("track %s: %w", id, errs.ErrNotFound)
	}
	return out.Result[0].toModel(), nil
}

// Search returns up to limit tracks in the backend's relevance order. An
// empty result is not an error.
func (c *Client) Search(ctx context.Context, token, query string, limit int) ([]model.Track, error) {
	q := url.Values{}
	q.Set("text", query)
	q.Set("type", "track")
	q.Set("page", "0")

	var out struct {
		Result struct {
			Tracks struct {
				Results []trackJSON `json:"results"`
			} `json:"tracks"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, token, c.base+"/search?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := out.Result.Tracks.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	tracks := make([]model.Track, 0, len(results))
	for _, t := range results {
		tracks = append(tracks, t.toModel())
	}
	return tracks, nil
}

// CoverURL resolves the track's size-templated cover URI at thumbnail size.
// Empty when the track carries no cover.
func (c *Client) CoverURL(t model.Track) string {
	if t.CoverURI == "" {
		return ""
	}
	return "https://" + strings.Replace(t.CoverURI, "%%", coverThumbSize, 1)
}

// Download fetches raw bytes from a resolved asset URL (audio or cover).
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
