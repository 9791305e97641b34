// Package wayback reads historical page captures from the Internet
// Archive's availability API.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
)

const availableAPIBase = "https://archive.org/wayback/available"

// A Capture is the closest archived copy of a page to a requested date.
type Capture struct {
	URL        string
	Timestamp  string // archive format, YYYYMMDDhhmmss
	CapturedAt time.Time
}

type Client struct {
	httpClient *http.Client
	apiBase    string
	log        *slog.Logger
}

func NewClient(log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    availableAPIBase,
		log:        log.With("component", "wayback"),
	}
}

type availableResponse struct {
	ArchivedSnapshots struct {
		Closest *struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// Closest finds the capture nearest to monthsAgo before now. A month is
// approximated as 30 days, which matches the archive's own day-granularity
// timestamps. Returns (nil, nil) when the archive holds no capture.
func (c *Client) Closest(ctx context.Context, pageURL string, monthsAgo int) (*Capture, error) {
	target := time.Now().AddDate(0, 0, -30*monthsAgo).Format("20060102")
	u := fmt.Sprintf("%s?url=%s&timestamp=%s", c.apiBase, url.QueryEscape(pageURL), target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpx.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability lookup: %w", err)
	}
	defer resp.Body.Close()
	observability.IncPagesFetched()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability lookup: status %d", resp.StatusCode)
	}

	var payload availableResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode availability response: %w", err)
	}

	closest := payload.ArchivedSnapshots.Closest
	if closest == nil || !closest.Available || closest.URL == "" {
		return nil, nil
	}

	capturedAt, err := time.Parse("20060102150405", closest.Timestamp)
	if err != nil {
		c.log.Warn("unparseable capture timestamp", "timestamp", closest.Timestamp)
	}
	return &Capture{URL: closest.URL, Timestamp: closest.Timestamp, CapturedAt: capturedAt}, nil
}

// FetchBody downloads the archived page itself.
func (c *Client) FetchBody(ctx context.Context, capture *Capture) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, capture.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpx.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch capture: %w", err)
	}
	defer resp.Body.Close()
	observability.IncPagesFetched()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch capture: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
