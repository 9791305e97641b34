package wayback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.apiBase = srv.URL
	return c
}

func TestClosest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://acme.com/pricing", r.URL.Query().Get("url"))
		// Requested timestamp is 6 months (180 days) back, day precision.
		want := time.Now().AddDate(0, 0, -180).Format("20060102")
		assert.Equal(t, want, r.URL.Query().Get("timestamp"))
		fmt.Fprint(w, `{"archived_snapshots":{"closest":{
			"available":true,
			"url":"http://web.archive.org/web/20250301000000/https://acme.com/pricing",
			"timestamp":"20250301000000"}}}`)
	})

	got, err := c.Closest(context.Background(), "https://acme.com/pricing", 6)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "20250301000000", got.Timestamp)
	assert.Equal(t, 2025, got.CapturedAt.Year())
}

func TestClosestNoCapture(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"archived_snapshots":{}}`)
	})

	got, err := c.Closest(context.Background(), "https://ghost.io/pricing", 6)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchBody(t *testing.T) {
	c := newTestClient(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>archived pricing</html>")
	}))
	defer srv.Close()

	body, err := c.FetchBody(context.Background(), &Capture{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, string(body), "archived pricing")
}
