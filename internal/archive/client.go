// Package archive talks to the web archive: it lists captures through the
// CDX API and loads individual snapshots, and it groups captures into weekly
// buckets for sampling.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pricing-cli/internal/fetcher"
	"github.com/sells-group/pricing-cli/internal/model"
)

// Fetch failure reasons recorded per snapshot attempt.
const (
	FailHTTPPrefix = "http_"
	FailEmptyHTML  = "empty_html"
	FailRequest    = "request_exception"
)

// Options configures an archive client.
type Options struct {
	// CDXBaseURL is the snapshot listing endpoint.
	CDXBaseURL string
	// WebBaseURL is the snapshot fetch endpoint prefix.
	WebBaseURL string
}

// DefaultOptions points at the Wayback Machine.
func DefaultOptions() Options {
	return Options{
		CDXBaseURL: "https://web.archive.org/cdx/search/cdx",
		WebBaseURL: "https://web.archive.org/web",
	}
}

// Client lists and fetches archived captures. Each worker owns its Client;
// connection reuse inside one worker is an optimization, not a correctness
// requirement.
type Client struct {
	http *fetcher.HTTPFetcher
	opts Options
}

// NewClient creates an archive client on top of the given fetcher.
func NewClient(http *fetcher.HTTPFetcher, opts Options) *Client {
	if opts.CDXBaseURL == "" {
		opts.CDXBaseURL = DefaultOptions().CDXBaseURL
	}
	if opts.WebBaseURL == "" {
		opts.WebBaseURL = DefaultOptions().WebBaseURL
	}
	return &Client{http: http, opts: opts}
}

// SnapshotURL builds the deterministic archived-page URL for a capture.
func (c *Client) SnapshotURL(timestamp, target string) string {
	return fmt.Sprintf("%s/%s/%s", c.opts.WebBaseURL, timestamp, target)
}

// ListSnapshots enumerates successful captures of target in [from, to],
// ascending by capture time, with consecutive identical-content captures
// collapsed server-side by digest. Every failure mode (network, status,
// malformed response) yields an empty slice: callers treat it as "no
// snapshots in range", never as an error.
func (c *Client) ListSnapshots(ctx context.Context, target string, from, to time.Time) []model.Snapshot {
	q := url.Values{}
	q.Set("url", target)
	q.Set("from", from.Format("20060102"))
	q.Set("to", to.Format("20060102"))
	q.Set("output", "json")
	q.Set("fl", "timestamp,statuscode")
	q.Set("filter", "statuscode:200")
	q.Set("collapse", "digest")

	resp, err := c.http.Get(ctx, c.opts.CDXBaseURL+"?"+q.Encode())
	if err != nil {
		zap.L().Debug("archive: cdx request failed", zap.String("url", target), zap.Error(err))
		return nil
	}
	if resp.StatusCode >= 400 {
		zap.L().Debug("archive: cdx non-success status",
			zap.String("url", target), zap.Int("status", resp.StatusCode))
		return nil
	}

	// Rows of [timestamp, statuscode]; the first row is a header.
	var rows [][]string
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		zap.L().Debug("archive: cdx malformed response", zap.String("url", target), zap.Error(err))
		return nil
	}
	if len(rows) <= 1 {
		return nil
	}

	snaps := make([]model.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 1 {
			continue
		}
		snap, err := model.NewSnapshot(row[0])
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	sortSnapshots(snaps)
	return snaps
}

// FetchSnapshot loads one archived capture. ok is true when the status is
// non-error and the body is non-blank; otherwise reason holds the failure
// code for the sentinel row.
func (c *Client) FetchSnapshot(ctx context.Context, timestamp, target string) (html string, reason string, ok bool) {
	resp, err := c.http.Get(ctx, c.SnapshotURL(timestamp, target))
	if err != nil {
		return "", FailRequest, false
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Sprintf("%s%d", FailHTTPPrefix, resp.StatusCode), false
	}
	html = resp.HTML()
	if strings.TrimSpace(html) == "" {
		return "", FailEmptyHTML, false
	}
	return html, "", true
}
