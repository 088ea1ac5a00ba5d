// Package fetcher provides the rate-limited HTTP client shared by the
// archive and live-site layers.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a page body is read. Pricing pages are
// small; anything larger is not worth scanning.
const maxBodyBytes = 2 << 20

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// RateLimiters are per-host limiters; hosts not listed get a fresh
	// limiter at DefaultLimit/DefaultBurst.
	RateLimiters map[string]*rate.Limiter
	DefaultLimit rate.Limit
	DefaultBurst int
}

// Response is a completed fetch.
type Response struct {
	StatusCode int
	Body       []byte
	FinalURL   string
	Header     http.Header
}

// HTTPFetcher wraps net/http with per-host rate limiting and a fixed
// deadline. It is safe for concurrent use, but workers own their instances;
// no process-global fetcher exists.
type HTTPFetcher struct {
	client *http.Client
	opts   Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates an HTTPFetcher with the given options.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "pricing-cli/1.0"
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 5
	}
	if opts.DefaultBurst == 0 {
		opts.DefaultBurst = 5
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for host, lim := range opts.RateLimiters {
		limiters[host] = lim
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.DefaultLimit, f.opts.DefaultBurst)
		f.limiters[host] = lim
	}
	return lim
}

// Get fetches a URL, following redirects. The configured timeout bounds the
// whole call; exceeding it surfaces as an error like any other network
// failure. There are no automatic retries at this layer.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   finalURL,
		Header:     resp.Header,
	}, nil
}

// HTML decodes the response body to a string, honoring a non-UTF-8 charset
// declared in the Content-Type header.
func (r *Response) HTML() string {
	return DecodeBody(r.Body, r.Header.Get("Content-Type"))
}
