package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricing-cli/internal/fetcher"
)

func testClient(srv *httptest.Server) *Client {
	return NewClient(fetcher.New(fetcher.Options{
		Timeout:      2 * time.Second,
		DefaultLimit: 1000,
		DefaultBurst: 1000,
	}), Options{
		CDXBaseURL: srv.URL + "/cdx",
		WebBaseURL: srv.URL + "/web",
	})
}

func dateRange(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	from, err := time.Parse("2006-01-02", "2023-01-01")
	require.NoError(t, err)
	to, err := time.Parse("2006-01-02", "2023-12-31")
	require.NoError(t, err)
	return from, to
}

func TestListSnapshots_ParsesAndSorts(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		// Header row first; data rows out of order.
		_, _ = w.Write([]byte(`[["timestamp","statuscode"],["20230301120000","200"],["20230101080000","200"]]`))
	}))
	defer srv.Close()

	from, to := dateRange(t)
	snaps := testClient(srv).ListSnapshots(context.Background(), "https://example.com/subscribe", from, to)

	require.Len(t, snaps, 2)
	assert.Equal(t, "20230101080000", snaps[0].Timestamp)
	assert.Equal(t, "20230301120000", snaps[1].Timestamp)
	assert.True(t, snaps[0].CapturedAt.Before(snaps[1].CapturedAt))

	assert.Equal(t, []string{"json"}, gotQuery["output"])
	assert.Equal(t, []string{"timestamp,statuscode"}, gotQuery["fl"])
	assert.Equal(t, []string{"statuscode:200"}, gotQuery["filter"])
	assert.Equal(t, []string{"digest"}, gotQuery["collapse"])
	assert.Equal(t, []string{"20230101"}, gotQuery["from"])
	assert.Equal(t, []string{"20231231"}, gotQuery["to"])
}

func TestListSnapshots_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"rows"}`))
		}},
		{"header only", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[["timestamp","statuscode"]]`))
		}},
		{"empty body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			from, to := dateRange(t)
			snaps := testClient(srv).ListSnapshots(context.Background(), "https://example.com", from, to)
			assert.Empty(t, snaps)
		})
	}
}

func TestListSnapshots_SkipsMalformedTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[["timestamp","statuscode"],["not-a-timestamp","200"],["20230601000000","200"]]`))
	}))
	defer srv.Close()

	from, to := dateRange(t)
	snaps := testClient(srv).ListSnapshots(context.Background(), "https://example.com", from, to)
	require.Len(t, snaps, 1)
	assert.Equal(t, "20230601000000", snaps[0].Timestamp)
}

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/web/20230601000000/https://example.com/ok":
			_, _ = w.Write([]byte("<html><body>$5/month</body></html>"))
		case "/web/20230601000000/https://example.com/blank":
			_, _ = w.Write([]byte("   \n  "))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(srv)
	ctx := context.Background()

	html, reason, ok := c.FetchSnapshot(ctx, "20230601000000", "https://example.com/ok")
	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.Contains(t, html, "$5/month")

	_, reason, ok = c.FetchSnapshot(ctx, "20230601000000", "https://example.com/blank")
	assert.False(t, ok)
	assert.Equal(t, FailEmptyHTML, reason)

	_, reason, ok = c.FetchSnapshot(ctx, "20230601000000", "https://example.com/missing")
	assert.False(t, ok)
	assert.Equal(t, "http_404", reason)
}

func TestFetchSnapshot_RequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	_, reason, ok := testClient(srv).FetchSnapshot(context.Background(), "20230601000000", "https://example.com")
	assert.False(t, ok)
	assert.Equal(t, FailRequest, reason)
}

func TestSnapshotURL(t *testing.T) {
	c := NewClient(fetcher.New(fetcher.Options{}), DefaultOptions())
	assert.Equal(t,
		"https://web.archive.org/web/20230601000000/https://example.com/pricing",
		c.SnapshotURL("20230601000000", "https://example.com/pricing"),
	)
}
