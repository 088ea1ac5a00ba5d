package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricing-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "pricing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	require.NoError(t, err)
	return d
}

func TestSQLiteRunLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "collect")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunRunning, run.Status)

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunComplete, 5, 42))

	got, err := st.LastRun(ctx, "collect")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunComplete, got.Status)
	assert.Equal(t, 5, got.Domains)
	assert.Equal(t, 42, got.Rows)
	require.NotNil(t, got.FinishedAt)
}

func TestSQLiteLastRun_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.LastRun(context.Background(), "collect")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteTimelineRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "collect")
	require.NoError(t, err)

	rows := []model.TimelineRow{
		{
			Domain:            "example.com",
			PricingURL:        "https://example.com/subscribe",
			WeekStart:         testDay(t, "2023-06-11"),
			SnapshotDate:      testDay(t, "2023-06-12"),
			SnapshotTimestamp: "20230612080000",
			Period:            model.PeriodMonthly,
			PriceShown:        "$9.99/month",
			ArchiveURL:        "https://web.archive.org/web/20230612080000/https://example.com/subscribe",
		},
		{
			Domain:     "example.com",
			PricingURL: "https://example.com/subscribe",
			WeekStart:  testDay(t, "2023-06-18"),
			ReasonCode: model.ReasonWeekAllFailed + ":http_404",
		},
		{
			Domain:     "news.org",
			PricingURL: "https://news.org/plans",
			ReasonCode: model.ReasonNoSnapshots,
		},
	}
	require.NoError(t, st.SaveTimeline(ctx, run.ID, rows))

	got, err := st.ListTimeline(ctx, "example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "$9.99/month", got[0].PriceShown)
	assert.Equal(t, model.PeriodMonthly, got[0].Period)
	assert.Equal(t, testDay(t, "2023-06-11"), got[0].WeekStart)
	assert.Equal(t, testDay(t, "2023-06-12"), got[0].SnapshotDate)
	assert.False(t, got[0].IsSentinel())

	assert.True(t, got[1].IsSentinel())
	assert.Equal(t, testDay(t, "2023-06-18"), got[1].WeekStart)
	assert.True(t, got[1].SnapshotDate.IsZero())
}

func TestSQLiteCountReasons(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "collect")
	require.NoError(t, err)

	rows := []model.TimelineRow{
		{Domain: "a.com", PricingURL: "u", PriceShown: "$5"},
		{Domain: "a.com", PricingURL: "u", ReasonCode: model.ReasonNoPrices},
		{Domain: "b.com", PricingURL: "u", ReasonCode: model.ReasonNoPrices},
		{Domain: "c.com", PricingURL: "u", ReasonCode: model.ReasonNoSnapshots},
	}
	require.NoError(t, st.SaveTimeline(ctx, run.ID, rows))

	counts, err := st.CountReasons(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[""])
	assert.Equal(t, 2, counts[model.ReasonNoPrices])
	assert.Equal(t, 1, counts[model.ReasonNoSnapshots])
}

func TestSQLiteSubscriptionStatusUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := model.SubscriptionStatus{
		Domain:      "example.com",
		Status:      model.StatusNoSubscription,
		EvidenceURL: "https://example.com",
		CheckedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveSubscriptionStatus(ctx, first))

	second := first
	second.Status = model.StatusSubscription
	second.EvidenceURL = "https://example.com/subscribe"
	require.NoError(t, st.SaveSubscriptionStatus(ctx, second))
}
