package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricing-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateAndCompleteRun(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "collect", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := st.CreateRun(ctx, "collect")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunRunning, run.Status)

	mock.ExpectExec("UPDATE runs SET").
		WithArgs("complete", 3, 18, pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunComplete, 3, 18))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastRun(t *testing.T) {
	st, mock := newMockStore(t)
	started := time.Now().UTC()
	finished := started.Add(time.Minute)

	mock.ExpectQuery("SELECT id, kind, status, domains, rows, started_at, finished_at").
		WithArgs("collect").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "kind", "status", "domains", "rows", "started_at", "finished_at"}).
			AddRow("run-1", "collect", model.RunStatus("complete"), 3, 18, started, &finished))

	run, err := st.LastRun(context.Background(), "collect")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.RunComplete, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastRun_NotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, kind, status, domains, rows, started_at, finished_at").
		WithArgs("collect").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "kind", "status", "domains", "rows", "started_at", "finished_at"}))

	_, err := st.LastRun(context.Background(), "collect")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresSaveTimeline(t *testing.T) {
	st, mock := newMockStore(t)
	week := time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC)

	rows := []model.TimelineRow{
		{
			Domain:            "example.com",
			PricingURL:        "https://example.com/subscribe",
			WeekStart:         week,
			SnapshotDate:      week.AddDate(0, 0, 1),
			SnapshotTimestamp: "20230612080000",
			Period:            model.PeriodMonthly,
			PriceShown:        "$9.99/month",
		},
		{
			Domain:     "example.com",
			PricingURL: "https://example.com/subscribe",
			ReasonCode: model.ReasonNoSnapshots,
		},
	}

	for range rows {
		mock.ExpectExec("INSERT INTO timeline_rows").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, st.SaveTimeline(context.Background(), "run-1", rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListTimeline(t *testing.T) {
	st, mock := newMockStore(t)
	week := time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC)
	snap := week.AddDate(0, 0, 1)

	mock.ExpectQuery("SELECT domain, pricing_page_url, week_start").
		WithArgs("example.com", 1000).
		WillReturnRows(pgxmock.NewRows([]string{
			"domain", "pricing_page_url", "week_start", "snapshot_date",
			"snapshot_timestamp", "pricing_type", "price_shown", "reason_code", "archive_url",
		}).
			AddRow("example.com", "u", &week, &snap, "20230612080000", "monthly", "$9.99/month", "", "a").
			AddRow("example.com", "u", (*time.Time)(nil), (*time.Time)(nil), "", "", "", model.ReasonNoSnapshots, ""))

	got, err := st.ListTimeline(context.Background(), "example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, week, got[0].WeekStart)
	assert.Equal(t, model.PeriodMonthly, got[0].Period)
	assert.True(t, got[1].WeekStart.IsZero())
	assert.True(t, got[1].IsSentinel())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountReasons(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT reason_code, COUNT").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"reason_code", "count"}).
			AddRow("", 4).
			AddRow(model.ReasonNoPrices, 2))

	counts, err := st.CountReasons(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 4, counts[""])
	assert.Equal(t, 2, counts[model.ReasonNoPrices])
}

func TestPostgresSaveSubscriptionStatus(t *testing.T) {
	st, mock := newMockStore(t)
	status := model.SubscriptionStatus{
		Domain:      "example.com",
		Status:      model.StatusSubscription,
		EvidenceURL: "https://example.com/subscribe",
		CheckedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO subscription_status").
		WithArgs(status.Domain, status.Status, status.EvidenceURL, status.CheckedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveSubscriptionStatus(context.Background(), status))
	assert.NoError(t, mock.ExpectationsWereMet())
}
