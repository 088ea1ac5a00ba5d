package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pricing-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	domains     INTEGER NOT NULL DEFAULT 0,
	rows        INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS timeline_rows (
	id                 TEXT PRIMARY KEY,
	run_id             TEXT NOT NULL REFERENCES runs(id),
	domain             TEXT NOT NULL,
	pricing_page_url   TEXT NOT NULL,
	week_start         DATE,
	snapshot_date      DATE,
	snapshot_timestamp TEXT,
	pricing_type       TEXT,
	price_shown        TEXT,
	reason_code        TEXT,
	archive_url        TEXT
);

CREATE TABLE IF NOT EXISTS subscription_status (
	domain       TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	evidence_url TEXT,
	checked_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
CREATE INDEX IF NOT EXISTS idx_timeline_domain ON timeline_rows(domain, week_start);
CREATE INDEX IF NOT EXISTS idx_timeline_run ON timeline_rows(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    model.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Kind, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, domains, rows int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, domains = $2, rows = $3, finished_at = $4 WHERE id = $5`,
		string(status), domains, rows, time.Now().UTC(), runID)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) LastRun(ctx context.Context, kind string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, domains, rows, started_at, finished_at
		 FROM runs WHERE kind = $1 ORDER BY started_at DESC LIMIT 1`, kind)

	var run model.Run
	var finished *time.Time
	err := row.Scan(&run.ID, &run.Kind, &run.Status, &run.Domains, &run.Rows, &run.StartedAt, &finished)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last run")
	}
	run.FinishedAt = finished
	return &run, nil
}

func (s *PostgresStore) SaveTimeline(ctx context.Context, runID string, rows []model.TimelineRow) error {
	for _, r := range rows {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO timeline_rows
			 (id, run_id, domain, pricing_page_url, week_start, snapshot_date,
			  snapshot_timestamp, pricing_type, price_shown, reason_code, archive_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), runID, r.Domain, r.PricingURL,
			pgDate(r.WeekStart), pgDate(r.SnapshotDate),
			r.SnapshotTimestamp, string(r.Period), r.PriceShown,
			r.ReasonCode, r.ArchiveURL)
		if err != nil {
			return eris.Wrap(err, "postgres: insert timeline row")
		}
	}
	return nil
}

func (s *PostgresStore) ListTimeline(ctx context.Context, domain string, limit int) ([]model.TimelineRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT domain, pricing_page_url, week_start, snapshot_date,
		        snapshot_timestamp, pricing_type, price_shown, reason_code, archive_url
		 FROM timeline_rows WHERE domain = $1 ORDER BY week_start ASC LIMIT $2`,
		domain, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list timeline")
	}
	defer rows.Close()

	var out []model.TimelineRow
	for rows.Next() {
		var r model.TimelineRow
		var week, snapDate *time.Time
		var period string
		if err := rows.Scan(&r.Domain, &r.PricingURL, &week, &snapDate,
			&r.SnapshotTimestamp, &period, &r.PriceShown, &r.ReasonCode, &r.ArchiveURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan timeline row")
		}
		if week != nil {
			r.WeekStart = *week
		}
		if snapDate != nil {
			r.SnapshotDate = *snapDate
		}
		r.Period = model.BillingPeriod(period)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate timeline")
}

func (s *PostgresStore) CountReasons(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT reason_code, COUNT(*) FROM timeline_rows WHERE run_id = $1 GROUP BY reason_code`,
		runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count reasons")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reason count")
		}
		counts[reason] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate reason counts")
}

func (s *PostgresStore) SaveSubscriptionStatus(ctx context.Context, status model.SubscriptionStatus) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscription_status (domain, status, evidence_url, checked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (domain) DO UPDATE SET
		   status = EXCLUDED.status,
		   evidence_url = EXCLUDED.evidence_url,
		   checked_at = EXCLUDED.checked_at`,
		status.Domain, status.Status, status.EvidenceURL, status.CheckedAt)
	return eris.Wrap(err, "postgres: save subscription status")
}

func pgDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
