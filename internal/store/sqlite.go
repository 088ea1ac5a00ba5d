package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pricing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	domains     INTEGER NOT NULL DEFAULT 0,
	rows        INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS timeline_rows (
	id                 TEXT PRIMARY KEY,
	run_id             TEXT NOT NULL REFERENCES runs(id),
	domain             TEXT NOT NULL,
	pricing_page_url   TEXT NOT NULL,
	week_start         TEXT,
	snapshot_date      TEXT,
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
	checked_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
CREATE INDEX IF NOT EXISTS idx_timeline_domain ON timeline_rows(domain, week_start);
CREATE INDEX IF NOT EXISTS idx_timeline_run ON timeline_rows(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    model.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Kind, run.Status, run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, domains, rows int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, domains = ?, rows = ?, finished_at = ? WHERE id = ?`,
		status, domains, rows, time.Now().UTC(), runID)
	return eris.Wrap(err, "sqlite: complete run")
}

func (s *SQLiteStore) LastRun(ctx context.Context, kind string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, domains, rows, started_at, finished_at
		 FROM runs WHERE kind = ? ORDER BY started_at DESC LIMIT 1`, kind)

	var run model.Run
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.Kind, &run.Status, &run.Domains, &run.Rows, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last run")
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func (s *SQLiteStore) SaveTimeline(ctx context.Context, runID string, rows []model.TimelineRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO timeline_rows
		 (id, run_id, domain, pricing_page_url, week_start, snapshot_date,
		  snapshot_timestamp, pricing_type, price_shown, reason_code, archive_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, r.Domain, r.PricingURL,
			dateOrNull(r.WeekStart), dateOrNull(r.SnapshotDate),
			r.SnapshotTimestamp, string(r.Period), r.PriceShown,
			r.ReasonCode, r.ArchiveURL)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert timeline row")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit timeline")
}

func (s *SQLiteStore) ListTimeline(ctx context.Context, domain string, limit int) ([]model.TimelineRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, pricing_page_url, week_start, snapshot_date,
		        snapshot_timestamp, pricing_type, price_shown, reason_code, archive_url
		 FROM timeline_rows WHERE domain = ? ORDER BY week_start ASC LIMIT ?`,
		domain, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list timeline")
	}
	defer rows.Close()

	var out []model.TimelineRow
	for rows.Next() {
		var r model.TimelineRow
		var week, snapDate, period sql.NullString
		if err := rows.Scan(&r.Domain, &r.PricingURL, &week, &snapDate,
			&r.SnapshotTimestamp, &period, &r.PriceShown, &r.ReasonCode, &r.ArchiveURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan timeline row")
		}
		r.WeekStart = parseDate(week.String)
		r.SnapshotDate = parseDate(snapDate.String)
		r.Period = model.BillingPeriod(period.String)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate timeline")
}

func (s *SQLiteStore) CountReasons(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason_code, COUNT(*) FROM timeline_rows WHERE run_id = ? GROUP BY reason_code`,
		runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count reasons")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reason count")
		}
		counts[reason] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate reason counts")
}

func (s *SQLiteStore) SaveSubscriptionStatus(ctx context.Context, status model.SubscriptionStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscription_status (domain, status, evidence_url, checked_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
		   status = excluded.status,
		   evidence_url = excluded.evidence_url,
		   checked_at = excluded.checked_at`,
		status.Domain, status.Status, status.EvidenceURL, status.CheckedAt)
	return eris.Wrap(err, "sqlite: save subscription status")
}

func dateOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
