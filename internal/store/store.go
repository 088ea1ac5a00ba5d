// Package store persists runs, timelines and subscription statuses. Two
// backends exist: SQLite for local runs and Postgres for shared deployments,
// selected by the store.driver config.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricing-cli/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = eris.New("store: not found")

// Store is the persistence interface shared by both backends.
type Store interface {
	Migrate(ctx context.Context) error

	CreateRun(ctx context.Context, kind string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, domains, rows int) error
	LastRun(ctx context.Context, kind string) (*model.Run, error)

	SaveTimeline(ctx context.Context, runID string, rows []model.TimelineRow) error
	ListTimeline(ctx context.Context, domain string, limit int) ([]model.TimelineRow, error)
	CountReasons(ctx context.Context, runID string) (map[string]int, error)

	SaveSubscriptionStatus(ctx context.Context, status model.SubscriptionStatus) error

	Close() error
}
