// Package monitoring summarizes the health of the most recent collection
// runs from the store.
package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/store"
)

// RunSnapshot is a point-in-time view of the latest collection run.
type RunSnapshot struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Domains   int       `json:"domains"`
	Rows      int       `json:"rows"`
	StartedAt time.Time `json:"started_at"`

	// Observation breakdown.
	PriceRows     int            `json:"price_rows"`
	SentinelRows  int            `json:"sentinel_rows"`
	NoSnapshots   int            `json:"no_snapshots_in_range"`
	WeeksAllFail  int            `json:"weeks_all_failed"`
	NoPricesFound int            `json:"no_prices_visible_static"`
	Reasons       map[string]int `json:"reasons"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers run statistics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a collector over the given store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect summarizes the most recent run of the given kind.
func (c *Collector) Collect(ctx context.Context, kind string) (*RunSnapshot, error) {
	run, err := c.store.LastRun(ctx, kind)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: last run")
	}

	snap := &RunSnapshot{
		RunID:       run.ID,
		Kind:        run.Kind,
		Status:      string(run.Status),
		Domains:     run.Domains,
		Rows:        run.Rows,
		StartedAt:   run.StartedAt,
		Reasons:     make(map[string]int),
		CollectedAt: time.Now().UTC(),
	}

	counts, err := c.store.CountReasons(ctx, run.ID)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count reasons")
	}

	for reason, n := range counts {
		switch {
		case reason == "":
			snap.PriceRows += n
		case reason == model.ReasonNoSnapshots:
			snap.NoSnapshots += n
			snap.SentinelRows += n
		case strings.HasPrefix(reason, model.ReasonWeekAllFailed):
			snap.WeeksAllFail += n
			snap.SentinelRows += n
		case reason == model.ReasonNoPrices:
			snap.NoPricesFound += n
			snap.SentinelRows += n
		default:
			snap.SentinelRows += n
		}
		if reason != "" {
			snap.Reasons[reason] += n
		}
	}

	return snap, nil
}
