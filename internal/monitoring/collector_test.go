package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/store"
)

// fakeStore returns canned run data.
type fakeStore struct {
	store.Store

	run     *model.Run
	runErr  error
	reasons map[string]int
}

func (f *fakeStore) LastRun(context.Context, string) (*model.Run, error) {
	return f.run, f.runErr
}

func (f *fakeStore) CountReasons(context.Context, string) (map[string]int, error) {
	return f.reasons, nil
}

func TestCollect(t *testing.T) {
	fs := &fakeStore{
		run: &model.Run{
			ID:        "run-1",
			Kind:      "collect",
			Status:    model.RunComplete,
			Domains:   10,
			Rows:      120,
			StartedAt: time.Now().UTC(),
		},
		reasons: map[string]int{
			"":                           90,
			model.ReasonNoSnapshots:      3,
			model.ReasonNoPrices:         20,
			"week_all_failed:http_404":   5,
			"week_all_failed:empty_html": 2,
		},
	}

	snap, err := NewCollector(fs).Collect(context.Background(), "collect")
	require.NoError(t, err)

	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, "complete", snap.Status)
	assert.Equal(t, 90, snap.PriceRows)
	assert.Equal(t, 30, snap.SentinelRows)
	assert.Equal(t, 3, snap.NoSnapshots)
	assert.Equal(t, 7, snap.WeeksAllFail)
	assert.Equal(t, 20, snap.NoPricesFound)
	assert.Equal(t, 5, snap.Reasons["week_all_failed:http_404"])
	assert.NotContains(t, snap.Reasons, "")
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollect_NoRuns(t *testing.T) {
	fs := &fakeStore{runErr: store.ErrNotFound}

	_, err := NewCollector(fs).Collect(context.Background(), "collect")
	assert.Error(t, err)
}
