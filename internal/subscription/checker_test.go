package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pricing-cli/internal/fetcher"
	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/resilience"
)

func TestCheckDomain_UnresolvableIsInaccessible(t *testing.T) {
	fetch := fetcher.New(fetcher.Options{
		Timeout:      2 * time.Second,
		DefaultLimit: 1000,
		DefaultBurst: 1000,
	})
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 1

	c := NewChecker(fetch, DefaultSignals(), retry)
	// Reserved TLD, guaranteed not to resolve.
	status := c.CheckDomain(context.Background(), "no-such-host.invalid")

	assert.Equal(t, "no-such-host.invalid", status.Domain)
	assert.Equal(t, model.StatusInaccessible, status.Status)
	assert.Empty(t, status.EvidenceURL)
	assert.False(t, status.CheckedAt.IsZero())
}

func TestCheckDomain_NormalizesInput(t *testing.T) {
	fetch := fetcher.New(fetcher.Options{
		Timeout:      2 * time.Second,
		DefaultLimit: 1000,
		DefaultBurst: 1000,
	})
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 1

	c := NewChecker(fetch, DefaultSignals(), retry)
	status := c.CheckDomain(context.Background(), "https://No-Such-Host.INVALID/some/path")

	assert.Equal(t, "no-such-host.invalid", status.Domain)
}
