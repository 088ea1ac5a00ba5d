package subscription

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pricing-cli/internal/fetcher"
	"github.com/sells-group/pricing-cli/internal/htmlx"
	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/resilience"
)

// commonSubscribePaths are probed before falling back to homepage text.
var commonSubscribePaths = []string{
	"/subscribe",
	"/subscription",
	"/pricing",
	"/membership",
	"/digital-subscription",
	"/offers",
	"/offer",
	"/account/subscribe",
}

// Checker classifies whether a domain sells paid subscriptions.
type Checker struct {
	fetch   *fetcher.HTTPFetcher
	signals Signals
	retry   resilience.RetryConfig
}

// NewChecker builds a checker over the given fetcher.
func NewChecker(fetch *fetcher.HTTPFetcher, signals Signals, retry resilience.RetryConfig) *Checker {
	return &Checker{fetch: fetch, signals: signals, retry: retry}
}

// CheckDomain probes the homepage and common subscription paths and scores
// their visible text. Live sites flake, so probes retry on transient errors;
// a domain that never answers is recorded inaccessible, not failed.
func (c *Checker) CheckDomain(ctx context.Context, domain string) model.SubscriptionStatus {
	d := model.NormalizeDomain(domain)
	base := "https://" + d
	status := model.SubscriptionStatus{Domain: d, CheckedAt: time.Now().UTC()}

	home, err := c.get(ctx, base)
	if err != nil || home.StatusCode >= 400 {
		status.Status = model.StatusInaccessible
		return status
	}

	for _, path := range commonSubscribePaths {
		resp, err := c.get(ctx, base+path)
		if err != nil || resp.StatusCode >= 400 {
			continue
		}
		text, err := htmlx.FlattenText(resp.HTML())
		if err != nil {
			continue
		}
		if c.signals.LooksPaid(text) {
			status.Status = model.StatusSubscription
			status.EvidenceURL = resp.FinalURL
			return status
		}
	}

	homeText, err := htmlx.FlattenText(home.HTML())
	if err == nil && c.signals.LooksPaid(homeText) {
		status.Status = model.StatusSubscription
		status.EvidenceURL = base
		return status
	}

	status.Status = model.StatusNoSubscription
	status.EvidenceURL = base
	return status
}

func (c *Checker) get(ctx context.Context, url string) (*fetcher.Response, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*fetcher.Response, error) {
		r, err := c.fetch.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		if resilience.IsTransientHTTPStatus(r.StatusCode) {
			return r, resilience.NewTransientError(
				eris.Errorf("subscription: status %d", r.StatusCode), r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		zap.L().Debug("subscription: probe failed", zap.String("url", url), zap.Error(err))
	}
	return resp, err
}
