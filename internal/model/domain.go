package model

import (
	"strings"
	"time"
)

// DomainRecord is one publisher from the input list.
type DomainRecord struct {
	Domain     string `json:"domain"`
	PricingURL string `json:"pricing_url,omitempty"`
}

// NormalizeDomain strips scheme and path from a raw domain cell.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return strings.ToLower(d)
}

// Subscription classification outcomes.
const (
	StatusSubscription   = "subscription"
	StatusNoSubscription = "no_subscription"
	StatusInaccessible   = "inaccessible"
)

// SubscriptionStatus is the result of classifying one domain.
type SubscriptionStatus struct {
	Domain      string    `json:"domain"`
	Status      string    `json:"subscription_status"`
	EvidenceURL string    `json:"evidence_url"`
	CheckedAt   time.Time `json:"checked_at"`
}

// PricingPageReport is the result of locating and inspecting a domain's
// pricing page.
type PricingPageReport struct {
	Domain           string   `json:"domain"`
	PricingURL       string   `json:"pricing_url"`
	Method           string   `json:"pricing_url_method"` // common_path | homepage_link | fallback_homepage | none
	PageOK           bool     `json:"pricing_page_ok"`
	Dynamic          bool     `json:"dynamic_components"`
	Popup            bool     `json:"popup_overlay"`
	DetectedPrices   []string `json:"detected_prices"`
	WaybackAvailable bool     `json:"wayback_available"`
	WaybackURL       string   `json:"wayback_url"`
	Notes            string   `json:"notes"`
}

// RunStatus tracks a batch run's lifecycle in the store.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// Run is one recorded batch invocation (check, findpage, verify or collect).
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     RunStatus  `json:"status"`
	Domains    int        `json:"domains"`
	Rows       int        `json:"rows"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
