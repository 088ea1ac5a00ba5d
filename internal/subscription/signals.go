// Package subscription classifies publisher domains: does the site sell a
// paid subscription, where is its pricing page, and does that page carry
// static pricing signals.
package subscription

import (
	"regexp"
	"strings"
)

// Signals is the phrase evidence the paid-subscription classifier scores.
// Explicit data so tests can substitute synthetic lists.
type Signals struct {
	Paid       []string
	Newsletter []string
	Commerce   []string
}

// DefaultSignals returns the production signal lists.
func DefaultSignals() Signals {
	return Signals{
		Paid: []string{
			"digital subscription",
			"subscriber-only",
			"subscriber only",
			"all access",
			"choose plan",
			"choose a plan",
			"subscribe now",
			"start your trial",
			"free trial",
			"paywall",
			"gain unlimited access",
			"unlimited access to",
			"cancel anytime",
			"cancel or pause anytime",
			"billed",
			"billing",
			"billed as",
			"every 4 weeks",
			"every four weeks",
			"thereafter",
			"continue with card",
			"credit card",
			"paypal",
			"checkout",
		},
		Newsletter: []string{
			"newsletter",
			"newsletters",
			"subscribe to our newsletter",
			"subscribe to the newsletter",
			"newsletter sign up",
			"sign up",
			"signup",
			"email",
			"inbox",
			"daily",
			"morning",
			"updates",
			"alerts",
			"manage newsletters",
		},
		Commerce: []string{
			"$",
			"credit card",
			"paypal",
			"checkout",
			"continue with card",
			"billed",
			"billing",
			"billed as",
			"every 4 weeks",
			"every four weeks",
			"per month",
			"per year",
			"a week",
			"/week",
			"per week",
			"thereafter",
		},
	}
}

// LooksPaid decides whether flattened page text reads like a paid
// subscription offer. Newsletter-only language without any commerce signal
// is rejected; conservative price language plus subscription wording is
// accepted.
func (s Signals) LooksPaid(text string) bool {
	t := strings.ToLower(text)

	hasNewsletter := containsAny(t, s.Newsletter)
	hasPaid := containsAny(t, s.Paid)

	hasPrice := strings.Contains(t, "$") ||
		strings.Contains(t, "per month") ||
		strings.Contains(t, "per year") ||
		strings.Contains(t, "/week") ||
		strings.Contains(t, " per week")
	hasCommerce := hasPrice || containsAny(t, s.Commerce)

	if hasNewsletter && !hasCommerce {
		return false
	}
	if !hasCommerce {
		return false
	}
	if hasPaid {
		return true
	}
	if hasPrice && (strings.Contains(t, "subscribe") ||
		strings.Contains(t, "subscription") ||
		strings.Contains(t, "subscriber")) {
		return true
	}
	return false
}

func containsAny(t string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// Static pricing-signal patterns for the verify stage: currency marks
// (including escaped/entity forms), ISO currency codes, and price-shaped
// number/cadence text.
var (
	currencyRe = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`\$(?:\{)?\s*\d`,
		`US\$\s*\d`, `CA\$\s*\d`, `A\$\s*\d`, `NZ\$\s*\d`, `S\$\s*\d`, `HK\$\s*\d`,
		`€\s*\d`, `£\s*\d`, `¥\s*\d`, `₩\s*\d`, `₽\s*\d`, `₺\s*\d`, `₫\s*\d`,
		`₴\s*\d`, `₪\s*\d`, `₱\s*\d`, `฿\s*\d`, `₹\s*\d`,
		`\\u0024\s*\d`, `\\u20b9\s*\d`,
		`&#36;\s*\d`, `&dollar;\s*\d`, `&#8377;\s*\d`, `&#x20b9;\s*\d`,
	}, "|"))

	currencyCodeRe = regexp.MustCompile(`(?i)\b(?:USD|INR|EUR|GBP|AUD|CAD|NZD|SGD|HKD|JPY|CNY|RMB|KRW|AED|SAR|ZAR|BRL|MXN|IDR|MYR|PHP|THB|VND|TRY|RUB|ILS|NGN|Rs\.?|rupees?)\b`)

	priceShapeRe = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`\b\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?\b`,
		`\b\d+(?:\.\d{1,2})?\s*/\s*(?:mo|month|yr|year|week|day)\b`,
		`\bper\s*(?:month|year|week|day)\b`,
		`\bbilled\s*(?:monthly|annually|yearly|weekly)\b`,
	}, "|"))
)

// HasPricingSignal reports whether text carries any static pricing signal.
func HasPricingSignal(text string) bool {
	if text == "" {
		return false
	}
	return currencyRe.MatchString(text) ||
		currencyCodeRe.MatchString(text) ||
		priceShapeRe.MatchString(text)
}

// Markers of JS-driven shells: paywalls frequently render prices only
// client-side, which the static pipeline cannot see.
var dynamicMarkers = []string{
	`id="__next"`,
	`id="__nuxt"`,
	`id="root"`,
	"data-reactroot",
	"__next_data__",
	"window.__",
	`type="module"`,
	"ng-app",
	"angular",
	"svelte",
	"webpack",
}

// LooksDynamic reports whether the page's pricing content is likely
// JS-rendered: framework markers, or subscription wording with no static
// price and script tags present.
func LooksDynamic(html, text string) bool {
	h := strings.ToLower(html)
	t := strings.ToLower(text)

	for _, m := range dynamicMarkers {
		if strings.Contains(h, m) {
			return true
		}
	}

	mentionsSubscribe := strings.Contains(t, "subscribe") ||
		strings.Contains(t, "subscription") ||
		strings.Contains(t, "membership") ||
		strings.Contains(t, "plan")
	if mentionsSubscribe && !HasPricingSignal(t) && strings.Contains(h, "script") {
		return true
	}
	return false
}

var overlayMarkers = []string{
	"modal", "overlay", "dialog", "lightbox", "popup", "pop-up",
	`aria-modal="true"`, `role="dialog"`, `data-testid="modal"`, "drawer",
}

// LooksPopup reports whether the page markup suggests a modal or overlay UI.
func LooksPopup(html string) bool {
	h := strings.ToLower(html)
	for _, m := range overlayMarkers {
		if strings.Contains(h, m) {
			return true
		}
	}
	return false
}
