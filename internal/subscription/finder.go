package subscription

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/pricing-cli/internal/fetcher"
	"github.com/sells-group/pricing-cli/internal/htmlx"
	"github.com/sells-group/pricing-cli/internal/model"
)

// commonPricingPaths are tried first when locating a pricing page.
var commonPricingPaths = []string{
	"/subscribe",
	"/subscriptions",
	"/subscription",
	"/membership",
	"/memberships",
	"/join",
	"/pricing",
	"/plans",
	"/account/subscribe",
	"/checkout",
	"/digital-subscription",
	"/digital",
	"/paywall",
	"/offers",
	"/offer",
}

var linkKeywords = []string{
	"subscribe", "subscription", "membership", "join", "pricing", "plan",
}

var subscriptionPageKeywords = []string{
	"subscribe", "subscription", "digital subscription", "unlimited access",
	"trial", "start your trial", "monthly", "annual", "billing", "renew",
	"cancel", "newsletter", "account", "sign in", "log in",
}

// articlePathHints mark URLs that are news content, not subscription pages.
var articlePathHints = []string{
	"/article/", "/news/", "/sports/", "/weather/", "/video/", "/watch/",
	"/money/", "/consumer/", "/entertainment/", "/local/", "/traffic/",
}

const (
	maxCandidateLinks = 25
	maxDetectedPrices = 25
)

// Finder locates and inspects a domain's pricing page.
type Finder struct {
	fetch               *fetcher.HTTPFetcher
	availabilityBaseURL string
}

// NewFinder builds a finder. availabilityBaseURL is the archive availability
// endpoint ("https://archive.org/wayback/available").
func NewFinder(fetch *fetcher.HTTPFetcher, availabilityBaseURL string) *Finder {
	if availabilityBaseURL == "" {
		availabilityBaseURL = "https://archive.org/wayback/available"
	}
	return &Finder{fetch: fetch, availabilityBaseURL: availabilityBaseURL}
}

// FindPricingPage resolves a domain to its best pricing page URL, inspects
// the live page, and probes archive availability.
func (f *Finder) FindPricingPage(ctx context.Context, domain string) model.PricingPageReport {
	d := model.NormalizeDomain(domain)
	report := model.PricingPageReport{Domain: d}

	pricingURL, method := f.pickPricingURL(ctx, d)
	report.Method = method
	if pricingURL == "" {
		report.Notes = "could not determine pricing URL"
		return report
	}

	f.inspect(ctx, pricingURL, &report)

	if avail, wbURL := f.waybackAvailable(ctx, pricingURL); avail {
		report.WaybackAvailable = true
		report.WaybackURL = wbURL
	}
	return report
}

// pickPricingURL tries common paths first, then same-domain homepage links
// whose href matches a subscription keyword, then falls back to the
// homepage.
func (f *Finder) pickPricingURL(ctx context.Context, domain string) (string, string) {
	base := "https://" + domain

	for _, path := range commonPricingPaths {
		resp, err := f.fetch.Get(ctx, base+path)
		if err == nil && resp.StatusCode < 400 {
			return resp.FinalURL, "common_path"
		}
	}

	for _, link := range f.candidateLinks(ctx, base, domain) {
		if looksLikeArticleURL(link) {
			continue
		}
		resp, err := f.fetch.Get(ctx, link)
		if err != nil || resp.StatusCode >= 400 {
			continue
		}
		text, err := htmlx.FlattenText(resp.HTML())
		if err != nil {
			continue
		}
		prices := detectPrices(text)
		if isLikelySubscriptionPage(text, prices) {
			return resp.FinalURL, "homepage_link"
		}
	}

	if resp, err := f.fetch.Get(ctx, base); err == nil && resp.StatusCode < 400 {
		return resp.FinalURL, "fallback_homepage"
	}
	return "", "none"
}

// candidateLinks scans homepage anchors for subscription-keyword hrefs on
// the same domain, deduplicated in document order.
func (f *Finder) candidateLinks(ctx context.Context, homeURL, domain string) []string {
	resp, err := f.fetch.Get(ctx, homeURL)
	if err != nil || resp.StatusCode >= 400 {
		return nil
	}
	root, err := html.Parse(strings.NewReader(resp.HTML()))
	if err != nil {
		return nil
	}
	baseU, err := url.Parse(homeURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href := anchorHref(n); href != "" {
				full := resolveLink(baseU, href)
				if full != "" && sameDomain(full, domain) && !seen[full] {
					seen[full] = true
					links = append(links, full)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(links) > maxCandidateLinks {
		links = links[:maxCandidateLinks]
	}
	return links
}

func anchorHref(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "href" {
			continue
		}
		href := strings.TrimSpace(a.Val)
		hl := strings.ToLower(href)
		if href == "" || strings.HasPrefix(hl, "mailto:") || strings.HasPrefix(hl, "javascript:") {
			return ""
		}
		for _, kw := range linkKeywords {
			if strings.Contains(hl, kw) {
				return href
			}
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func sameDomain(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Host), strings.ToLower(domain))
}

func looksLikeArticleURL(rawURL string) bool {
	u := strings.ToLower(rawURL)
	for _, hint := range articlePathHints {
		if strings.Contains(u, hint) {
			return true
		}
	}
	return false
}

// isLikelySubscriptionPage requires two keyword signals, or one keyword plus
// at least one detected price.
func isLikelySubscriptionPage(text string, prices []string) bool {
	t := strings.ToLower(text)
	hits := 0
	for _, kw := range subscriptionPageKeywords {
		if strings.Contains(t, kw) {
			hits++
		}
	}
	if hits >= 2 {
		return true
	}
	return hits >= 1 && len(prices) > 0
}

// detectPrices returns the page's distinct price-shaped fragments, capped.
func detectPrices(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range priceShapeRe.FindAllString(text, -1) {
		s := strings.Join(strings.Fields(m), " ")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) >= maxDetectedPrices {
			break
		}
	}
	return out
}

// inspect loads the pricing page and fills the live-page report fields.
func (f *Finder) inspect(ctx context.Context, pricingURL string, report *model.PricingPageReport) {
	report.PricingURL = pricingURL

	resp, err := f.fetch.Get(ctx, pricingURL)
	if err != nil || resp.StatusCode >= 400 {
		report.Notes = "pricing page inaccessible"
		return
	}

	raw := resp.HTML()
	text, err := htmlx.FlattenText(raw)
	if err != nil {
		report.Notes = "pricing page unparseable"
		return
	}

	report.PageOK = true
	report.PricingURL = resp.FinalURL
	report.DetectedPrices = detectPrices(text)
	report.Dynamic = LooksDynamic(raw, text)
	report.Popup = LooksPopup(raw)

	var notes []string
	t := strings.ToLower(text)
	if len(report.DetectedPrices) == 0 &&
		(strings.Contains(t, "subscribe") || strings.Contains(t, "membership") ||
			strings.Contains(t, "plan") || strings.Contains(t, "pricing")) {
		notes = append(notes, "no prices found in static HTML")
	}
	if report.Dynamic {
		notes = append(notes, "likely JS-rendered content")
	}
	if report.Popup {
		notes = append(notes, "possible modal or overlay UI")
	}
	report.Notes = strings.Join(notes, " | ")
}

// waybackAvailable asks the archive availability endpoint for the closest
// capture of url. Errors read as "not available".
func (f *Finder) waybackAvailable(ctx context.Context, rawURL string) (bool, string) {
	q := url.Values{}
	q.Set("url", rawURL)

	resp, err := f.fetch.Get(ctx, f.availabilityBaseURL+"?"+q.Encode())
	if err != nil || resp.StatusCode >= 400 {
		return false, ""
	}

	var payload struct {
		ArchivedSnapshots struct {
			Closest struct {
				Available bool   `json:"available"`
				URL       string `json:"url"`
			} `json:"closest"`
		} `json:"archived_snapshots"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return false, ""
	}
	closest := payload.ArchivedSnapshots.Closest
	if closest.Available && closest.URL != "" {
		return true, closest.URL
	}
	return false, ""
}
