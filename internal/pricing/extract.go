package pricing

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/pricing-cli/internal/htmlx"
	"github.com/sells-group/pricing-cli/internal/model"
)

// currencySymbols are the currency marks an amount must carry. Bare digits
// are never prices.
const currencySymbols = "$€£¥₹₩₽₺₪₫฿₱₦₡₲₴₭₮₼₾₨"

// Extractor finds deduplicated (period, displayed price) pairs in a document.
type Extractor struct {
	rules      Rules
	attachedRe *regexp.Regexp
	amountRe   *regexp.Regexp
}

// NewExtractor compiles the matching patterns for the given rules.
func NewExtractor(rules Rules) *Extractor {
	symClass := "[" + regexp.QuoteMeta(currencySymbols) + "]"
	amount := `(\d{1,5}(?:\.\d{2})?)`

	// The unit label may be separated from the amount by nested tags.
	attached := `(?i)(?:US)?(` + symClass + `)\s*` + amount +
		`(?:\s*<[^>]+>\s*)*\s*(?:/|\bper\b)\s*(` + unitAlternation(rules) + `)\b`

	return &Extractor{
		rules:      rules,
		attachedRe: regexp.MustCompile(attached),
		amountRe:   regexp.MustCompile(`(?i)(?:US)?(` + symClass + `)\s*` + amount),
	}
}

// unitAlternation renders the rule table's unit tokens as a deterministic
// regexp alternation, longest tokens first.
func unitAlternation(rules Rules) string {
	units := make([]string, 0, len(rules.UnitPeriods))
	for u := range rules.UnitPeriods {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		if len(units[i]) != len(units[j]) {
			return len(units[i]) > len(units[j])
		}
		return units[i] < units[j]
	})
	for i, u := range units {
		units[i] = regexp.QuoteMeta(u)
	}
	return strings.Join(units, "|")
}

// ExtractHTML parses raw HTML and extracts price observations.
func (e *Extractor) ExtractHTML(raw string) ([]model.PriceObservation, error) {
	doc, err := htmlx.Parse(raw)
	if err != nil {
		return nil, err
	}
	return e.Extract(doc), nil
}

// Extract scans the document's candidate elements in document order and
// returns observations deduplicated by (period, displayed price). The order
// is encounter order, so identical input yields identical output.
func (e *Extractor) Extract(doc *htmlx.Document) []model.PriceObservation {
	seen := make(map[model.PriceObservation]bool)
	// Amounts bound to an attached unit are authoritative and excluded
	// from the proximity fallback.
	bound := make(map[string]bool)
	var out []model.PriceObservation

	add := func(obs model.PriceObservation) {
		if !seen[obs] {
			seen[obs] = true
			out = append(out, obs)
		}
	}

	for _, el := range doc.Elements() {
		text := el.VisibleText()
		if text == "" {
			continue
		}

		// Stage A: attached units in the raw inner markup.
		markup := el.InnerHTML()
		for _, m := range e.attachedRe.FindAllStringSubmatchIndex(markup, -1) {
			symbol := markup[m[2]:m[3]]
			amount := markup[m[4]:m[5]]
			unit := strings.ToLower(markup[m[6]:m[7]])

			period, ok := e.rules.UnitPeriods[unit]
			if !ok {
				period = model.PeriodUnknown
			}

			bound[symbol+amount] = true
			add(model.PriceObservation{
				Period:     period,
				PriceShown: symbol + amount + "/" + e.displayUnit(unit),
			})
		}

		// Stage B: proximity fallback over the flattened visible text.
		for _, m := range e.amountRe.FindAllStringSubmatchIndex(text, -1) {
			symbol := text[m[2]:m[3]]
			amount := text[m[4]:m[5]]

			// A trailing digit means the amount had more than 5
			// integer digits or a non-two-digit decimal part.
			if m[1] < len(text) && text[m[1]] >= '0' && text[m[1]] <= '9' {
				continue
			}
			if bound[symbol+amount] {
				continue
			}

			period := e.classifyByProximity(text, m[0], m[1])
			add(model.PriceObservation{Period: period, PriceShown: symbol + amount})
		}
	}

	return out
}

func (e *Extractor) displayUnit(unit string) string {
	if norm, ok := e.rules.UnitDisplay[unit]; ok {
		return norm
	}
	return unit
}

// classifyByProximity resolves the billing period of an amount with no
// attached unit: the cue nearest to the amount span within a bounded window
// wins, with annual cues inside the tighter override radius taking
// precedence.
func (e *Extractor) classifyByProximity(text string, start, end int) model.BillingPeriod {
	ws := start - e.rules.WindowRadius
	if ws < 0 {
		ws = 0
	}
	we := end + e.rules.WindowRadius
	if we > len(text) {
		we = len(text)
	}
	// Keep the slice on rune boundaries.
	for ws > 0 && !utf8.RuneStart(text[ws]) {
		ws--
	}
	for we < len(text) && !utf8.RuneStart(text[we]) {
		we++
	}

	window := strings.ToLower(text[ws:we])
	relStart, relEnd := start-ws, end-ws

	period := e.nearestCue(window, relStart, relEnd)

	// "annual" qualifies a price far more specifically than a nearby
	// generic "year" or "month" token; inside the tight radius it wins
	// outright.
	for _, cue := range e.rules.annualPhrases() {
		idx := strings.Index(window, cue)
		if idx >= 0 && absInt(idx-relStart) <= e.rules.AnnualOverrideRadius {
			return model.PeriodAnnual
		}
	}

	return period
}

// nearestCue scans every occurrence of every cue phrase in the window and
// returns the period whose cue lies closest to the amount span.
func (e *Extractor) nearestCue(window string, start, end int) model.BillingPeriod {
	best := model.PeriodUnknown
	bestDist := math.MaxInt

	for _, cs := range e.rules.Cues {
		for _, phrase := range cs.Phrases {
			if phrase == "" {
				continue
			}
			for from := 0; ; {
				j := strings.Index(window[from:], phrase)
				if j < 0 {
					break
				}
				cueStart := from + j
				cueEnd := cueStart + len(phrase)
				if d := SpanDistance(cueStart, cueEnd, start, end); d < bestDist {
					bestDist = d
					best = cs.Period
				}
				from = cueStart + 1
			}
		}
	}

	return best
}
