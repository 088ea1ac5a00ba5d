// Package pricing locates monetary amounts in archived HTML and classifies
// the billing period each one applies to.
package pricing

import "github.com/sells-group/pricing-cli/internal/model"

// CueSet is the list of text fragments that indicate one billing period.
type CueSet struct {
	Period  model.BillingPeriod
	Phrases []string
}

// Rules is the extractor's configuration: the unit-token table, the
// per-period cue lists, and the two window radii. It is plain data so tests
// can substitute synthetic cue sets.
type Rules struct {
	// UnitPeriods maps an attached unit token (after "/" or "per") to its
	// billing period.
	UnitPeriods map[string]model.BillingPeriod

	// UnitDisplay normalizes abbreviated unit tokens for display
	// ("mo" -> "month"). Tokens absent from the map display as-is.
	UnitDisplay map[string]string

	// Cues are scanned in order; on equal distance the earlier set wins.
	Cues []CueSet

	// WindowRadius is the symmetric character radius of the proximity
	// window around an unbound amount.
	WindowRadius int

	// AnnualOverrideRadius is the tighter radius within which an annual
	// cue forces period=annual regardless of the nearest cue. Heuristic;
	// kept configurable for calibration.
	AnnualOverrideRadius int
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		UnitPeriods: map[string]model.BillingPeriod{
			"mo":    model.PeriodMonthly,
			"month": model.PeriodMonthly,
			"yr":    model.PeriodAnnual,
			"year":  model.PeriodAnnual,
			"wk":    model.PeriodWeekly,
			"week":  model.PeriodWeekly,
			"day":   model.PeriodDaily,
		},
		UnitDisplay: map[string]string{
			"mo": "month",
			"yr": "year",
			"wk": "week",
		},
		Cues: []CueSet{
			{Period: model.PeriodAnnual, Phrases: []string{
				"annual rates", "regular annual", "annual rate", "annual", "year",
			}},
			{Period: model.PeriodMonthly, Phrases: []string{
				"/mo", "/month", "per month", "a month", "monthly", "billed monthly", "month",
			}},
			{Period: model.PeriodWeekly, Phrases: []string{
				"/wk", "/week", "per week", "weekly", "week",
			}},
			{Period: model.PeriodDaily, Phrases: []string{
				"/day", "per day", "daily",
			}},
		},
		WindowRadius:         140,
		AnnualOverrideRadius: 120,
	}
}

// annualPhrases returns the cue list used by the annual override.
func (r Rules) annualPhrases() []string {
	for _, cs := range r.Cues {
		if cs.Period == model.PeriodAnnual {
			return cs.Phrases
		}
	}
	return nil
}
