// Package narrative turns a ratio history into descriptive findings.
// It states what the numbers show and never recommends an action.
package narrative

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"fin-analysis/internal/ratios"
	"fin-analysis/internal/types"
)

type Category string

const (
	Liquidity     Category = "liquidity"
	Profitability Category = "profitability"
	Leverage      Category = "leverage"
	Efficiency    Category = "efficiency"
)

// Categories in report order.
var Categories = []Category{Liquidity, Profitability, Leverage, Efficiency}

type Trend string

const (
	Improving        Trend = "improving"
	Declining        Trend = "declining"
	Stable           Trend = "stable"
	InsufficientData Trend = "insufficient data"
)

// stableEpsilon absorbs floating point noise when comparing endpoints.
const stableEpsilon = 1e-9

// band is a lower bound (inclusive) and the description that applies from it upwards
type band struct {
	from float64
	text string
}

// rule describes how one category is judged from its primary metric
type rule struct {
	category       Category
	metric         ratios.Metric
	label          string
	percent        bool
	higherIsBetter bool
	// strengthAt and concernAt are inclusive for strengths and exclusive
	// for concerns, mirrored when lower is better.
	strengthAt   float64
	concernAt    float64
	strengthText string
	concernText  string
	bands        []band // descending by from
	note         string
	// deficitText labels a negative value as a concern when the metric has
	// no meaning below zero; deficitBand describes it.
	deficitText string
	deficitBand string
}

var rules = []rule{
	{
		category: Liquidity, metric: ratios.CurrentRatio, label: "Current Ratio",
		higherIsBetter: true, strengthAt: 1.5, concernAt: 1.0,
		strengthText: "Strong liquidity", concernText: "Potential liquidity risk",
		bands: []band{
			{2.0, "This indicates a very strong ability to meet short-term obligations."},
			{1.5, "This suggests a healthy liquidity position."},
			{1.0, "This indicates an adequate but potentially tight liquidity position."},
			{math.Inf(-1), "This is below 1.0, signaling potential difficulty meeting short-term liabilities."},
		},
	},
	{
		category: Profitability, metric: ratios.NetMargin, label: "Net Profit Margin", percent: true,
		higherIsBetter: true, strengthAt: 0.10, concernAt: 0,
		strengthText: "High profitability", concernText: "Operating at a net loss",
		bands: []band{
			{0.15, "This indicates excellent profitability."},
			{0.05, "This reflects solid profitability."},
			{math.SmallestNonzeroFloat64, "Profitability is positive but margins are thin."},
			{math.Inf(-1), "The company is operating at a net loss."},
		},
	},
	{
		category: Leverage, metric: ratios.DebtToEquity, label: "Debt-to-Equity ratio",
		higherIsBetter: false, strengthAt: 0.5, concernAt: 1.5,
		strengthText: "Low financial leverage", concernText: "High debt levels",
		bands: []band{
			{2.0 + stableEpsilon, "This represents a high level of debt relative to equity."},
			{1.0 + stableEpsilon, "This indicates an elevated level of debt."},
			{0.4 + stableEpsilon, "This suggests a moderate level of debt."},
			{math.Inf(-1), "This indicates a conservative balance sheet with low reliance on debt."},
		},
		note:        "For this ratio a decrease is the favorable direction.",
		deficitText: "Negative shareholders' equity",
		deficitBand: "Shareholders' equity is negative, so liabilities exceed assets and the ratio no longer reflects a conservative balance sheet.",
	},
	{
		category: Efficiency, metric: ratios.AssetTurnover, label: "Asset Turnover",
		higherIsBetter: true, strengthAt: 1.0, concernAt: 0.5,
		strengthText: "Efficient use of assets", concernText: "Low asset utilization",
		bands: []band{
			{1.0, "A ratio at or above 1.0 suggests efficient use of assets."},
			{0.5, "This suggests a moderate level of asset efficiency."},
			{math.Inf(-1), "A low ratio may reflect underused assets or an asset-heavy business model."},
		},
	},
}

// Narrative is the descriptive output for one ratio history
type Narrative struct {
	Findings  map[string]string
	Trends    map[string]Trend
	Strengths []string
	Concerns  []string
	Verdict   string
	Summary   string
}

// Narrate analyzes history, ordered most recent first.
func Narrate(history []types.RatioSet) Narrative {
	n := Narrative{
		Findings:  make(map[string]string, len(rules)),
		Trends:    make(map[string]Trend, len(rules)),
		Strengths: []string{},
		Concerns:  []string{},
	}

	for _, r := range rules {
		values := series(history, r.metric)
		trend := r.trend(values)
		n.Trends[string(r.category)] = trend

		var latest null.Float
		if len(values) > 0 {
			latest = values[0]
		}
		if !latest.Valid {
			n.Findings[string(r.category)] = fmt.Sprintf("%s data is not available for the most recent period.", titleOf(r.category))
			continue
		}

		n.Findings[string(r.category)] = r.sentence(latest.Float64, trend, values, history)

		switch {
		case r.inDeficit(latest.Float64):
			n.Concerns = append(n.Concerns, fmt.Sprintf("%s (%s %s)", r.deficitText, r.label, r.format(latest.Float64)))
		case r.isStrength(latest.Float64):
			n.Strengths = append(n.Strengths, fmt.Sprintf("%s (%s %s)", r.strengthText, r.label, r.format(latest.Float64)))
		case r.isConcern(latest.Float64):
			n.Concerns = append(n.Concerns, fmt.Sprintf("%s (%s %s)", r.concernText, r.label, r.format(latest.Float64)))
		}
	}

	n.Verdict, n.Summary = verdict(len(n.Strengths), len(n.Concerns), len(history))
	return n
}

// TrendOf compares the earliest and latest present values of a series
// ordered most recent first.
func TrendOf(values []null.Float, higherIsBetter bool) Trend {
	present := presentValues(values)
	if len(present) < 2 {
		return InsufficientData
	}

	latest, earliest := present[0], present[len(present)-1]
	diff := latest - earliest
	if math.Abs(diff) <= stableEpsilon*math.Max(1, math.Abs(earliest)) {
		return Stable
	}
	if (diff > 0) == higherIsBetter {
		return Improving
	}
	return Declining
}

// trend ranks a deficit below every non-negative value. Two deficit
// endpoints compare as stable.
func (r rule) trend(values []null.Float) Trend {
	present := presentValues(values)
	if r.deficitText == "" || len(present) < 2 {
		return TrendOf(values, r.higherIsBetter)
	}
	latest, earliest := r.inDeficit(present[0]), r.inDeficit(present[len(present)-1])
	switch {
	case latest && earliest:
		return Stable
	case latest:
		return Declining
	case earliest:
		return Improving
	}
	return TrendOf(values, r.higherIsBetter)
}

func (r rule) inDeficit(v float64) bool {
	return r.deficitText != "" && v < 0
}

func (r rule) isStrength(v float64) bool {
	if r.inDeficit(v) {
		return false
	}
	if r.higherIsBetter {
		return v >= r.strengthAt
	}
	return v <= r.strengthAt
}

func (r rule) isConcern(v float64) bool {
	if r.higherIsBetter {
		return v < r.concernAt
	}
	return v > r.concernAt
}

func (r rule) format(v float64) string {
	if r.percent {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f", v)
}

func (r rule) describe(v float64) string {
	if r.inDeficit(v) {
		return r.deficitBand
	}
	for _, b := range r.bands {
		if v >= b.from {
			return b.text
		}
	}
	return r.bands[len(r.bands)-1].text
}

func (r rule) sentence(latest float64, trend Trend, values []null.Float, history []types.RatioSet) string {
	text := fmt.Sprintf("The most recent %s is %s", r.label, r.format(latest))

	if present := presentValues(values); len(present) > 1 && !r.inDeficit(latest) {
		text += fmt.Sprintf(" against a %d-period average of %s", len(present), r.format(stat.Mean(present, nil)))
	}

	if trend == InsufficientData {
		text += "; there is insufficient data to establish a trend. "
	} else {
		text += fmt.Sprintf(", showing a %s trend over the analyzed period. ", trend)
	}

	if r.category == Profitability && len(history) > 0 {
		if roe := history[0].Profitability.ROE; roe.Valid {
			text += fmt.Sprintf("Return on Equity stands at %.2f%%. ", roe.Float64*100)
		}
	}
	if r.note != "" {
		text += r.note + " "
	}

	return text + r.describe(latest)
}

func verdict(strengths, concerns, periods int) (string, string) {
	if periods == 0 {
		return types.VerdictMixed, "No ratio data was available to analyze."
	}
	switch {
	case strengths > concerns:
		return types.VerdictStrong, "The company shows a strong overall financial position based on the available data."
	case concerns > strengths:
		return types.VerdictConcerning, "The analysis highlights several areas of concern in the reported figures."
	default:
		return types.VerdictMixed, "The company presents a mixed financial profile."
	}
}

func series(history []types.RatioSet, m ratios.Metric) []null.Float {
	out := make([]null.Float, len(history))
	for i, r := range history {
		out[i] = ratios.Value(r, m)
	}
	return out
}

func presentValues(values []null.Float) []float64 {
	var out []float64
	for _, v := range values {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

func titleOf(c Category) string {
	s := string(c)
	return string(s[0]-'a'+'A') + s[1:]
}
