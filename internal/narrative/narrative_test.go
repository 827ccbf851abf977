package narrative

import (
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fin-analysis/internal/types"
)

func ratioSet(cr, nm, de, at float64) types.RatioSet {
	var r types.RatioSet
	r.Liquidity.CurrentRatio = null.FloatFrom(cr)
	r.Profitability.NetMargin = null.FloatFrom(nm)
	r.Leverage.DebtToEquity = null.FloatFrom(de)
	r.Efficiency.AssetTurnover = null.FloatFrom(at)
	return r
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name   string
		values []null.Float
		higher bool
		want   Trend
	}{
		{"rising, higher is better", []null.Float{null.FloatFrom(2.0), null.FloatFrom(1.6)}, true, Improving},
		{"falling, higher is better", []null.Float{null.FloatFrom(1.2), null.FloatFrom(1.6)}, true, Declining},
		{"falling, lower is better", []null.Float{null.FloatFrom(0.4), null.FloatFrom(0.9)}, false, Improving},
		{"rising, lower is better", []null.Float{null.FloatFrom(1.4), null.FloatFrom(0.9)}, false, Declining},
		{"unchanged", []null.Float{null.FloatFrom(1.5), null.FloatFrom(1.2), null.FloatFrom(1.5)}, true, Stable},
		{"single value", []null.Float{null.FloatFrom(1.5)}, true, InsufficientData},
		{"absent values skipped", []null.Float{null.FloatFrom(2.0), {}, null.FloatFrom(1.0)}, true, Improving},
		{"only one present", []null.Float{{}, null.FloatFrom(1.0), {}}, true, InsufficientData},
		{"empty", nil, true, InsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendOf(tt.values, tt.higher))
		})
	}
}

func TestNarrateStrongCompany(t *testing.T) {
	history := []types.RatioSet{
		ratioSet(2.0, 0.20, 0.3, 1.2),
		ratioSet(1.6, 0.18, 0.4, 1.1),
	}
	history[0].Profitability.ROE = null.FloatFrom(0.25)

	n := Narrate(history)

	assert.Equal(t, types.VerdictStrong, n.Verdict)
	assert.Len(t, n.Strengths, 4)
	assert.Empty(t, n.Concerns)
	assert.Equal(t, Improving, n.Trends["liquidity"])
	assert.Equal(t, Improving, n.Trends["leverage"], "falling debt-to-equity is an improvement")

	assert.Contains(t, n.Findings["liquidity"], "Current Ratio is 2.00")
	assert.Contains(t, n.Findings["liquidity"], "2-period average of 1.80")
	assert.Contains(t, n.Findings["liquidity"], "improving trend")
	assert.Contains(t, n.Findings["liquidity"], "very strong")
	assert.Contains(t, n.Findings["profitability"], "20.00%")
	assert.Contains(t, n.Findings["profitability"], "Return on Equity stands at 25.00%")
	assert.Contains(t, n.Findings["leverage"], "conservative")
}

func TestNarrateConcerningCompany(t *testing.T) {
	n := Narrate([]types.RatioSet{ratioSet(0.8, -0.05, 2.5, 0.3)})

	assert.Equal(t, types.VerdictConcerning, n.Verdict)
	assert.Empty(t, n.Strengths)
	assert.Len(t, n.Concerns, 4)
	assert.Contains(t, n.Findings["liquidity"], "insufficient data")
	assert.Contains(t, n.Findings["profitability"], "net loss")
	assert.Contains(t, n.Findings["leverage"], "high level of debt")
}

func TestNarrateMixedOnTie(t *testing.T) {
	// One strength (liquidity), one concern (leverage), the rest neutral.
	n := Narrate([]types.RatioSet{ratioSet(1.8, 0.07, 1.8, 0.7)})

	require.Len(t, n.Strengths, 1)
	require.Len(t, n.Concerns, 1)
	assert.Equal(t, types.VerdictMixed, n.Verdict)
}

func TestNarrateThresholdBoundaries(t *testing.T) {
	n := Narrate([]types.RatioSet{ratioSet(1.5, 0.10, 0.5, 1.0)})
	assert.Len(t, n.Strengths, 4, "strength thresholds are inclusive")

	n = Narrate([]types.RatioSet{ratioSet(1.0, 0, 1.5, 0.5)})
	assert.Empty(t, n.Concerns, "concern thresholds are exclusive")
}

func TestNarrateNegativeEquity(t *testing.T) {
	n := Narrate([]types.RatioSet{ratioSet(1.2, 0.05, -3.0, 0.8)})

	assert.Empty(t, n.Strengths)
	assert.Equal(t, []string{"Negative shareholders' equity (Debt-to-Equity ratio -3.00)"}, n.Concerns)
	assert.Equal(t, types.VerdictConcerning, n.Verdict)
	assert.Contains(t, n.Findings["leverage"], "Shareholders' equity is negative")
	assert.NotContains(t, n.Findings["leverage"], "conservative balance sheet with low reliance")
}

func TestNarrateLeverageTrendAcrossDeficit(t *testing.T) {
	tests := []struct {
		name string
		de   []float64 // most recent first
		want Trend
	}{
		{"equity turned negative", []float64{-3.0, 0.8}, Declining},
		{"more negative ratio", []float64{-5.0, -1.0}, Stable},
		{"equity restored", []float64{0.9, -2.0}, Improving},
		{"both positive", []float64{0.4, 0.9}, Improving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var history []types.RatioSet
			for _, de := range tt.de {
				history = append(history, ratioSet(1.2, 0.05, de, 0.8))
			}
			assert.Equal(t, tt.want, Narrate(history).Trends["leverage"])
		})
	}
}

func TestNarrateMissingData(t *testing.T) {
	var r types.RatioSet
	r.Liquidity.CurrentRatio = null.FloatFrom(1.7)

	n := Narrate([]types.RatioSet{r})

	assert.Equal(t, "Profitability data is not available for the most recent period.", n.Findings["profitability"])
	assert.Equal(t, "Leverage data is not available for the most recent period.", n.Findings["leverage"])
	assert.Equal(t, "Efficiency data is not available for the most recent period.", n.Findings["efficiency"])
	assert.Equal(t, types.VerdictStrong, n.Verdict)
}

func TestNarrateEmptyHistory(t *testing.T) {
	n := Narrate(nil)

	assert.Equal(t, types.VerdictMixed, n.Verdict)
	assert.Len(t, n.Findings, len(Categories))
	assert.NotNil(t, n.Strengths)
	assert.NotNil(t, n.Concerns)
}

func TestFindingsAreDescriptive(t *testing.T) {
	n := Narrate([]types.RatioSet{ratioSet(2.0, 0.2, 0.3, 1.2), ratioSet(0.8, -0.1, 2.5, 0.3)})

	for _, text := range n.Findings {
		for _, word := range []string{"buy", "sell", "should"} {
			assert.NotContains(t, text, word)
		}
	}
}
