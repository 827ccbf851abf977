// Package ratios derives financial ratios from one statement period.
// Every operation propagates absence: a ratio touching an absent input is
// itself absent, and nothing here produces an infinity or NaN.
package ratios

import (
	"math"

	"github.com/guregu/null/v6"

	"fin-analysis/internal/types"
)

// SafeDivide returns n/d, or absent when either side is absent or d is zero.
func SafeDivide(n, d null.Float) null.Float {
	if !n.Valid || !d.Valid || d.Float64 == 0 {
		return null.Float{}
	}
	return finite(n.Float64 / d.Float64)
}

// Sub returns a-b, absent if either side is absent.
func Sub(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid {
		return null.Float{}
	}
	return finite(a.Float64 - b.Float64)
}

// Add returns a+b, absent if either side is absent.
func Add(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid {
		return null.Float{}
	}
	return finite(a.Float64 + b.Float64)
}

func finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// Compute derives the full ratio set for one period.
func Compute(p types.StatementPeriod) types.RatioSet {
	in, bs, cf := p.Income, p.Balance, p.CashFlow

	return types.RatioSet{
		Ticker:     p.Ticker,
		FiscalYear: p.FiscalYear,
		PeriodType: p.PeriodType,
		Liquidity: types.LiquidityRatios{
			CurrentRatio: SafeDivide(bs.CurrentAssets, bs.CurrentLiabilities),
			QuickRatio:   SafeDivide(Sub(bs.CurrentAssets, bs.Inventory), bs.CurrentLiabilities),
			CashRatio:    SafeDivide(bs.CashAndEquivalents, bs.CurrentLiabilities),
		},
		Profitability: types.ProfitabilityRatios{
			NetMargin:    SafeDivide(in.NetIncome, in.Revenue),
			GrossMargin:  SafeDivide(in.GrossProfit, in.Revenue),
			ROE:          SafeDivide(in.NetIncome, bs.ShareholdersEquity),
			ROA:          SafeDivide(in.NetIncome, bs.TotalAssets),
			EBITDAMargin: SafeDivide(in.EBITDA, in.Revenue),
		},
		Leverage: types.LeverageRatios{
			DebtToEquity:        SafeDivide(bs.TotalDebt, bs.ShareholdersEquity),
			DebtToAssets:        SafeDivide(bs.TotalDebt, bs.TotalAssets),
			TimesInterestEarned: SafeDivide(in.OperatingIncome, in.InterestExpense),
			DebtServiceCoverage: SafeDivide(cf.OperatingCashFlow, bs.TotalDebt),
		},
		Efficiency: types.EfficiencyRatios{
			AssetTurnover:       SafeDivide(in.Revenue, bs.TotalAssets),
			InventoryTurnover:   SafeDivide(in.CostOfGoodsSold, bs.Inventory),
			ReceivablesTurnover: SafeDivide(in.Revenue, bs.AccountsReceivable),
		},
	}
}

// ComputeAll maps Compute over a history, preserving order.
func ComputeAll(periods []types.StatementPeriod) []types.RatioSet {
	out := make([]types.RatioSet, len(periods))
	for i, p := range periods {
		out[i] = Compute(p)
	}
	return out
}

// Metric names a single ratio within a RatioSet
type Metric string

const (
	CurrentRatio        Metric = "current_ratio"
	QuickRatio          Metric = "quick_ratio"
	CashRatio           Metric = "cash_ratio"
	NetMargin           Metric = "net_margin"
	GrossMargin         Metric = "gross_margin"
	ROE                 Metric = "roe"
	ROA                 Metric = "roa"
	EBITDAMargin        Metric = "ebitda_margin"
	DebtToEquity        Metric = "debt_to_equity"
	DebtToAssets        Metric = "debt_to_assets"
	TimesInterestEarned Metric = "times_interest_earned"
	DebtServiceCoverage Metric = "debt_service_coverage"
	AssetTurnover       Metric = "asset_turnover"
	InventoryTurnover   Metric = "inventory_turnover"
	ReceivablesTurnover Metric = "receivables_turnover"
)

// Value reads one metric from a ratio set.
func Value(r types.RatioSet, m Metric) null.Float {
	switch m {
	case CurrentRatio:
		return r.Liquidity.CurrentRatio
	case QuickRatio:
		return r.Liquidity.QuickRatio
	case CashRatio:
		return r.Liquidity.CashRatio
	case NetMargin:
		return r.Profitability.NetMargin
	case GrossMargin:
		return r.Profitability.GrossMargin
	case ROE:
		return r.Profitability.ROE
	case ROA:
		return r.Profitability.ROA
	case EBITDAMargin:
		return r.Profitability.EBITDAMargin
	case DebtToEquity:
		return r.Leverage.DebtToEquity
	case DebtToAssets:
		return r.Leverage.DebtToAssets
	case TimesInterestEarned:
		return r.Leverage.TimesInterestEarned
	case DebtServiceCoverage:
		return r.Leverage.DebtServiceCoverage
	case AssetTurnover:
		return r.Efficiency.AssetTurnover
	case InventoryTurnover:
		return r.Efficiency.InventoryTurnover
	case ReceivablesTurnover:
		return r.Efficiency.ReceivablesTurnover
	}
	return null.Float{}
}

// Metrics lists every metric in report order.
func Metrics() []Metric {
	return []Metric{
		CurrentRatio, QuickRatio, CashRatio,
		NetMargin, GrossMargin, ROE, ROA, EBITDAMargin,
		DebtToEquity, DebtToAssets, TimesInterestEarned, DebtServiceCoverage,
		AssetTurnover, InventoryTurnover, ReceivablesTurnover,
	}
}
