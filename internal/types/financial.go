package types

import (
	"time"

	"github.com/guregu/null/v6"
)

const (
	PeriodAnnual    = "annual"
	PeriodQuarterly = "quarterly"
)

// CompanyIdentity describes a listed company. Only Ticker is guaranteed.
type CompanyIdentity struct {
	Ticker      string      `json:"ticker"`
	Name        null.String `json:"name"`
	Exchange    null.String `json:"exchange"`
	Sector      null.String `json:"sector"`
	Industry    null.String `json:"industry"`
	Description null.String `json:"description"`
	Website     null.String `json:"website"`
	CIK         null.String `json:"cik"`
}

// Fill copies every field of other into c where c has no value yet and
// reports how many fields it filled. Existing values are never replaced.
func (c *CompanyIdentity) Fill(other *CompanyIdentity) int {
	if other == nil {
		return 0
	}
	return fillString(&c.Name, other.Name) +
		fillString(&c.Exchange, other.Exchange) +
		fillString(&c.Sector, other.Sector) +
		fillString(&c.Industry, other.Industry) +
		fillString(&c.Description, other.Description) +
		fillString(&c.Website, other.Website) +
		fillString(&c.CIK, other.CIK)
}

func fillString(dst *null.String, src null.String) int {
	if !dst.Valid && src.Valid {
		*dst = src
		return 1
	}
	return 0
}

// Text returns a present, non-empty string value or an absent one.
func Text(s string) null.String {
	return null.NewString(s, s != "")
}

type IncomeStatement struct {
	Revenue         null.Float `json:"revenue"`
	CostOfGoodsSold null.Float `json:"cost_of_goods_sold"`
	GrossProfit     null.Float `json:"gross_profit"`
	OperatingIncome null.Float `json:"operating_income"`
	InterestExpense null.Float `json:"interest_expense"`
	NetIncome       null.Float `json:"net_income"`
	EBITDA          null.Float `json:"ebitda"`
	EPSBasic        null.Float `json:"eps_basic"`
	EPSDiluted      null.Float `json:"eps_diluted"`
}

type BalanceSheet struct {
	TotalAssets        null.Float `json:"total_assets"`
	CurrentAssets      null.Float `json:"current_assets"`
	CashAndEquivalents null.Float `json:"cash_and_equivalents"`
	Inventory          null.Float `json:"inventory"`
	AccountsReceivable null.Float `json:"accounts_receivable"`
	TotalLiabilities   null.Float `json:"total_liabilities"`
	CurrentLiabilities null.Float `json:"current_liabilities"`
	TotalDebt          null.Float `json:"total_debt"`
	ShareholdersEquity null.Float `json:"shareholders_equity"`
	SharesOutstanding  null.Float `json:"shares_outstanding"`
}

type CashFlowStatement struct {
	OperatingCashFlow   null.Float `json:"operating_cash_flow"`
	CapitalExpenditures null.Float `json:"capital_expenditures"`
	FreeCashFlow        null.Float `json:"free_cash_flow"`
	DividendPayments    null.Float `json:"dividend_payments"`
}

// StatementPeriod is one fiscal period of a company's statements in the
// canonical schema, tagged with where it came from.
type StatementPeriod struct {
	Ticker      string            `json:"ticker"`
	FiscalYear  int               `json:"fiscal_year"`
	PeriodType  string            `json:"period_type"`
	EndDate     time.Time         `json:"end_date"`
	Source      string            `json:"source"`
	SourceURL   string            `json:"source_url,omitempty"`
	RetrievedAt time.Time         `json:"retrieved_at"`
	Income      IncomeStatement   `json:"income_statement"`
	Balance     BalanceSheet      `json:"balance_sheet"`
	CashFlow    CashFlowStatement `json:"cash_flow_statement"`
}

// HasData reports whether at least one statement field is present.
func (p *StatementPeriod) HasData() bool {
	for _, f := range p.Fields() {
		if f.Valid {
			return true
		}
	}
	return false
}

// Fields lists every numeric statement field of the period.
func (p *StatementPeriod) Fields() []null.Float {
	i, b, c := p.Income, p.Balance, p.CashFlow
	return []null.Float{
		i.Revenue, i.CostOfGoodsSold, i.GrossProfit, i.OperatingIncome, i.InterestExpense,
		i.NetIncome, i.EBITDA, i.EPSBasic, i.EPSDiluted,
		b.TotalAssets, b.CurrentAssets, b.CashAndEquivalents, b.Inventory, b.AccountsReceivable,
		b.TotalLiabilities, b.CurrentLiabilities, b.TotalDebt, b.ShareholdersEquity, b.SharesOutstanding,
		c.OperatingCashFlow, c.CapitalExpenditures, c.FreeCashFlow, c.DividendPayments,
	}
}

type LiquidityRatios struct {
	CurrentRatio null.Float `json:"current_ratio" csv:"current_ratio"`
	QuickRatio   null.Float `json:"quick_ratio" csv:"quick_ratio"`
	CashRatio    null.Float `json:"cash_ratio" csv:"cash_ratio"`
}

type ProfitabilityRatios struct {
	NetMargin    null.Float `json:"net_margin" csv:"net_margin"`
	GrossMargin  null.Float `json:"gross_margin" csv:"gross_margin"`
	ROE          null.Float `json:"roe" csv:"roe"`
	ROA          null.Float `json:"roa" csv:"roa"`
	EBITDAMargin null.Float `json:"ebitda_margin" csv:"ebitda_margin"`
}

type LeverageRatios struct {
	DebtToEquity        null.Float `json:"debt_to_equity" csv:"debt_to_equity"`
	DebtToAssets        null.Float `json:"debt_to_assets" csv:"debt_to_assets"`
	TimesInterestEarned null.Float `json:"times_interest_earned" csv:"times_interest_earned"`
	DebtServiceCoverage null.Float `json:"debt_service_coverage" csv:"debt_service_coverage"`
}

type EfficiencyRatios struct {
	AssetTurnover       null.Float `json:"asset_turnover" csv:"asset_turnover"`
	InventoryTurnover   null.Float `json:"inventory_turnover" csv:"inventory_turnover"`
	ReceivablesTurnover null.Float `json:"receivables_turnover" csv:"receivables_turnover"`
}

// RatioSet holds the ratios derived from exactly one StatementPeriod.
type RatioSet struct {
	Ticker        string              `json:"ticker" csv:"ticker"`
	FiscalYear    int                 `json:"fiscal_year" csv:"fiscal_year"`
	PeriodType    string              `json:"period_type" csv:"period_type"`
	Liquidity     LiquidityRatios     `json:"liquidity" csv:"liquidity"`
	Profitability ProfitabilityRatios `json:"profitability" csv:"profitability"`
	Leverage      LeverageRatios      `json:"leverage" csv:"leverage"`
	Efficiency    EfficiencyRatios    `json:"efficiency" csv:"efficiency"`
}

const (
	VerdictStrong     = "strong"
	VerdictMixed      = "mixed"
	VerdictConcerning = "concerning"
)

// AnalysisResult is the complete output of one analysis run.
type AnalysisResult struct {
	RunID           string            `json:"run_id"`
	Company         CompanyIdentity   `json:"company"`
	Statements      []StatementPeriod `json:"statements"`
	Ratios          []RatioSet        `json:"ratios"`
	Findings        map[string]string `json:"findings"`
	Trends          map[string]string `json:"trends"`
	Strengths       []string          `json:"strengths"`
	Concerns        []string          `json:"concerns"`
	Verdict         string            `json:"verdict"`
	Summary         string            `json:"summary"`
	StatementSource string            `json:"statement_source"`
	SourcesUsed     []string          `json:"sources_used"`
	AnalyzedAt      time.Time         `json:"analyzed_at"`
}
