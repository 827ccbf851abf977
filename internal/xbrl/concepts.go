// Package xbrl maps US-GAAP XBRL tags onto the canonical statement schema.
//
// Each canonical concept is made of one or more components. A component is
// an ordered list of alternative tags for the same quantity: the first one
// reported wins. Distinct components are additive and are summed, e.g. total
// debt = current debt + non-current debt. Totals are tags that already report
// the whole concept; they stand in for the sum when a component is missing
// and are never added to it.
package xbrl

import (
	"fmt"

	"github.com/guregu/null/v6"

	"fin-analysis/internal/types"
)

const (
	UnitUSD      = "USD"
	UnitPerShare = "USD/shares"
	UnitShares   = "shares"
)

// Concept is one canonical statement field and the tags that feed it
type Concept struct {
	Name       string
	Unit       string
	Components [][]string
	Totals     []string
	// Field points at the destination in a period. Nil for helper concepts
	// that only feed derived values.
	Field func(p *types.StatementPeriod) *null.Float
}

const conceptDepreciation = "depreciation_amortization"

var concepts = []Concept{
	{
		Name: "revenue", Unit: UnitUSD,
		Components: [][]string{{
			"Revenues",
			"SalesRevenueNet",
			"TotalRevenues",
			"RevenueFromContractWithCustomerExcludingAssessedTax",
		}},
		Field: func(p *types.StatementPeriod) *null.Float { return &p.Income.Revenue },
	},
	{
		Name: "cost_of_goods_sold", Unit: UnitUSD,
		Components: [][]string{{"CostOfGoodsAndServicesSold", "CostOfRevenue", "CostOfGoodsSold"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.CostOfGoodsSold },
	},
	{
		Name: "gross_profit", Unit: UnitUSD,
		Components: [][]string{{"GrossProfit"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.GrossProfit },
	},
	{
		Name: "operating_income", Unit: UnitUSD,
		Components: [][]string{{"OperatingIncomeLoss"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.OperatingIncome },
	},
	{
		Name: "interest_expense", Unit: UnitUSD,
		Components: [][]string{{"InterestExpense", "InterestExpenseNonoperating", "InterestExpenseDebt"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.InterestExpense },
	},
	{
		Name: "net_income", Unit: UnitUSD,
		Components: [][]string{{"NetIncomeLoss", "ProfitLoss"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.NetIncome },
	},
	{
		Name: "eps_basic", Unit: UnitPerShare,
		Components: [][]string{{"EarningsPerShareBasic"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.EPSBasic },
	},
	{
		Name: "eps_diluted", Unit: UnitPerShare,
		Components: [][]string{{"EarningsPerShareDiluted"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Income.EPSDiluted },
	},
	{
		Name: conceptDepreciation, Unit: UnitUSD,
		Components: [][]string{{"DepreciationDepletionAndAmortization", "DepreciationAndAmortization", "DepreciationAmortizationAndAccretionNet"}},
	},
	{
		Name: "total_assets", Unit: UnitUSD,
		Components: [][]string{{"Assets"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.TotalAssets },
	},
	{
		Name: "current_assets", Unit: UnitUSD,
		Components: [][]string{{"AssetsCurrent"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.CurrentAssets },
	},
	{
		Name: "cash_and_equivalents", Unit: UnitUSD,
		Components: [][]string{{"CashAndCashEquivalentsAtCarryingValue", "CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents", "Cash"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.CashAndEquivalents },
	},
	{
		Name: "inventory", Unit: UnitUSD,
		Components: [][]string{{"InventoryNet"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.Inventory },
	},
	{
		Name: "accounts_receivable", Unit: UnitUSD,
		Components: [][]string{{"AccountsReceivableNetCurrent", "ReceivablesNetCurrent"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.AccountsReceivable },
	},
	{
		Name: "total_liabilities", Unit: UnitUSD,
		Components: [][]string{{"Liabilities"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.TotalLiabilities },
	},
	{
		Name: "current_liabilities", Unit: UnitUSD,
		Components: [][]string{{"LiabilitiesCurrent"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.CurrentLiabilities },
	},
	{
		Name: "total_debt", Unit: UnitUSD,
		Components: [][]string{
			{"DebtCurrent", "LongTermDebtCurrent"},
			{"LongTermDebtNoncurrent", "LongTermDebtAndCapitalLeaseObligations"},
		},
		// LongTermDebt is the full carrying amount, current maturities included.
		Totals: []string{"LongTermDebt", "LongTermDebtAndCapitalLeaseObligationsIncludingCurrentMaturities"},
		Field: func(p *types.StatementPeriod) *null.Float { return &p.Balance.TotalDebt },
	},
	{
		Name: "shareholders_equity", Unit: UnitUSD,
		Components: [][]string{{"StockholdersEquity", "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.ShareholdersEquity },
	},
	{
		Name: "shares_outstanding", Unit: UnitShares,
		Components: [][]string{{"CommonStockSharesOutstanding"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.Balance.SharesOutstanding },
	},
	{
		Name: "operating_cash_flow", Unit: UnitUSD,
		Components: [][]string{{"NetCashProvidedByUsedInOperatingActivities", "NetCashProvidedByUsedInOperatingActivitiesContinuingOperations"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.CashFlow.OperatingCashFlow },
	},
	{
		Name: "capital_expenditures", Unit: UnitUSD,
		Components: [][]string{{"PaymentsToAcquirePropertyPlantAndEquipment", "PaymentsToAcquireProductiveAssets"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.CashFlow.CapitalExpenditures },
	},
	{
		Name: "dividend_payments", Unit: UnitUSD,
		Components: [][]string{{"PaymentsOfDividends", "PaymentsOfDividendsCommonStock"}},
		Field:      func(p *types.StatementPeriod) *null.Float { return &p.CashFlow.DividendPayments },
	},
}

var tagIndex = buildTagIndex()

func buildTagIndex() map[string]int {
	idx := make(map[string]int)
	for i, c := range concepts {
		for _, tag := range c.Tags() {
			idx[tag] = i
		}
	}
	return idx
}

// Tags lists every tag feeding the concept, components first.
func (c Concept) Tags() []string {
	var tags []string
	for _, comp := range c.Components {
		tags = append(tags, comp...)
	}
	return append(tags, c.Totals...)
}

// Concepts returns the concept table.
func Concepts() []Concept {
	return concepts
}

// Lookup returns the concept a tag feeds.
func Lookup(tag string) (Concept, bool) {
	i, ok := tagIndex[tag]
	if !ok {
		return Concept{}, false
	}
	return concepts[i], true
}

// Validate checks the table's structural invariants: unique concept names,
// non-empty components, and that no tag feeds more than one component.
// A tag listed twice would be double counted when components are summed.
func Validate() error {
	return validateTable(concepts)
}

func validateTable(table []Concept) error {
	names := make(map[string]bool)
	seen := make(map[string]string)
	for _, c := range table {
		if c.Name == "" {
			return fmt.Errorf("concept with empty name")
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate concept %q", c.Name)
		}
		names[c.Name] = true

		switch c.Unit {
		case UnitUSD, UnitPerShare, UnitShares:
		default:
			return fmt.Errorf("concept %q: unknown unit %q", c.Name, c.Unit)
		}

		if len(c.Components) == 0 {
			return fmt.Errorf("concept %q has no components", c.Name)
		}
		for i, comp := range c.Components {
			if len(comp) == 0 {
				return fmt.Errorf("concept %q component %d is empty", c.Name, i)
			}
			for _, tag := range comp {
				where := fmt.Sprintf("%s[%d]", c.Name, i)
				if prev, dup := seen[tag]; dup {
					return fmt.Errorf("tag %q appears in both %s and %s", tag, prev, where)
				}
				seen[tag] = where
			}
		}
		for _, tag := range c.Totals {
			where := c.Name + "[total]"
			if prev, dup := seen[tag]; dup {
				return fmt.Errorf("tag %q appears in both %s and %s", tag, prev, where)
			}
			seen[tag] = where
		}
	}
	return nil
}

// Combine resolves a concept from tag values: the first reported alias of
// each component, summed across components. When a component is unreported
// the first reported total alias is used instead of the partial sum. ok is
// false when nothing has a value.
func (c Concept) Combine(values map[string]float64) (total float64, ok bool) {
	resolved := 0
	for _, comp := range c.Components {
		if v, present := firstOf(values, comp); present {
			total += v
			resolved++
		}
	}
	if resolved < len(c.Components) {
		if v, present := firstOf(values, c.Totals); present {
			return v, true
		}
	}
	return total, resolved > 0
}

func firstOf(values map[string]float64, tags []string) (float64, bool) {
	for _, tag := range tags {
		if v, ok := values[tag]; ok {
			return v, true
		}
	}
	return 0, false
}

// Populate writes every concept resolvable from values into p and then
// fills the fields that can be derived from others.
func Populate(p *types.StatementPeriod, values map[string]float64) {
	var depreciation null.Float
	for _, c := range concepts {
		v, ok := c.Combine(values)
		if !ok {
			continue
		}
		if c.Field == nil {
			if c.Name == conceptDepreciation {
				depreciation = null.FloatFrom(v)
			}
			continue
		}
		*c.Field(p) = null.FloatFrom(v)
	}
	Derive(p, depreciation)
}

// Derive fills gross profit, EBITDA and free cash flow from their inputs
// when the source did not report them directly.
func Derive(p *types.StatementPeriod, depreciation null.Float) {
	in := &p.Income
	if !in.GrossProfit.Valid && in.Revenue.Valid && in.CostOfGoodsSold.Valid {
		in.GrossProfit = null.FloatFrom(in.Revenue.Float64 - in.CostOfGoodsSold.Float64)
	}
	if !in.EBITDA.Valid && in.OperatingIncome.Valid && depreciation.Valid {
		in.EBITDA = null.FloatFrom(in.OperatingIncome.Float64 + depreciation.Float64)
	}

	cf := &p.CashFlow
	if !cf.FreeCashFlow.Valid && cf.OperatingCashFlow.Valid && cf.CapitalExpenditures.Valid {
		cf.FreeCashFlow = null.FloatFrom(cf.OperatingCashFlow.Float64 - cf.CapitalExpenditures.Float64)
	}
}
