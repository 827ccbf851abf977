// Package static serves company data from a YAML fixture file. It backs
// offline runs and tests.
package static

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/types"
)

const Name = "static"

// Fixtures is the file format:
//
//	companies:
//	  ACME:
//	    name: Acme Corp
//	    periods:
//	      - fiscal_year: 2023
//	        end_date: "2023-12-31"
//	        income_statement: {revenue: 1000, net_income: 80}
//	        balance_sheet: {current_assets: 500, current_liabilities: 250}
type Fixtures struct {
	Companies map[string]Company `yaml:"companies"`
}

type Company struct {
	Name        string   `yaml:"name"`
	Exchange    string   `yaml:"exchange"`
	Sector      string   `yaml:"sector"`
	Industry    string   `yaml:"industry"`
	Description string   `yaml:"description"`
	Website     string   `yaml:"website"`
	CIK         string   `yaml:"cik"`
	Periods     []Period `yaml:"periods"`
}

// Period statement maps use the canonical field names (revenue, total_debt, ...).
type Period struct {
	FiscalYear int                `yaml:"fiscal_year"`
	EndDate    string             `yaml:"end_date"`
	Income     map[string]float64 `yaml:"income_statement"`
	Balance    map[string]float64 `yaml:"balance_sheet"`
	CashFlow   map[string]float64 `yaml:"cash_flow_statement"`
}

type Provider struct {
	name      string
	companies map[string]Company
	path      string
}

var _ interfaces.RawDataProvider = (*Provider)(nil)

// Load reads fixtures from a YAML file.
func Load(path string) (*Provider, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	p := New(f)
	p.path = path
	return p, nil
}

// New serves the given fixtures.
func New(f Fixtures) *Provider {
	return NewNamed(Name, f)
}

// NewNamed is New with a custom provider name, for running several
// fixture sets side by side.
func NewNamed(name string, f Fixtures) *Provider {
	companies := make(map[string]Company, len(f.Companies))
	for ticker, c := range f.Companies {
		companies[strings.ToUpper(ticker)] = c
	}
	return &Provider{name: name, companies: companies}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) GetCompanyInfo(ctx context.Context, ticker string) (*types.CompanyIdentity, error) {
	symbol := strings.ToUpper(ticker)
	c, ok := p.companies[symbol]
	if !ok {
		return nil, provider.Errorf(p.name, "GetCompanyInfo", ticker, "%w: no fixture", provider.ErrNotFound)
	}

	return &types.CompanyIdentity{
		Ticker:      symbol,
		Name:        types.Text(c.Name),
		Exchange:    types.Text(c.Exchange),
		Sector:      types.Text(c.Sector),
		Industry:    types.Text(c.Industry),
		Description: types.Text(c.Description),
		Website:     types.Text(c.Website),
		CIK:         types.Text(c.CIK),
	}, nil
}

func (p *Provider) GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error) {
	const op = "GetFinancialStatements"
	symbol := strings.ToUpper(ticker)

	c, ok := p.companies[symbol]
	if !ok {
		return nil, provider.Errorf(p.name, op, ticker, "%w: no fixture", provider.ErrNotFound)
	}
	if numPeriods <= 0 {
		return nil, provider.Errorf(p.name, op, ticker, "numPeriods must be positive, got %d", numPeriods)
	}

	var periods []types.StatementPeriod
	for _, fp := range c.Periods {
		sp, err := fp.toStatement(symbol)
		if err != nil {
			return nil, provider.Errorf(p.name, op, ticker, "%w: fiscal year %d: %v", provider.ErrUpstream, fp.FiscalYear, err)
		}
		if !sp.HasData() {
			continue
		}
		sp.Source = p.name
		sp.SourceURL = p.path
		sp.RetrievedAt = time.Now().UTC()
		periods = append(periods, sp)
	}

	if len(periods) == 0 {
		return nil, provider.Errorf(p.name, op, ticker, "%w: fixture has no periods", provider.ErrNoStatements)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].FiscalYear > periods[j].FiscalYear
	})
	if len(periods) > numPeriods {
		periods = periods[:numPeriods]
	}
	return periods, nil
}

func (fp Period) toStatement(symbol string) (types.StatementPeriod, error) {
	sp := types.StatementPeriod{
		Ticker:     symbol,
		FiscalYear: fp.FiscalYear,
		PeriodType: types.PeriodAnnual,
	}

	if fp.EndDate != "" {
		end, err := time.Parse("2006-01-02", fp.EndDate)
		if err != nil {
			return sp, fmt.Errorf("end_date: %w", err)
		}
		sp.EndDate = end
	} else {
		sp.EndDate = time.Date(fp.FiscalYear, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	if err := decodeSection(fp.Income, &sp.Income); err != nil {
		return sp, fmt.Errorf("income_statement: %w", err)
	}
	if err := decodeSection(fp.Balance, &sp.Balance); err != nil {
		return sp, fmt.Errorf("balance_sheet: %w", err)
	}
	if err := decodeSection(fp.CashFlow, &sp.CashFlow); err != nil {
		return sp, fmt.Errorf("cash_flow_statement: %w", err)
	}
	return sp, nil
}

// decodeSection fills a statement struct through its JSON field names, so
// fixture keys are exactly the canonical names. Unknown keys are rejected.
func decodeSection(values map[string]float64, dst any) error {
	if len(values) == 0 {
		return nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
