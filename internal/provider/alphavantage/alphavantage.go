// Package alphavantage reads company overviews and annual statements from
// the Alpha Vantage fundamentals API.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/provider/httpjson"
	"fin-analysis/internal/types"
	"fin-analysis/internal/xbrl"
)

const (
	Name = "alphavantage"

	DefaultBaseURL = "https://www.alphavantage.co"

	fnOverview = "OVERVIEW"
	fnIncome   = "INCOME_STATEMENT"
	fnBalance  = "BALANCE_SHEET"
	fnCashFlow = "CASH_FLOW"

	dateLayout = "2006-01-02"
)

// statementResponse is the shape shared by the three statement functions
type statementResponse struct {
	Symbol        string              `json:"symbol"`
	AnnualReports []map[string]string `json:"annualReports"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	client     *httpjson.Client
	clientOpts []httpjson.ClientOption
	cache      *cache.Cache
	ttl        time.Duration
	now        func() time.Time
}

var _ interfaces.RawDataProvider = (*Provider)(nil)

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTTL sets how long statement documents are cached.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.ttl = ttl }
}

// WithClientOptions passes options to the underlying HTTP client, applied
// after the defaults.
func WithClientOptions(opts ...httpjson.ClientOption) Option {
	return func(p *Provider) { p.clientOpts = append(p.clientOpts, opts...) }
}

func New(apiKey string, c *cache.Cache, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("alphavantage: api key is required")
	}
	if c == nil {
		c = cache.New(nil, 0)
	}

	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		// Free tier allows a handful of calls per minute.
		clientOpts: []httpjson.ClientOption{httpjson.WithRateLimit(1)},
		cache:      c,
		ttl:        cache.TTLStatements,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}
	p.client = httpjson.NewClient(p.clientOpts...)

	return p, nil
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) GetCompanyInfo(ctx context.Context, ticker string) (*types.CompanyIdentity, error) {
	const op = "GetCompanyInfo"

	raw, err := p.query(ctx, fnOverview, ticker)
	if err != nil {
		return nil, provider.Wrap(Name, op, ticker, err)
	}

	var overview map[string]string
	if err := json.Unmarshal(raw, &overview); err != nil {
		return nil, provider.Errorf(Name, op, ticker, "%w: decode overview: %v", provider.ErrUpstream, err)
	}
	if text(overview["Symbol"]) == "" {
		return nil, provider.Errorf(Name, op, ticker, "%w: empty overview", provider.ErrNotFound)
	}

	info := &types.CompanyIdentity{
		Ticker:      strings.ToUpper(ticker),
		Name:        types.Text(text(overview["Name"])),
		Exchange:    types.Text(text(overview["Exchange"])),
		Sector:      types.Text(titleCase(text(overview["Sector"]))),
		Industry:    types.Text(titleCase(text(overview["Industry"]))),
		Description: types.Text(text(overview["Description"])),
		Website:     types.Text(text(overview["OfficialSite"])),
	}
	if cik := text(overview["CIK"]); cik != "" {
		if n, err := strconv.Atoi(cik); err == nil {
			info.CIK = types.Text(fmt.Sprintf("%010d", n))
		}
	}

	return info, nil
}

func (p *Provider) GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error) {
	const op = "GetFinancialStatements"

	if numPeriods <= 0 {
		return nil, provider.Errorf(Name, op, ticker, "numPeriods must be positive, got %d", numPeriods)
	}

	byEnd := make(map[string]*types.StatementPeriod)
	period := func(end string) *types.StatementPeriod {
		sp, ok := byEnd[end]
		if !ok {
			sp = &types.StatementPeriod{}
			byEnd[end] = sp
		}
		return sp
	}

	for _, fn := range []string{fnIncome, fnBalance, fnCashFlow} {
		raw, err := p.query(ctx, fn, ticker)
		if err != nil {
			return nil, provider.Wrap(Name, op, ticker, err)
		}

		var resp statementResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, provider.Errorf(Name, op, ticker, "%w: decode %s: %v", provider.ErrUpstream, fn, err)
		}

		for _, report := range resp.AnnualReports {
			end := text(report["fiscalDateEnding"])
			if end == "" {
				continue
			}
			sp := period(end)
			switch fn {
			case fnIncome:
				applyIncome(sp, report)
			case fnBalance:
				applyBalance(sp, report)
			case fnCashFlow:
				applyCashFlow(sp, report)
			}
		}
	}

	retrieved := p.now().UTC()
	var periods []types.StatementPeriod
	for end, sp := range byEnd {
		endDate, err := time.Parse(dateLayout, end)
		if err != nil {
			continue
		}
		xbrl.Derive(sp, null.Float{})
		if !sp.HasData() {
			continue
		}
		sp.Ticker = strings.ToUpper(ticker)
		sp.FiscalYear = endDate.Year()
		sp.PeriodType = types.PeriodAnnual
		sp.EndDate = endDate
		sp.Source = Name
		sp.SourceURL = p.functionURL(fnIncome, ticker, false)
		sp.RetrievedAt = retrieved
		periods = append(periods, *sp)
	}

	if len(periods) == 0 {
		return nil, provider.Errorf(Name, op, ticker, "%w: no annual reports", provider.ErrNoStatements)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].EndDate.After(periods[j].EndDate)
	})
	if len(periods) > numPeriods {
		periods = periods[:numPeriods]
	}

	return periods, nil
}

// query fetches one API function through the cache. Error payloads are
// rejected inside the fetch so they are never cached.
func (p *Provider) query(ctx context.Context, function, ticker string) (json.RawMessage, error) {
	symbol := strings.ToUpper(ticker)
	key := cache.Key(Name, function, symbol)

	return p.cache.GetOrFetchTTL(ctx, key, p.ttl, func(ctx context.Context) ([]byte, error) {
		body, err := p.client.Get(ctx, p.functionURL(function, symbol, true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", provider.ErrUpstream, function, err)
		}
		if err := checkPayload(body); err != nil {
			return nil, fmt.Errorf("%s: %w", function, err)
		}
		return body, nil
	})
}

func (p *Provider) functionURL(function, symbol string, withKey bool) string {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", strings.ToUpper(symbol))
	if withKey {
		q.Set("apikey", p.apiKey)
	}
	return p.baseURL + "/query?" + q.Encode()
}

// checkPayload recognises the API's in-band errors: throttling notes,
// invalid-call messages and the empty object returned for unknown symbols.
func checkPayload(body []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUpstream, err)
	}
	for _, k := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := envelope[k]; ok {
			var s string
			_ = json.Unmarshal(msg, &s)
			return fmt.Errorf("%w: %s", provider.ErrUpstream, s)
		}
	}
	if len(envelope) == 0 {
		return provider.ErrNotFound
	}
	return nil
}

func applyIncome(sp *types.StatementPeriod, r map[string]string) {
	in := &sp.Income
	in.Revenue = number(r["totalRevenue"])
	in.CostOfGoodsSold = firstNumber(r, "costOfRevenue", "costofGoodsAndServicesSold")
	in.GrossProfit = number(r["grossProfit"])
	in.OperatingIncome = number(r["operatingIncome"])
	in.InterestExpense = number(r["interestExpense"])
	in.NetIncome = number(r["netIncome"])
	in.EBITDA = number(r["ebitda"])
}

func applyBalance(sp *types.StatementPeriod, r map[string]string) {
	b := &sp.Balance
	b.TotalAssets = number(r["totalAssets"])
	b.CurrentAssets = number(r["totalCurrentAssets"])
	b.CashAndEquivalents = firstNumber(r, "cashAndCashEquivalentsAtCarryingValue", "cashAndShortTermInvestments")
	b.Inventory = number(r["inventory"])
	b.AccountsReceivable = number(r["currentNetReceivables"])
	b.TotalLiabilities = number(r["totalLiabilities"])
	b.CurrentLiabilities = number(r["totalCurrentLiabilities"])
	b.ShareholdersEquity = number(r["totalShareholderEquity"])
	b.SharesOutstanding = number(r["commonStockSharesOutstanding"])

	// Prefer the reported total; otherwise add the short and long parts.
	b.TotalDebt = number(r["shortLongTermDebtTotal"])
	if !b.TotalDebt.Valid {
		short := firstNumber(r, "shortTermDebt", "currentDebt")
		long := firstNumber(r, "longTermDebtNoncurrent", "longTermDebt")
		switch {
		case short.Valid && long.Valid:
			b.TotalDebt = null.FloatFrom(short.Float64 + long.Float64)
		case short.Valid:
			b.TotalDebt = short
		case long.Valid:
			b.TotalDebt = long
		}
	}
}

func applyCashFlow(sp *types.StatementPeriod, r map[string]string) {
	cf := &sp.CashFlow
	cf.OperatingCashFlow = number(r["operatingCashflow"])
	cf.CapitalExpenditures = number(r["capitalExpenditures"])
	cf.DividendPayments = firstNumber(r, "dividendPayout", "dividendPayoutCommonStock")
}

// number parses an API value; "None", "-" and blanks are absent.
func number(s string) null.Float {
	s = text(s)
	if s == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

func firstNumber(r map[string]string, keys ...string) null.Float {
	for _, k := range keys {
		if v := number(r[k]); v.Valid {
			return v
		}
	}
	return null.Float{}
}

func text(s string) string {
	s = strings.TrimSpace(s)
	if s == "None" || s == "-" {
		return ""
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
