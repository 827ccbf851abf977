// Package finnhub reads company profiles and as-reported financials through
// the Finnhub SDK. Reported line items carry XBRL concept names, so they are
// mapped with the same concept table as SEC EDGAR.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/types"
	"fin-analysis/internal/xbrl"
)

const (
	Name = "finnhub"

	sourceURL = "https://finnhub.io/api/v1/stock/financials-reported"
)

type profile struct {
	Ticker   string
	Name     string
	Exchange string
	Industry string
	Website  string
}

// reportedFinancials mirrors the financials-reported payload
type reportedFinancials struct {
	Symbol string   `json:"symbol"`
	Data   []report `json:"data"`
}

type report struct {
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Form    string `json:"form"`
	EndDate string `json:"endDate"`
	Report  struct {
		BalanceSheet    []lineItem `json:"bs"`
		IncomeStatement []lineItem `json:"ic"`
		CashFlow        []lineItem `json:"cf"`
	} `json:"report"`
}

type lineItem struct {
	Concept string `json:"concept"`
	Unit    string `json:"unit"`
	Value   any    `json:"value"`
}

// api is the slice of the Finnhub SDK this provider uses
type api interface {
	profile(ctx context.Context, symbol string) (profile, error)
	financialsReported(ctx context.Context, symbol string) ([]byte, error)
}

type sdkAPI struct {
	client *finnhub.DefaultApiService
}

func (s sdkAPI) profile(ctx context.Context, symbol string) (profile, error) {
	res, _, err := s.client.CompanyProfile2(ctx).Symbol(symbol).Execute()
	if err != nil {
		return profile{}, err
	}
	return profile{
		Ticker:   res.GetTicker(),
		Name:     res.GetName(),
		Exchange: res.GetExchange(),
		Industry: res.GetFinnhubIndustry(),
		Website:  res.GetWeburl(),
	}, nil
}

func (s sdkAPI) financialsReported(ctx context.Context, symbol string) ([]byte, error) {
	res, _, err := s.client.FinancialsReported(ctx).Symbol(symbol).Freq("annual").Execute()
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

type Provider struct {
	api   api
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

var _ interfaces.RawDataProvider = (*Provider)(nil)

func New(apiKey string, c *cache.Cache, ttl time.Duration) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("finnhub: api key is required")
	}
	if err := xbrl.Validate(); err != nil {
		return nil, fmt.Errorf("finnhub: concept table: %w", err)
	}

	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi

	return newProvider(sdkAPI{client: client}, c, ttl), nil
}

func newProvider(a api, c *cache.Cache, ttl time.Duration) *Provider {
	if c == nil {
		c = cache.New(nil, 0)
	}
	if ttl <= 0 {
		ttl = cache.TTLStatements
	}
	return &Provider{api: a, cache: c, ttl: ttl, now: time.Now}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) GetCompanyInfo(ctx context.Context, ticker string) (*types.CompanyIdentity, error) {
	const op = "GetCompanyInfo"
	symbol := strings.ToUpper(ticker)

	prof, err := p.api.profile(ctx, symbol)
	if err != nil {
		return nil, provider.Errorf(Name, op, ticker, "%w: %v", provider.ErrUpstream, err)
	}
	// Unknown symbols come back as an empty object.
	if prof.Name == "" && prof.Ticker == "" {
		return nil, provider.Errorf(Name, op, ticker, "%w: empty profile", provider.ErrNotFound)
	}

	return &types.CompanyIdentity{
		Ticker:   symbol,
		Name:     types.Text(prof.Name),
		Exchange: types.Text(prof.Exchange),
		Industry: types.Text(prof.Industry),
		Website:  types.Text(prof.Website),
	}, nil
}

func (p *Provider) GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error) {
	const op = "GetFinancialStatements"
	symbol := strings.ToUpper(ticker)

	if numPeriods <= 0 {
		return nil, provider.Errorf(Name, op, ticker, "numPeriods must be positive, got %d", numPeriods)
	}

	raw, err := p.cache.GetOrFetchTTL(ctx, cache.Key(Name, "financials_reported", symbol), p.ttl,
		func(ctx context.Context) ([]byte, error) {
			return p.api.financialsReported(ctx, symbol)
		})
	if err != nil {
		return nil, provider.Errorf(Name, op, ticker, "%w: %v", provider.ErrUpstream, err)
	}

	var fin reportedFinancials
	if err := json.Unmarshal(raw, &fin); err != nil {
		return nil, provider.Errorf(Name, op, ticker, "%w: decode financials: %v", provider.ErrUpstream, err)
	}

	periods := toPeriods(fin.Data, symbol, p.now().UTC())
	if len(periods) == 0 {
		return nil, provider.Errorf(Name, op, ticker, "%w: no annual reports", provider.ErrNoStatements)
	}
	if len(periods) > numPeriods {
		periods = periods[:numPeriods]
	}
	return periods, nil
}

// toPeriods keeps one annual report per fiscal year, most recent first.
func toPeriods(reports []report, symbol string, retrieved time.Time) []types.StatementPeriod {
	byYear := make(map[int]types.StatementPeriod)
	for _, r := range reports {
		if r.Quarter != 0 || r.Year == 0 {
			continue
		}
		end, ok := parseEndDate(r.EndDate)
		if !ok {
			continue
		}

		values := make(map[string]float64)
		for _, items := range [][]lineItem{r.Report.IncomeStatement, r.Report.BalanceSheet, r.Report.CashFlow} {
			for _, item := range items {
				tag := conceptTag(item.Concept)
				if _, known := xbrl.Lookup(tag); !known {
					continue
				}
				v, ok := item.Value.(float64)
				if !ok {
					continue
				}
				if _, seen := values[tag]; !seen {
					values[tag] = v
				}
			}
		}

		p := types.StatementPeriod{
			Ticker:      symbol,
			FiscalYear:  r.Year,
			PeriodType:  types.PeriodAnnual,
			EndDate:     end,
			Source:      Name,
			SourceURL:   sourceURL + "?symbol=" + symbol + "&freq=annual",
			RetrievedAt: retrieved,
		}
		xbrl.Populate(&p, values)
		if !p.HasData() {
			continue
		}

		// Amended filings repeat the year; keep the later period end.
		if prev, dup := byYear[r.Year]; dup && !end.After(prev.EndDate) {
			continue
		}
		byYear[r.Year] = p
	}

	periods := make([]types.StatementPeriod, 0, len(byYear))
	for _, p := range byYear {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].FiscalYear > periods[j].FiscalYear
	})
	return periods
}

// conceptTag strips the taxonomy prefix: "us-gaap_Revenues" -> "Revenues".
func conceptTag(concept string) string {
	if i := strings.LastIndexAny(concept, "_:"); i >= 0 {
		return concept[i+1:]
	}
	return concept
}

func parseEndDate(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
