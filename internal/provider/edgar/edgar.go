// Package edgar reads annual statements from SEC EDGAR XBRL company facts.
// API documentation: https://www.sec.gov/edgar/sec-api-documentation
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/provider/httpjson"
	"fin-analysis/internal/types"
	"fin-analysis/internal/xbrl"
)

const (
	Name = "sec_edgar"

	DefaultBaseURL    = "https://data.sec.gov"
	DefaultTickersURL = "https://www.sec.gov/files/company_tickers.json"

	companyFactsPath = "/api/xbrl/companyfacts/CIK%s.json"
	submissionsPath  = "/submissions/CIK%s.json"
)

// directoryEntry is one row of company_tickers.json
type directoryEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func (d directoryEntry) paddedCIK() string {
	return fmt.Sprintf("%010d", d.CIK)
}

// submissions is the subset of the submissions document used for identity
type submissions struct {
	Name           string   `json:"name"`
	SICDescription string   `json:"sicDescription"`
	Exchanges      []string `json:"exchanges"`
	Website        string   `json:"website"`
	Description    string   `json:"description"`
}

// Provider resolves tickers through the SEC directory and aggregates
// 10-K facts. All upstream documents go through the cache.
type Provider struct {
	client             *httpjson.Client
	clientOpts         []httpjson.ClientOption
	cache              *cache.Cache
	baseURL            string
	tickersURL         string
	includeSubmissions bool
	directoryTTL       time.Duration
	factsTTL           time.Duration
	now                func() time.Time

	mu        sync.Mutex
	directory map[string]directoryEntry
}

var _ interfaces.RawDataProvider = (*Provider)(nil)

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL overrides the data.sec.gov base URL.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTickersURL overrides the ticker directory URL.
func WithTickersURL(u string) Option {
	return func(p *Provider) { p.tickersURL = u }
}

// WithSubmissions enables exchange and industry lookup from the submissions document.
func WithSubmissions(enabled bool) Option {
	return func(p *Provider) { p.includeSubmissions = enabled }
}

// WithTTLs sets the expiry of the directory and of per-company documents.
func WithTTLs(directory, facts time.Duration) Option {
	return func(p *Provider) {
		p.directoryTTL = directory
		p.factsTTL = facts
	}
}

// WithClientOptions passes options to the underlying HTTP client. They
// apply after the defaults, so they may override them.
func WithClientOptions(opts ...httpjson.ClientOption) Option {
	return func(p *Provider) { p.clientOpts = append(p.clientOpts, opts...) }
}

// New creates an EDGAR provider. SEC rejects requests without a
// descriptive User-Agent, so one is required.
func New(userAgent string, c *cache.Cache, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("sec edgar: user agent is required")
	}
	if err := xbrl.Validate(); err != nil {
		return nil, fmt.Errorf("sec edgar: concept table: %w", err)
	}
	if c == nil {
		c = cache.New(nil, 0)
	}

	p := &Provider{
		clientOpts: []httpjson.ClientOption{
			httpjson.WithHeader("User-Agent", userAgent),
			httpjson.WithRateLimit(5),
		},
		cache:        c,
		baseURL:      DefaultBaseURL,
		tickersURL:   DefaultTickersURL,
		directoryTTL: cache.TTLDirectory,
		factsTTL:     cache.TTLStatements,
		now:          time.Now,
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

	entry, err := p.resolve(ctx, ticker, op)
	if err != nil {
		return nil, err
	}

	info := &types.CompanyIdentity{
		Ticker: strings.ToUpper(ticker),
		Name:   types.Text(entry.Title),
		CIK:    types.Text(entry.paddedCIK()),
	}

	if p.includeSubmissions {
		sub, err := p.submissions(ctx, entry)
		if err != nil {
			// Identity without exchange/industry is still usable.
			logger.Warn(ctx, "SEC submissions unavailable", "ticker", ticker, "cik", entry.paddedCIK(), "error", err)
		} else {
			info.Fill(&types.CompanyIdentity{
				Name:        types.Text(sub.Name),
				Industry:    types.Text(sub.SICDescription),
				Exchange:    types.Text(firstOf(sub.Exchanges)),
				Website:     types.Text(sub.Website),
				Description: types.Text(sub.Description),
			})
		}
	}

	return info, nil
}

func (p *Provider) GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error) {
	const op = "GetFinancialStatements"

	if numPeriods <= 0 {
		return nil, provider.Errorf(Name, op, ticker, "numPeriods must be positive, got %d", numPeriods)
	}

	entry, err := p.resolve(ctx, ticker, op)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + fmt.Sprintf(companyFactsPath, entry.paddedCIK())
	raw, err := p.cache.GetOrFetchTTL(ctx, cache.Key("sec", "facts", entry.paddedCIK()), p.factsTTL,
		func(ctx context.Context) ([]byte, error) {
			return p.client.Get(ctx, url)
		})
	if err != nil {
		return nil, p.upstreamError(op, ticker, err)
	}

	var facts xbrl.CompanyFacts
	if err := json.Unmarshal(raw, &facts); err != nil {
		return nil, provider.Errorf(Name, op, ticker, "%w: decode company facts: %v", provider.ErrUpstream, err)
	}

	periods := xbrl.AnnualPeriods(&facts, strings.ToUpper(ticker), numPeriods)
	if len(periods) == 0 {
		return nil, provider.Errorf(Name, op, ticker, "%w: no annual 10-K facts for CIK %s", provider.ErrNoStatements, entry.paddedCIK())
	}

	retrieved := p.now().UTC()
	for i := range periods {
		periods[i].Source = Name
		periods[i].SourceURL = url
		periods[i].RetrievedAt = retrieved
	}

	return periods, nil
}

// resolve maps a ticker to its directory entry, loading the directory on first use.
func (p *Provider) resolve(ctx context.Context, ticker, op string) (directoryEntry, error) {
	dir, err := p.loadDirectory(ctx)
	if err != nil {
		return directoryEntry{}, p.upstreamError(op, ticker, err)
	}

	entry, ok := dir[normalizeTicker(ticker)]
	if !ok {
		return directoryEntry{}, provider.Errorf(Name, op, ticker, "%w: not in SEC company directory", provider.ErrNotFound)
	}
	return entry, nil
}

func (p *Provider) loadDirectory(ctx context.Context) (map[string]directoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.directory != nil {
		return p.directory, nil
	}

	raw, err := p.cache.GetOrFetchTTL(ctx, cache.Key("sec", "cik_map"), p.directoryTTL,
		func(ctx context.Context) ([]byte, error) {
			return p.client.Get(ctx, p.tickersURL)
		})
	if err != nil {
		return nil, err
	}

	var rows map[string]directoryEntry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode company directory: %v", provider.ErrUpstream, err)
	}

	dir := make(map[string]directoryEntry, len(rows))
	for _, row := range rows {
		if row.Ticker == "" {
			continue
		}
		dir[normalizeTicker(row.Ticker)] = row
	}
	p.directory = dir

	logger.Debug(ctx, "Loaded SEC company directory", "entries", len(dir))
	return dir, nil
}

func (p *Provider) submissions(ctx context.Context, entry directoryEntry) (*submissions, error) {
	url := p.baseURL + fmt.Sprintf(submissionsPath, entry.paddedCIK())
	raw, err := p.cache.GetOrFetchTTL(ctx, cache.Key("sec", "submissions", entry.paddedCIK()), p.factsTTL,
		func(ctx context.Context) ([]byte, error) {
			return p.client.Get(ctx, url)
		})
	if err != nil {
		return nil, err
	}

	var sub submissions
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return &sub, nil
}

func (p *Provider) upstreamError(op, ticker string, err error) error {
	var se *httpjson.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return provider.Errorf(Name, op, ticker, "%w: %v", provider.ErrNotFound, err)
	}
	if errors.Is(err, provider.ErrUpstream) {
		return provider.Wrap(Name, op, ticker, err)
	}
	return provider.Errorf(Name, op, ticker, "%w: %v", provider.ErrUpstream, err)
}

// normalizeTicker upper-cases and uses SEC's class separator (BRK.B -> BRK-B).
func normalizeTicker(t string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(t)), ".", "-")
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
