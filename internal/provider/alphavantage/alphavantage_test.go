package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/provider/httpjson"
)

var responses = map[string]string{
	"OVERVIEW": `{"Symbol":"IBM","Name":"International Business Machines","CIK":"51143","Exchange":"NYSE",
		"Sector":"TECHNOLOGY","Industry":"COMPUTER & OFFICE EQUIPMENT","Description":"IBM makes things.","OfficialSite":"None"}`,
	"INCOME_STATEMENT": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","totalRevenue":"61860000000","costOfRevenue":"27560000000","grossProfit":"34300000000",
		 "operatingIncome":"9000000000","interestExpense":"1600000000","netIncome":"7502000000","ebitda":"14693000000"},
		{"fiscalDateEnding":"2022-12-31","totalRevenue":"60530000000","costOfRevenue":"27842000000","grossProfit":"None",
		 "operatingIncome":"None","interestExpense":"1216000000","netIncome":"1639000000","ebitda":"None"}
	]}`,
	"BALANCE_SHEET": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","totalAssets":"135241000000","totalCurrentAssets":"32908000000","inventory":"1161000000",
		 "totalCurrentLiabilities":"34122000000","totalShareholderEquity":"22533000000","shortTermDebt":"6426000000",
		 "longTermDebt":"50121000000","shortLongTermDebtTotal":"None"},
		{"fiscalDateEnding":"2022-12-31","totalAssets":"127243000000","shortLongTermDebtTotal":"50948000000"}
	]}`,
	"CASH_FLOW": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","operatingCashflow":"13931000000","capitalExpenditures":"1245000000","dividendPayout":"6040000000"}
	]}`,
}

type fakeAV struct {
	server   *httptest.Server
	calls    int32
	gotTrace atomic.Value
}

func newFakeAV(t *testing.T, body func(function string) string) *fakeAV {
	f := &fakeAV{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		f.gotTrace.Store(r.Header.Get("X-Trace"))
		if r.URL.Query().Get("apikey") != "demo" {
			w.Write([]byte(`{"Error Message":"the parameter apikey is invalid or missing"}`))
			return
		}
		w.Write([]byte(body(r.URL.Query().Get("function"))))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestProvider(t *testing.T, f *fakeAV, c *cache.Cache) *Provider {
	t.Helper()
	p, err := New("demo", c,
		WithBaseURL(f.server.URL),
		WithClientOptions(httpjson.WithRateLimit(1000)),
	)
	require.NoError(t, err)
	return p
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestGetCompanyInfo(t *testing.T) {
	f := newFakeAV(t, func(fn string) string { return responses[fn] })
	p := newTestProvider(t, f, nil)

	info, err := p.GetCompanyInfo(context.Background(), "ibm")

	require.NoError(t, err)
	assert.Equal(t, "IBM", info.Ticker)
	assert.Equal(t, "International Business Machines", info.Name.String)
	assert.Equal(t, "Technology", info.Sector.String)
	assert.Equal(t, "Computer & Office Equipment", info.Industry.String)
	assert.Equal(t, "0000051143", info.CIK.String)
	assert.False(t, info.Website.Valid, "None must map to absent")
}

func TestClientOptionsAccumulate(t *testing.T) {
	f := newFakeAV(t, func(fn string) string { return responses[fn] })
	p, err := New("demo", nil,
		WithBaseURL(f.server.URL),
		WithClientOptions(httpjson.WithHeader("X-Trace", "run-1")),
		WithClientOptions(httpjson.WithRateLimit(1000)),
	)
	require.NoError(t, err)

	_, err = p.GetCompanyInfo(context.Background(), "IBM")

	require.NoError(t, err)
	assert.Equal(t, "run-1", f.gotTrace.Load())
}

func TestGetCompanyInfoUnknownSymbol(t *testing.T) {
	f := newFakeAV(t, func(string) string { return `{}` })
	p := newTestProvider(t, f, nil)

	_, err := p.GetCompanyInfo(context.Background(), "ZZZZ")

	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, provider.ErrNotFound))
}

func TestGetFinancialStatements(t *testing.T) {
	f := newFakeAV(t, func(fn string) string { return responses[fn] })
	p := newTestProvider(t, f, nil)

	periods, err := p.GetFinancialStatements(context.Background(), "IBM", 4)

	require.NoError(t, err)
	require.Len(t, periods, 2)

	latest := periods[0]
	assert.Equal(t, 2023, latest.FiscalYear)
	assert.Equal(t, 61860000000.0, latest.Income.Revenue.Float64)
	assert.Equal(t, 14693000000.0, latest.Income.EBITDA.Float64)
	assert.Equal(t, 6426000000.0+50121000000.0, latest.Balance.TotalDebt.Float64)
	assert.Equal(t, 13931000000.0-1245000000.0, latest.CashFlow.FreeCashFlow.Float64)
	assert.Equal(t, Name, latest.Source)
	assert.NotContains(t, latest.SourceURL, "demo", "api key must not leak into provenance")

	prior := periods[1]
	assert.Equal(t, 2022, prior.FiscalYear)
	assert.False(t, prior.Income.OperatingIncome.Valid)
	// Gross profit derives from revenue and cost when not reported.
	assert.Equal(t, 60530000000.0-27842000000.0, prior.Income.GrossProfit.Float64)
	assert.Equal(t, 50948000000.0, prior.Balance.TotalDebt.Float64)
	assert.False(t, prior.CashFlow.OperatingCashFlow.Valid)
}

func TestGetFinancialStatementsTruncates(t *testing.T) {
	f := newFakeAV(t, func(fn string) string { return responses[fn] })
	p := newTestProvider(t, f, nil)

	periods, err := p.GetFinancialStatements(context.Background(), "IBM", 1)

	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, 2023, periods[0].FiscalYear)
}

func TestRateLimitNoteIsNotCached(t *testing.T) {
	var throttled int32 = 1
	f := newFakeAV(t, func(fn string) string {
		if atomic.LoadInt32(&throttled) == 1 {
			return `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`
		}
		return responses[fn]
	})
	shared := cache.New(cache.NewMemoryStore(), time.Hour)
	p := newTestProvider(t, f, shared)

	_, err := p.GetCompanyInfo(context.Background(), "IBM")
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUpstream))

	atomic.StoreInt32(&throttled, 0)
	info, err := p.GetCompanyInfo(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "NYSE", info.Exchange.String)
}

func TestResponsesAreCached(t *testing.T) {
	f := newFakeAV(t, func(fn string) string { return responses[fn] })
	shared := cache.New(cache.NewMemoryStore(), time.Hour)
	p := newTestProvider(t, f, shared)

	for i := 0; i < 2; i++ {
		_, err := p.GetFinancialStatements(context.Background(), "IBM", 4)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&f.calls))
}

func TestNumberParsing(t *testing.T) {
	assert.False(t, number("None").Valid)
	assert.False(t, number("").Valid)
	assert.False(t, number("abc").Valid)
	assert.Equal(t, -12.5, number(" -12.5 ").Float64)
}
