package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/provider/static"
	"fin-analysis/internal/reconcile"
	"fin-analysis/internal/store"
	"fin-analysis/internal/types"
)

const fixturePath = "../provider/static/testdata/fixtures.yaml"

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	p, err := static.Load(fixturePath)
	require.NoError(t, err)

	a := New(reconcile.New([]interfaces.RawDataProvider{p}, time.Second))
	a.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAnalyze(t *testing.T) {
	a := newTestAnalyzer(t)

	res, err := a.Analyze(context.Background(), "acme", 4)

	require.NoError(t, err)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "ACME", res.Company.Ticker)
	assert.Equal(t, "Acme Corp", res.Company.Name.String)
	assert.Equal(t, static.Name, res.StatementSource)
	assert.Equal(t, []string{static.Name}, res.SourcesUsed)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), res.AnalyzedAt)

	require.Len(t, res.Statements, 2)
	require.Len(t, res.Ratios, 2)
	assert.Equal(t, 2023, res.Ratios[0].FiscalYear)
	assert.InDelta(t, 2.0, res.Ratios[0].Liquidity.CurrentRatio.Float64, 1e-9)
	assert.InDelta(t, 1.6, res.Ratios[0].Liquidity.QuickRatio.Float64, 1e-9)
	assert.InDelta(t, 0.08, res.Ratios[0].Profitability.NetMargin.Float64, 1e-9)
	assert.False(t, res.Ratios[0].Leverage.DebtToEquity.Valid)

	assert.Equal(t, "improving", res.Trends["liquidity"])
	assert.Contains(t, res.Findings["leverage"], "not available")
	assert.Equal(t, types.VerdictStrong, res.Verdict)
	assert.Len(t, res.Strengths, 1)
	assert.Empty(t, res.Concerns)
}

func TestAnalyzeUnknownTicker(t *testing.T) {
	a := newTestAnalyzer(t)

	res, err := a.Analyze(context.Background(), "NOPE", 4)

	assert.Nil(t, res)
	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{static.Name}, pe.Attempted)
	assert.Contains(t, err.Error(), "'NOPE'")
}

func TestAnalyzeCompanyWithoutStatements(t *testing.T) {
	a := newTestAnalyzer(t)

	_, err := a.Analyze(context.Background(), "EMPTY", 4)

	assert.True(t, errors.Is(err, provider.ErrNoStatements))
}

func TestCreateProvidersSkipsMissingKeys(t *testing.T) {
	cfg := store.Default()
	cfg.Providers = []string{store.ProviderStatic, store.ProviderAlphaVantage, store.ProviderFinnhub}
	cfg.Static.FixturePath = fixturePath
	t.Setenv(cfg.AlphaVantage.APIKeyEnv, "")
	t.Setenv(cfg.Finnhub.APIKeyEnv, "")

	providers, err := CreateProviders(context.Background(), cfg, cache.New(cache.NewMemoryStore(), time.Hour))

	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, static.Name, providers[0].Name())
}

func TestCreateProvidersOrder(t *testing.T) {
	cfg := store.Default()
	cfg.Providers = []string{store.ProviderAlphaVantage, store.ProviderSEC}
	t.Setenv(cfg.AlphaVantage.APIKeyEnv, "demo")

	providers, err := CreateProviders(context.Background(), cfg, nil)

	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "alphavantage", providers[0].Name())
	assert.Equal(t, "sec_edgar", providers[1].Name())
}

func TestCreateProvidersErrors(t *testing.T) {
	cfg := store.Default()
	cfg.Providers = []string{"bloomberg"}
	_, err := CreateProviders(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown provider")

	cfg.Providers = []string{store.ProviderFinnhub}
	t.Setenv(cfg.Finnhub.APIKeyEnv, "")
	_, err = CreateProviders(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "no usable providers")

	cfg.Providers = []string{store.ProviderStatic}
	cfg.Static.FixturePath = "testdata/missing.yaml"
	_, err = CreateProviders(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := store.Default()
	cfg.Providers = []string{store.ProviderStatic}
	cfg.Static.FixturePath = fixturePath
	cfg.Cache.Backend = "none"
	cfg.RunLog.Dir = t.TempDir()

	a, c, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	res, err := a.Analyze(context.Background(), "ACME", 1)
	require.NoError(t, err)
	assert.Len(t, res.Statements, 1)

	_, err = a.Analyze(context.Background(), "NOPE", 1)
	require.Error(t, err)

	b, err := os.ReadFile(filepath.Join(cfg.RunLog.Dir, time.Now().UTC().Format("2006-01-02")+".jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"outcome":"ok"`)
	assert.Contains(t, lines[0], res.RunID)
	assert.Contains(t, lines[1], `"outcome":"failed"`)
}
