package static

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fin-analysis/internal/provider"
)

func TestLoadAndServe(t *testing.T) {
	p, err := Load("testdata/fixtures.yaml")
	require.NoError(t, err)

	info, err := p.GetCompanyInfo(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "ACME", info.Ticker)
	assert.Equal(t, "Acme Corp", info.Name.String)
	assert.False(t, info.Industry.Valid)

	periods, err := p.GetFinancialStatements(context.Background(), "ACME", 5)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 2023, periods[0].FiscalYear)
	assert.Equal(t, 800.0, periods[0].Balance.TotalDebt.Float64)
	assert.Equal(t, 120.0, periods[0].CashFlow.OperatingCashFlow.Float64)
	assert.False(t, periods[1].CashFlow.OperatingCashFlow.Valid)
	assert.Equal(t, Name, periods[0].Source)
}

func TestUnknownTicker(t *testing.T) {
	p := New(Fixtures{})

	_, err := p.GetCompanyInfo(context.Background(), "ZZZZ")
	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, provider.ErrNotFound))
}

func TestNoPeriods(t *testing.T) {
	p, err := Load("testdata/fixtures.yaml")
	require.NoError(t, err)

	_, err = p.GetFinancialStatements(context.Background(), "EMPTY", 4)
	assert.True(t, errors.Is(err, provider.ErrNoStatements))
}

func TestUnknownFieldRejected(t *testing.T) {
	p := New(Fixtures{Companies: map[string]Company{
		"BAD": {Periods: []Period{{FiscalYear: 2023, Income: map[string]float64{"turnover": 1}}}},
	}})

	_, err := p.GetFinancialStatements(context.Background(), "BAD", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turnover")
}

func TestNamedProvider(t *testing.T) {
	p := NewNamed("backup", Fixtures{})
	assert.Equal(t, "backup", p.Name())
}
