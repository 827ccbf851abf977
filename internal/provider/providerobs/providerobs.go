package providerobs

import (
	"context"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/types"
)

// observableProvider wraps a RawDataProvider with logging and tracing
type observableProvider struct {
	provider interfaces.RawDataProvider
}

// Compile-time interface check
var _ interfaces.RawDataProvider = (*observableProvider)(nil)

// Wrap wraps a provider with observability middleware
func Wrap(provider interfaces.RawDataProvider) interfaces.RawDataProvider {
	return &observableProvider{provider: provider}
}

func (op *observableProvider) Name() string {
	return op.provider.Name()
}

func (op *observableProvider) GetCompanyInfo(ctx context.Context, ticker string) (*types.CompanyIdentity, error) {
	timer := logger.StartOperation(ctx, "provider.GetCompanyInfo",
		"provider", op.provider.Name(),
		"ticker", ticker,
	)
	ctx = timer.GetContext()

	info, err := op.provider.GetCompanyInfo(ctx, ticker)
	if err != nil {
		logger.ProviderEvent(ctx, op.provider.Name(), "GetCompanyInfo", ticker, "error", "error", err)
		timer.End("outcome", "error")
		return nil, err
	}

	logger.ProviderEvent(ctx, op.provider.Name(), "GetCompanyInfo", ticker, "ok",
		"name", info.Name.ValueOrZero(),
	)
	timer.End("outcome", "ok")
	return info, nil
}

func (op *observableProvider) GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error) {
	timer := logger.StartOperation(ctx, "provider.GetFinancialStatements",
		"provider", op.provider.Name(),
		"ticker", ticker,
		"periods_requested", numPeriods,
	)
	ctx = timer.GetContext()

	periods, err := op.provider.GetFinancialStatements(ctx, ticker, numPeriods)
	if err != nil {
		logger.ProviderEvent(ctx, op.provider.Name(), "GetFinancialStatements", ticker, "error", "error", err)
		timer.End("outcome", "error")
		return nil, err
	}

	logger.ProviderEvent(ctx, op.provider.Name(), "GetFinancialStatements", ticker, "ok",
		"periods", len(periods),
	)
	timer.End("outcome", "ok", "periods", len(periods))
	return periods, nil
}
