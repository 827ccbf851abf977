package interfaces

import (
	"context"

	"fin-analysis/internal/types"
)

// RawDataProvider is one upstream source of company identity and statements
type RawDataProvider interface {
	// Name identifies the provider in logs, errors and provenance fields
	Name() string

	// GetCompanyInfo resolves the ticker to a company identity
	GetCompanyInfo(ctx context.Context, ticker string) (*types.CompanyIdentity, error)

	// GetFinancialStatements returns up to numPeriods periods, most recent first
	GetFinancialStatements(ctx context.Context, ticker string, numPeriods int) ([]types.StatementPeriod, error)
}
