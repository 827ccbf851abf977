// Package reconcile picks one provider as the statement source of record and
// enriches the company identity from every other provider.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/types"
)

// DefaultProviderTimeout bounds each provider call when none is configured.
const DefaultProviderTimeout = 60 * time.Second

var (
	ErrInvalidPeriods = errors.New("number of periods must be positive")
	ErrEmptyTicker    = errors.New("ticker is required")
	ErrNoProviders    = errors.New("no data providers configured")
)

// Result is the reconciled view of one company
type Result struct {
	Company         *types.CompanyIdentity
	Statements      []types.StatementPeriod
	StatementSource string
	// SourcesUsed starts with the statement source, followed by every
	// provider that filled an identity field, in priority order.
	SourcesUsed []string
	Attempted   []string
}

// Service holds no per-call state and is safe for concurrent use.
type Service struct {
	providers []interfaces.RawDataProvider
	timeout   time.Duration
}

// New takes providers in priority order, most trusted first.
func New(providers []interfaces.RawDataProvider, providerTimeout time.Duration) *Service {
	if providerTimeout <= 0 {
		providerTimeout = DefaultProviderTimeout
	}
	return &Service{
		providers: providers,
		timeout:   providerTimeout,
	}
}

// Providers returns the provider names in priority order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Reconcile fetches statements from the first provider that can supply them
// and fills identity gaps from all providers.
func (s *Service) Reconcile(ctx context.Context, ticker string, numPeriods int) (*Result, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	switch {
	case ticker == "":
		return nil, ErrEmptyTicker
	case numPeriods <= 0:
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPeriods, numPeriods)
	case len(s.providers) == 0:
		return nil, ErrNoProviders
	}

	timer := logger.StartOperation(ctx, "reconcile.Reconcile",
		"ticker", ticker,
		"periods", numPeriods,
		"providers", strings.Join(s.Providers(), ","),
	)
	ctx = timer.GetContext()

	winner, identity, statements, attempted, err := s.primary(ctx, ticker, numPeriods)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	result := &Result{
		Company:         identity,
		Statements:      statements,
		StatementSource: s.providers[winner].Name(),
		SourcesUsed:     []string{s.providers[winner].Name()},
		Attempted:       attempted,
	}
	s.enrich(ctx, ticker, winner, result)

	timer.End(
		"source", result.StatementSource,
		"periods", len(result.Statements),
		"sources_used", strings.Join(result.SourcesUsed, ","),
	)
	return result, nil
}

// primary walks the providers in order and returns the index of the first
// one that yields both an identity and a non-empty statement history.
func (s *Service) primary(ctx context.Context, ticker string, numPeriods int) (int, *types.CompanyIdentity, []types.StatementPeriod, []string, error) {
	var (
		attempted []string
		lastErr   error
	)

	for i, p := range s.providers {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempted = append(attempted, p.Name())

		identity, statements, err := s.fetchAll(ctx, p, ticker, numPeriods)
		if err != nil {
			lastErr = err
			logger.Warn(ctx, "Provider failed, trying next",
				"provider", p.Name(),
				"ticker", ticker,
				"error", err,
			)
			continue
		}

		if identity.Ticker == "" {
			identity.Ticker = ticker
		}
		return i, identity, statements, attempted, nil
	}

	return -1, nil, nil, attempted, &provider.ProviderError{
		Ticker:    ticker,
		Op:        "Reconcile",
		Attempted: attempted,
		Err:       lastErr,
	}
}

func (s *Service) fetchAll(ctx context.Context, p interfaces.RawDataProvider, ticker string, numPeriods int) (*types.CompanyIdentity, []types.StatementPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	identity, err := p.GetCompanyInfo(ctx, ticker)
	if err != nil {
		return nil, nil, provider.Wrap(p.Name(), "GetCompanyInfo", ticker, err)
	}
	if identity == nil {
		return nil, nil, provider.Errorf(p.Name(), "GetCompanyInfo", ticker, "%w: empty identity", provider.ErrNotFound)
	}

	statements, err := p.GetFinancialStatements(ctx, ticker, numPeriods)
	if err != nil {
		return nil, nil, provider.Wrap(p.Name(), "GetFinancialStatements", ticker, err)
	}
	if len(statements) == 0 {
		return nil, nil, provider.Errorf(p.Name(), "GetFinancialStatements", ticker, "%w", provider.ErrNoStatements)
	}
	if len(statements) > numPeriods {
		statements = statements[:numPeriods]
	}

	// The caller owns the returned identity; keep provider state untouched.
	own := *identity
	return &own, statements, nil
}

// enrich queries every other provider concurrently and merges the answers in
// priority order, so the outcome never depends on which call finished first.
func (s *Service) enrich(ctx context.Context, ticker string, winner int, result *Result) {
	ctx, span := logger.StartSpan(ctx, "reconcile.enrich")
	defer span.End()

	infos := make([]*types.CompanyIdentity, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		if i == winner {
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			info, err := p.GetCompanyInfo(callCtx, ticker)
			if err != nil {
				logger.Warn(ctx, "Identity enrichment skipped",
					"provider", p.Name(),
					"ticker", ticker,
					"error", err,
				)
				return nil
			}
			infos[i] = info
			return nil
		})
	}
	_ = g.Wait()

	for i, info := range infos {
		if info == nil {
			continue
		}
		if filled := result.Company.Fill(info); filled > 0 {
			result.SourcesUsed = append(result.SourcesUsed, s.providers[i].Name())
			logger.Debug(ctx, "Identity enriched",
				"provider", s.providers[i].Name(),
				"fields_filled", filled,
			)
		}
	}
}
