package analysis

import (
	"context"
	"fmt"

	"fin-analysis/internal/cache"
	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/provider/alphavantage"
	"fin-analysis/internal/provider/edgar"
	"fin-analysis/internal/provider/finnhub"
	"fin-analysis/internal/provider/httpjson"
	"fin-analysis/internal/provider/providerobs"
	"fin-analysis/internal/provider/static"
	"fin-analysis/internal/reconcile"
	"fin-analysis/internal/runlog"
	"fin-analysis/internal/store"
)

// CreateProviders builds the configured providers in priority order. A
// provider whose API key is missing is skipped; any other construction
// failure is returned.
func CreateProviders(ctx context.Context, cfg *store.Config, c *cache.Cache) ([]interfaces.RawDataProvider, error) {
	var providers []interfaces.RawDataProvider

	for _, name := range cfg.Providers {
		p, err := createProvider(ctx, cfg, c, name)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", name, err)
		}
		if p == nil {
			continue
		}
		providers = append(providers, providerobs.Wrap(p))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable providers among %v", cfg.Providers)
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logger.Info(ctx, "Providers ready", "order", names)

	return providers, nil
}

func createProvider(ctx context.Context, cfg *store.Config, c *cache.Cache, name string) (interfaces.RawDataProvider, error) {
	clientOpts := func(rps float64) []httpjson.ClientOption {
		return []httpjson.ClientOption{
			httpjson.WithTimeout(cfg.HTTPTimeout()),
			httpjson.WithRateLimit(rps),
		}
	}

	switch name {
	case store.ProviderSEC:
		return edgar.New(cfg.SEC.UserAgent, c,
			edgar.WithBaseURL(cfg.SEC.BaseURL),
			edgar.WithTickersURL(cfg.SEC.TickersURL),
			edgar.WithSubmissions(cfg.SEC.IncludeSubmissions),
			edgar.WithTTLs(cfg.DirectoryTTL(), cfg.CacheTTL()),
			edgar.WithClientOptions(clientOpts(cfg.SEC.RequestsPerSecond)...),
		)

	case store.ProviderAlphaVantage:
		key := store.APIKey(cfg.AlphaVantage.APIKeyEnv)
		if key == "" {
			logger.Warn(ctx, "Skipping provider, API key not set",
				"provider", name, "env", cfg.AlphaVantage.APIKeyEnv)
			return nil, nil
		}
		return alphavantage.New(key, c,
			alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
			alphavantage.WithTTL(cfg.CacheTTL()),
			alphavantage.WithClientOptions(clientOpts(cfg.AlphaVantage.RequestsPerSecond)...),
		)

	case store.ProviderFinnhub:
		key := store.APIKey(cfg.Finnhub.APIKeyEnv)
		if key == "" {
			logger.Warn(ctx, "Skipping provider, API key not set",
				"provider", name, "env", cfg.Finnhub.APIKeyEnv)
			return nil, nil
		}
		return finnhub.New(key, c, cfg.CacheTTL())

	case store.ProviderStatic:
		return static.Load(cfg.Static.FixturePath)

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid options: %s, %s, %s, %s)",
			name, store.ProviderSEC, store.ProviderAlphaVantage, store.ProviderFinnhub, store.ProviderStatic)
	}
}

// NewFromConfig wires cache, providers and reconciliation into an Analyzer.
// The returned Cache must be closed by the caller.
func NewFromConfig(ctx context.Context, cfg *store.Config) (*Analyzer, *cache.Cache, error) {
	c := cache.NewFromConfig(ctx, cfg)

	providers, err := CreateProviders(ctx, cfg, c)
	if err != nil {
		c.Close()
		return nil, nil, err
	}

	runs := runlog.New(cfg.RunLog.Dir)
	if n, err := runs.CompressOlder(cfg.RunLog.RetentionDays); err != nil {
		logger.Warn(ctx, "Run log compression failed", "dir", cfg.RunLog.Dir, "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old run logs", "count", n, "dir", cfg.RunLog.Dir)
	}

	return New(reconcile.New(providers, cfg.ProviderTimeout()), WithRunLog(runs)), c, nil
}
