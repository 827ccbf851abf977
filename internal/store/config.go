package store

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ProviderSEC          = "sec_edgar"
	ProviderAlphaVantage = "alphavantage"
	ProviderFinnhub      = "finnhub"
	ProviderStatic       = "static"
)

type Config struct {
	Analysis struct {
		Periods int `yaml:"periods" validate:"gte=1,lte=20"`
	} `yaml:"analysis"`
	// Providers is the priority order used for fallback and enrichment
	Providers []string `yaml:"providers" validate:"min=1,unique,dive,oneof=sec_edgar alphavantage finnhub static"`
	HTTP      struct {
		TimeoutSeconds         int `yaml:"timeout_seconds" validate:"gte=1"`
		ProviderTimeoutSeconds int `yaml:"provider_timeout_seconds" validate:"gte=1"`
	} `yaml:"http"`
	SEC struct {
		UserAgent          string  `yaml:"user_agent"`
		BaseURL            string  `yaml:"base_url" validate:"url"`
		TickersURL         string  `yaml:"tickers_url" validate:"url"`
		RequestsPerSecond  float64 `yaml:"requests_per_second" validate:"gt=0,lte=10"`
		IncludeSubmissions bool    `yaml:"include_submissions"`
	} `yaml:"sec"`
	AlphaVantage struct {
		BaseURL           string  `yaml:"base_url" validate:"url"`
		APIKeyEnv         string  `yaml:"api_key_env"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	} `yaml:"alphavantage"`
	Finnhub struct {
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"finnhub"`
	Static struct {
		FixturePath string `yaml:"fixture_path"`
	} `yaml:"static"`
	Cache struct {
		Backend           string `yaml:"backend" validate:"oneof=memory file redis badger postgres none"`
		TTLHours          int    `yaml:"ttl_hours" validate:"gte=1"`
		DirectoryTTLHours int    `yaml:"directory_ttl_hours" validate:"gte=1"`
		RedisURL          string `yaml:"redis_url"`
		BadgerPath        string `yaml:"badger_path"`
		FileDir           string `yaml:"file_dir"`
		PostgresURLEnv    string `yaml:"postgres_url_env"`
	} `yaml:"cache"`
	Report struct {
		OutputDir string `yaml:"output_dir"`
		Format    string `yaml:"format" validate:"oneof=text json csv"`
	} `yaml:"report"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	RunLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"run_log"`
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, p := range c.Providers {
		if p == ProviderStatic && c.Static.FixturePath == "" {
			return fmt.Errorf("static.fixture_path is required when the static provider is enabled")
		}
	}
	if c.Cache.Backend == "badger" && c.Cache.BadgerPath == "" {
		return fmt.Errorf("cache.badger_path is required for the badger backend")
	}
	return nil
}

// Default returns a configuration that works without a config file:
// SEC EDGAR first, market-data providers after it, memory cache.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Analysis.Periods == 0 {
		c.Analysis.Periods = 4
	}
	if len(c.Providers) == 0 {
		c.Providers = []string{ProviderSEC, ProviderAlphaVantage, ProviderFinnhub}
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.HTTP.ProviderTimeoutSeconds == 0 {
		c.HTTP.ProviderTimeoutSeconds = 60
	}
	if c.SEC.UserAgent == "" {
		c.SEC.UserAgent = os.Getenv("SEC_USER_AGENT")
	}
	if c.SEC.UserAgent == "" {
		c.SEC.UserAgent = "fin-analysis research contact@example.com"
	}
	if c.SEC.BaseURL == "" {
		c.SEC.BaseURL = "https://data.sec.gov"
	}
	if c.SEC.TickersURL == "" {
		c.SEC.TickersURL = "https://www.sec.gov/files/company_tickers.json"
	}
	if c.SEC.RequestsPerSecond == 0 {
		c.SEC.RequestsPerSecond = 5
	}
	if c.AlphaVantage.BaseURL == "" {
		c.AlphaVantage.BaseURL = "https://www.alphavantage.co"
	}
	if c.AlphaVantage.APIKeyEnv == "" {
		c.AlphaVantage.APIKeyEnv = "ALPHAVANTAGE_API_KEY"
	}
	if c.AlphaVantage.RequestsPerSecond == 0 {
		c.AlphaVantage.RequestsPerSecond = 1
	}
	if c.Finnhub.APIKeyEnv == "" {
		c.Finnhub.APIKeyEnv = "FINNHUB_API_KEY"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = 24
	}
	if c.Cache.DirectoryTTLHours == 0 {
		c.Cache.DirectoryTTLHours = 24 * 7
	}
	if c.Cache.FileDir == "" {
		c.Cache.FileDir = "cache/financials"
	}
	if c.Cache.PostgresURLEnv == "" {
		c.Cache.PostgresURLEnv = "DATABASE_URL"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if c.Report.Format == "" {
		c.Report.Format = "text"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.RunLog.Dir == "" {
		c.RunLog.Dir = "logs/runs"
	}
	if c.RunLog.RetentionDays == 0 {
		c.RunLog.RetentionDays = 30
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func (c *Config) DirectoryTTL() time.Duration {
	return time.Duration(c.Cache.DirectoryTTLHours) * time.Hour
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.HTTP.ProviderTimeoutSeconds) * time.Second
}

// APIKey reads a secret from the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
