package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_DETAILED", "true")
	t.Setenv("LOG_TRACING_ENABLED", "")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, "DEBUG", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.True(t, cfg.DetailedLogging)
	assert.False(t, cfg.TracingEnabled)
}

func TestOperationTimerWithoutTracing(t *testing.T) {
	ctx := context.Background()

	timer := StartOperation(ctx, "test.op", "ticker", "ACME")
	assert.NotNil(t, timer.GetContext())
	timer.End("outcome", "ok")

	failed := StartOperation(ctx, "test.op")
	failed.EndWithError(errors.New("boom"))

	ProviderEvent(ctx, "static", "GetCompanyInfo", "ACME", "ok")
	CacheEvent(ctx, "sec:cik_map", "hit")
}

func TestStartSpanWithoutTracing(t *testing.T) {
	ctx := context.Background()

	spanCtx, span := StartSpan(ctx, "test.span")
	defer span.End()

	assert.Equal(t, ctx, spanCtx)
	assert.False(t, span.SpanContext().IsValid())
}
