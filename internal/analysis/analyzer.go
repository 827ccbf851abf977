// Package analysis runs the full pipeline for one ticker: reconcile the
// providers, compute ratios for every period and narrate the history.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/narrative"
	"fin-analysis/internal/ratios"
	"fin-analysis/internal/reconcile"
	"fin-analysis/internal/runlog"
	"fin-analysis/internal/types"
)

type Analyzer struct {
	reconciler *reconcile.Service
	runs       *runlog.Log
	now        func() time.Time
}

var _ interfaces.Analyzer = (*Analyzer)(nil)

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithRunLog records every run, successful or not.
func WithRunLog(l *runlog.Log) Option {
	return func(a *Analyzer) { a.runs = l }
}

func New(reconciler *reconcile.Service, opts ...Option) *Analyzer {
	a := &Analyzer{
		reconciler: reconciler,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns a fully assembled result or the reconciliation error.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, numPeriods int) (*types.AnalysisResult, error) {
	runID := uuid.NewString()
	started := time.Now()
	timer := logger.StartOperation(ctx, "analysis.Analyze",
		"run_id", runID,
		"ticker", ticker,
		"periods", numPeriods,
	)
	ctx = timer.GetContext()

	rec, err := a.reconciler.Reconcile(ctx, ticker, numPeriods)
	if err != nil {
		timer.EndWithError(err)
		a.record(ctx, runlog.Entry{
			RunID:        runID,
			Ticker:       strings.ToUpper(ticker),
			Outcome:      runlog.OutcomeFailed,
			PeriodsAsked: numPeriods,
			Error:        err.Error(),
			DurationMS:   time.Since(started).Milliseconds(),
		})
		return nil, err
	}

	history := ratios.ComputeAll(rec.Statements)
	story := narrative.Narrate(history)

	trends := make(map[string]string, len(story.Trends))
	for category, trend := range story.Trends {
		trends[category] = string(trend)
	}

	result := &types.AnalysisResult{
		RunID:           runID,
		Company:         *rec.Company,
		Statements:      rec.Statements,
		Ratios:          history,
		Findings:        story.Findings,
		Trends:          trends,
		Strengths:       story.Strengths,
		Concerns:        story.Concerns,
		Verdict:         story.Verdict,
		Summary:         story.Summary,
		StatementSource: rec.StatementSource,
		SourcesUsed:     rec.SourcesUsed,
		AnalyzedAt:      a.now().UTC(),
	}

	timer.End(
		"source", result.StatementSource,
		"verdict", result.Verdict,
		"strengths", len(result.Strengths),
		"concerns", len(result.Concerns),
	)
	a.record(ctx, runlog.Entry{
		RunID:           runID,
		Ticker:          result.Company.Ticker,
		Outcome:         runlog.OutcomeOK,
		PeriodsAsked:    numPeriods,
		PeriodsFound:    len(result.Statements),
		StatementSource: result.StatementSource,
		SourcesUsed:     result.SourcesUsed,
		Verdict:         result.Verdict,
		DurationMS:      time.Since(started).Milliseconds(),
	})
	return result, nil
}

func (a *Analyzer) record(ctx context.Context, e runlog.Entry) {
	if a.runs == nil {
		return
	}
	if err := a.runs.Append(e); err != nil {
		logger.Warn(ctx, "Failed to write run log", "run_id", e.RunID, "error", err)
	}
}
