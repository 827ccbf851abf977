package interfaces

import (
	"context"

	"fin-analysis/internal/types"
)

// Analyzer runs the full acquisition and analysis pipeline for a ticker
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, numPeriods int) (*types.AnalysisResult, error)
}
