package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/provider"
	"fin-analysis/internal/reconcile"
)

// maxPeriods bounds the history a single request may ask for.
const maxPeriods = 20

type AnalysisHandler struct {
	analyzer       interfaces.Analyzer
	defaultPeriods int
	started        time.Time
}

func NewAnalysisHandler(analyzer interfaces.Analyzer, defaultPeriods int) *AnalysisHandler {
	if defaultPeriods <= 0 {
		defaultPeriods = 4
	}
	return &AnalysisHandler{
		analyzer:       analyzer,
		defaultPeriods: defaultPeriods,
		started:        time.Now(),
	}
}

// Register mounts the handler's routes under /api.
func (h *AnalysisHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/health", h.GetHealth)
	api.GET("/analysis/:ticker", h.GetAnalysis)
}

func (h *AnalysisHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))

	periods, err := getPeriods(c, h.defaultPeriods)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), ticker, periods)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.ErrorWithErr(c.Request.Context(), "Analysis failed", err, "ticker", ticker)
		}
		c.JSON(status, errorBody(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

func getPeriods(c *gin.Context, defaultValue int) (int, error) {
	raw := c.Query("periods")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxPeriods {
		return 0, errors.New("periods must be an integer between 1 and " + strconv.Itoa(maxPeriods))
	}
	return n, nil
}

func statusFor(err error) int {
	var pe *provider.ProviderError
	switch {
	case errors.Is(err, reconcile.ErrInvalidPeriods), errors.Is(err, reconcile.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.As(err, &pe) && len(pe.Attempted) > 0:
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var pe *provider.ProviderError
	if errors.As(err, &pe) && len(pe.Attempted) > 0 {
		body["ticker"] = pe.Ticker
		body["attempted"] = pe.Attempted
	}
	return body
}
