package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/agentlens/analyzer"
	"github.com/use-agent/agentlens/cache"
	"github.com/use-agent/agentlens/models"
	"github.com/use-agent/agentlens/webhook"
)

// Analyze returns a handler for POST /api/v1/analyze.
//
// Flow:
//  1. Parse & validate request.
//  2. Cache lookup (unless no_cache).
//  3. Analyzer drives every engine and assembles the report.
//  4. Cache store, respond 200.
//
// Analysis never fails the HTTP request once the target is valid: total
// engine failure is expressed inside the report, and success reflects
// whether the report carries an error.
func Analyze(an *analyzer.Analyzer, cc *cache.Cache, wh *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		target, err := models.NewTarget(req.URL, req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}

		key := cache.Key(target)
		if cc != nil && !req.NoCache {
			if cached, hit := cc.Get(key); hit {
				c.JSON(http.StatusOK, models.AnalyzeResponse{
					Success:     cached.Error == nil,
					Report:      cached,
					CacheStatus: "hit",
				})
				return
			}
		}

		report := an.AnalyzeTarget(c.Request.Context(), target)
		wh.DeliverAsync(webhook.NewEvent(webhook.EventAnalysisCompleted, target.URL, report))

		resp := models.AnalyzeResponse{
			Success: report.Error == nil,
			Report:  report,
			Error:   report.Error,
		}
		if cc != nil && !req.NoCache {
			cc.Set(key, report)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// BatchAnalyze returns a handler for POST /api/v1/batch/analyze.
// The batch runs synchronously under the configured deadline; deferred
// targets come back explicitly for the client to resubmit.
func BatchAnalyze(an *analyzer.Analyzer, wh *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchAnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.BatchAnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if len(req.URLs) == 0 {
			c.JSON(http.StatusBadRequest, models.BatchAnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "urls must not be empty",
				},
			})
			return
		}

		res := an.AnalyzeBatch(c.Request.Context(), req.URLs, req.Mode)
		wh.DeliverAsync(webhook.NewEvent(webhook.EventBatchCompleted, "", res))

		c.JSON(http.StatusOK, models.BatchAnalyzeResponse{
			Success:  true,
			Reports:  res.Reports,
			Deferred: res.Deferred,
			TimedOut: res.TimedOut,
		})
	}
}

// respondError maps an AnalysisError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var ae *models.AnalysisError
	if !errors.As(err, &ae) {
		ae = models.NewAnalysisError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(ae), models.AnalyzeResponse{
		Success: false,
		Error:   ae.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.AnalysisError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
