package analyzer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/agentlens/models"
)

// BatchResult is the outcome of a multi-target invocation. Every
// accepted target produces exactly one report; targets beyond the cap
// or the deadline are listed as deferred, never silently dropped.
type BatchResult struct {
	Reports  []*models.Report `json:"reports"`
	Deferred []string         `json:"deferred,omitempty"`

	// TimedOut is set when the batch deadline cut processing short.
	TimedOut bool `json:"timed_out"`
}

// AnalyzeBatch processes targets sequentially under one wall-clock
// deadline, with a mandatory politeness delay between targets. Targets
// past the per-invocation cap are returned as deferred.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string, mode string) *BatchResult {
	res := &BatchResult{}

	accepted := urls
	if max := a.cfg.Batch.MaxTargets; max > 0 && len(urls) > max {
		accepted = urls[:max]
		res.Deferred = append(res.Deferred, urls[max:]...)
		slog.Info("batch capped", "accepted", max, "deferred", len(urls)-max)
	}

	batchCtx := ctx
	if a.cfg.Batch.Deadline > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, a.cfg.Batch.Deadline)
		defer cancel()
	}

	// The limiter enforces the inter-target delay; the first target
	// proceeds immediately on the initial token.
	limiter := rate.NewLimiter(rate.Every(a.cfg.Batch.InterTargetDelay), 1)

	started := time.Now()
	for i, rawURL := range accepted {
		if batchCtx.Err() != nil {
			// Deadline hit mid-batch: everything not yet started is
			// deferred, and partial results are returned as-is.
			res.Deferred = append(res.Deferred, accepted[i:]...)
			res.TimedOut = true
			slog.Warn("batch deadline exceeded", "completed", i,
				"deferred", len(accepted)-i, "elapsed", time.Since(started))
			break
		}

		if err := limiter.Wait(batchCtx); err != nil {
			res.Deferred = append(res.Deferred, accepted[i:]...)
			res.TimedOut = true
			break
		}

		target, err := models.NewTarget(rawURL, mode)
		if err != nil {
			// Invalid targets still get a report line so batch output
			// stays one-row-per-input.
			res.Reports = append(res.Reports, invalidTargetReport(rawURL, err))
			continue
		}

		res.Reports = append(res.Reports, a.AnalyzeTarget(batchCtx, target))
	}

	slog.Info("batch finished", "reports", len(res.Reports),
		"deferred", len(res.Deferred), "timed_out", res.TimedOut,
		"elapsed", time.Since(started))
	return res
}

func invalidTargetReport(rawURL string, err error) *models.Report {
	detail := &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: err.Error()}
	if ae, ok := err.(*models.AnalysisError); ok {
		detail = ae.ToDetail()
	}
	return &models.Report{
		Target:      models.Target{URL: rawURL},
		GeneratedAt: time.Now().UTC(),
		Findings:    models.EmptyFindings(),
		Score: models.AccessibilityScore{
			Consistency: models.ConsistencyNA,
		},
		Error: detail,
	}
}
