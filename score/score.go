// Package score reduces per-engine findings to a deterministic,
// order-independent accessibility score with an independent confidence.
package score

import (
	"math"
	"sort"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/models"
)

// Compute combines per-engine findings, cross-engine variance, and the
// shell-page floor into a bounded score. Deterministic and
// order-independent over runs: every input is reduced through sums,
// maxima, and any-flags.
func Compute(runs []models.BrowserRun, cfg config.ScoringConfig) models.AccessibilityScore {
	countable := countableRuns(runs)

	if len(countable) == 0 {
		// All runs failed or were blocked: 0 is an explicit "could not
		// analyze" marker, never an arithmetic artifact of an empty set.
		return models.AccessibilityScore{
			Value:       0,
			Confidence:  0,
			Consistency: models.ConsistencyNA,
			Error: models.NewAnalysisError(models.ErrCodeAggregate,
				"no engine produced an analyzable run", nil).ToDetail(),
		}
	}

	value := 100.0

	// 1. Content-volume penalty, banded by average absolute diff.
	avgAbsDiff := meanAbsDiff(countable)
	value -= bandPenalty(avgAbsDiff, cfg.DiffBands)

	// 2. Category penalties. Pricing is a business-blocking signal; a
	//    missing purchase control is broken core functionality.
	if anyMissing(countable, models.CategoryPricing) {
		value -= cfg.PricingPenalty
	}
	if anyMissing(countable, models.CategoryReviews) {
		value -= cfg.ReviewsPenalty
	}
	if links := maxMissing(countable, models.CategoryNavigation); links > 0 {
		value -= math.Min(float64(links)*cfg.NavPerLinkPenalty, cfg.NavPenaltyCap)
	}
	if anyPurchaseControlMissing(countable) {
		value -= cfg.CheckoutPenalty
	}

	// 3. Cross-engine consistency penalty.
	stddev, consistency := consistencyOf(countable, cfg)
	if len(countable) >= 2 && stddev > cfg.VarianceThreshold {
		value -= cfg.VariancePenalty
	}

	// 4. Shell-page floor.
	if meanRawLength(countable) < float64(cfg.MinRawLength) {
		value -= cfg.ShellPenalty
	}

	return models.AccessibilityScore{
		Value:       clamp(value),
		Confidence:  confidence(runs, consistency, cfg),
		Consistency: consistency,
	}
}

// countableRuns filters to successful runs. Blocked, protected, and failed
// runs carry zero findings and must not be averaged as zero-change
// successes. Runs are copied into a new slice sorted by engine id so that
// every reduction below is independent of input order.
func countableRuns(runs []models.BrowserRun) []models.BrowserRun {
	out := make([]models.BrowserRun, 0, len(runs))
	for _, r := range runs {
		if r.Countable() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EngineID < out[j].EngineID })
	return out
}

func meanAbsDiff(runs []models.BrowserRun) float64 {
	var sum float64
	for _, r := range runs {
		sum += math.Abs(r.DiffPercent)
	}
	return sum / float64(len(runs))
}

func meanRawLength(runs []models.BrowserRun) float64 {
	var sum float64
	for _, r := range runs {
		sum += float64(r.RawLength)
	}
	return sum / float64(len(runs))
}

// bandPenalty applies the first band whose threshold the average meets,
// evaluated from the largest threshold down.
func bandPenalty(avgAbsDiff float64, bands []config.DiffBand) float64 {
	sorted := make([]config.DiffBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })
	for _, b := range sorted {
		if avgAbsDiff >= b.Threshold {
			return b.Penalty
		}
	}
	return 0
}

func anyMissing(runs []models.BrowserRun, cat models.Category) bool {
	for _, r := range runs {
		if r.Findings.Get(cat).Missing > 0 {
			return true
		}
	}
	return false
}

func maxMissing(runs []models.BrowserRun, cat models.Category) int {
	max := 0
	for _, r := range runs {
		if m := r.Findings.Get(cat).Missing; m > max {
			max = m
		}
	}
	return max
}

func anyPurchaseControlMissing(runs []models.BrowserRun) bool {
	for _, r := range runs {
		if r.Signals.PurchaseControlMissing {
			return true
		}
	}
	return false
}

// consistencyOf grades cross-engine agreement from the population stddev
// of diffPercent. Below two successful runs there is nothing to compare.
func consistencyOf(runs []models.BrowserRun, cfg config.ScoringConfig) (float64, models.Consistency) {
	if len(runs) < 2 {
		return 0, models.ConsistencyNA
	}

	var sum float64
	for _, r := range runs {
		sum += r.DiffPercent
	}
	mean := sum / float64(len(runs))

	var sq float64
	for _, r := range runs {
		d := r.DiffPercent - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(runs)))

	switch {
	case stddev <= cfg.HighStddevCutoff:
		return stddev, models.ConsistencyHigh
	case stddev <= cfg.MediumStddevCutoff:
		return stddev, models.ConsistencyMedium
	default:
		return stddev, models.ConsistencyLow
	}
}

// confidence starts at 100 and deducts per non-analyzable run, plus a
// further deduction when consistency is low. Computed independently of the
// score value.
func confidence(runs []models.BrowserRun, consistency models.Consistency, cfg config.ScoringConfig) float64 {
	c := 100.0
	for _, r := range runs {
		switch r.Status {
		case models.StatusFailed:
			c -= cfg.FailedRunPenalty
		case models.StatusBlocked:
			c -= cfg.BlockedRunPenalty
		case models.StatusProtected:
			c -= cfg.ProtectedRunPenalty
		}
	}
	if consistency == models.ConsistencyLow {
		c -= cfg.LowConsistencyPenalty
	}
	return clamp(c)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
