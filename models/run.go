package models

// RunStatus is the terminal status of one engine session.
type RunStatus string

const (
	// StatusSuccess means both snapshots were captured and classified.
	StatusSuccess RunStatus = "success"

	// StatusFailed means navigation or the engine itself failed.
	StatusFailed RunStatus = "failed"

	// StatusProtected means the pre-execution fetch was served an anti-bot
	// interstitial while the browser session rendered normally. The diff is
	// meaningless, so findings are zeroed and the run is excluded from
	// averaging, but the page itself is not broken.
	StatusProtected RunStatus = "protected"

	// StatusBlocked means the rendered page showed automation-detection
	// indicators. Distinct from failed: the page exists but is adversarial.
	StatusBlocked RunStatus = "blocked"
)

// PerformanceMetrics are coarse per-run timings, reported as-is.
type PerformanceMetrics struct {
	NavigateMillis int64 `json:"navigate_ms"`
	SettleMillis   int64 `json:"settle_ms"`
	TotalMillis    int64 `json:"total_ms"`
}

// BrowserRun is the finalized record of one engine session for one target.
// It is created at session start and never mutated after finalization.
type BrowserRun struct {
	EngineID      string             `json:"engine_id"`
	Status        RunStatus          `json:"status"`
	RawLength     int                `json:"raw_length"`
	SettledLength int                `json:"settled_length"`
	DiffPercent   float64            `json:"diff_percent"`
	Findings      CategoryFindings   `json:"category_findings"`
	Signals       PageSignals        `json:"signals"`
	Performance   PerformanceMetrics `json:"performance"`

	// StructuralDistance is the simhash distance between the raw and
	// settled DOM shapes (0 = identical structure). Secondary signal only.
	StructuralDistance int `json:"structural_distance"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// Countable reports whether this run participates in diff averaging.
// Blocked, protected, and failed runs carry zero-valued findings and must
// not be averaged as if they were zero-change successes.
func (r *BrowserRun) Countable() bool {
	return r.Status == StatusSuccess
}

// DiffPercent computes the relative content growth from the raw snapshot to
// the settled snapshot, clamped to [-200, 200].
//
// Edge case: rawLen == 0 with settled content present is exactly 100 (all
// content is script-rendered), never an Inf/NaN artifact. Both zero is 0.
func DiffPercent(rawLen, settledLen int) float64 {
	if rawLen == 0 {
		if settledLen == 0 {
			return 0
		}
		return 100
	}
	p := float64(settledLen-rawLen) / float64(rawLen) * 100
	if p > 200 {
		return 200
	}
	if p < -200 {
		return -200
	}
	return p
}
