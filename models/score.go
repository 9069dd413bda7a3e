package models

// Consistency grades the agreement of diff magnitude across engine runs.
type Consistency string

const (
	ConsistencyHigh   Consistency = "High"
	ConsistencyMedium Consistency = "Medium"
	ConsistencyLow    Consistency = "Low"
	ConsistencyNA     Consistency = "N/A" // fewer than two successful runs
)

// AccessibilityScore estimates how usable a page is for agents that cannot
// execute scripts. Computed once per target after all runs finish; immutable.
type AccessibilityScore struct {
	Value       float64     `json:"value"`      // 0..100
	Confidence  float64     `json:"confidence"` // 0..100
	Consistency Consistency `json:"consistency"`

	// Error marks an aggregate failure: every run ended failed or blocked,
	// so the value 0 means "could not analyze", not "fully script-rendered".
	Error *ErrorDetail `json:"error,omitempty"`
}
