package models

import "time"

// RawPreview is the readability extraction of the pre-execution snapshot —
// the content an agent without script execution actually sees.
type RawPreview struct {
	Title      string `json:"title,omitempty"`
	Markdown   string `json:"markdown,omitempty"`
	TextLength int    `json:"text_length"`
	Extracted  bool   `json:"extracted"` // false when readability fell back to raw HTML
}

// Report is the full result of analyzing one target. A report is always
// produced, even in total failure, with explicit error fields rather than
// missing sections.
type Report struct {
	Target          Target             `json:"target"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Runs            []BrowserRun       `json:"runs"`
	Score           AccessibilityScore `json:"score"`
	Recommendations []Recommendation   `json:"recommendations"`

	// Findings is the cross-engine merge (worst case per category) that
	// recommendations are synthesized from.
	Findings CategoryFindings `json:"findings"`
	Signals  PageSignals      `json:"signals"`

	Preview     *RawPreview `json:"preview,omitempty"`
	Screenshots []string    `json:"screenshots,omitempty"` // opaque artifact paths

	Error *ErrorDetail `json:"error,omitempty"`
}
