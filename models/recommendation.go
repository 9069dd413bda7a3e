package models

// Severity ranks recommendations. Higher constants sort first.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lower-case wire name used in reports.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "info"
	}
}

// MarshalText lets Severity serialize as its name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Recommendation is one human-readable finding, ordered by severity
// descending in the report.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
