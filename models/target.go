package models

import (
	"fmt"
	"net/url"
	"strings"
)

// AnalysisMode selects the browser configuration profile for a run.
type AnalysisMode string

const (
	// ModeQuick uses a plain profile with a halved settle wait and no
	// post-settle delay.
	ModeQuick AnalysisMode = "quick"

	// ModeFull uses a plain profile with full settle waits.
	ModeFull AnalysisMode = "full"

	// ModeStealth additionally applies the evasion profile and humanized
	// timing before settling.
	ModeStealth AnalysisMode = "stealth"
)

// ParseMode validates a mode string. The empty string maps to ModeFull.
func ParseMode(s string) (AnalysisMode, error) {
	switch AnalysisMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeQuick:
		return ModeQuick, nil
	case ModeStealth:
		return ModeStealth, nil
	}
	return "", NewAnalysisError(ErrCodeInvalidInput,
		fmt.Sprintf("unknown analysis mode %q", s), nil)
}

// Target is one page to analyze. Immutable once a run starts.
type Target struct {
	URL  string       `json:"url"`
	Mode AnalysisMode `json:"mode"`
}

// NewTarget validates the URL (absolute, http or https) and the mode.
// Validation failure is the only error surfaced before any run is attempted.
func NewTarget(rawURL, mode string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Target{}, NewAnalysisError(ErrCodeInvalidInput, "unparseable URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, NewAnalysisError(ErrCodeInvalidInput,
			fmt.Sprintf("URL must be absolute http(s), got scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return Target{}, NewAnalysisError(ErrCodeInvalidInput, "URL has no host", nil)
	}
	m, err := ParseMode(mode)
	if err != nil {
		return Target{}, err
	}
	return Target{URL: u.String(), Mode: m}, nil
}
