// Package driver defines the abstract page-driver capability the analysis
// engine depends on, plus the concrete rod-backed implementation and the
// pre-execution (raw) snapshot fetcher. The session and scorer never touch
// a browser vendor API directly.
package driver

import (
	"context"
	"time"
)

// Driver acquires isolated page contexts for one browser engine identity.
type Driver interface {
	// EngineID returns the engine identifier (e.g. "chromium-desktop").
	EngineID() string

	// Acquire creates an isolated page context configured by profile.
	// The caller must Close the page on every exit path.
	Acquire(ctx context.Context, profile Profile) (Page, error)
}

// Page is one live page context. All blocking operations honor ctx.
type Page interface {
	// Navigate loads the URL and waits for the document to be available.
	Navigate(ctx context.Context, url string) error

	// Title returns the current document title.
	Title() (string, error)

	// BodyText returns the rendered body inner text.
	BodyText() (string, error)

	// BodyChildCount returns the number of element children of <body>,
	// 0 when the body is absent or empty.
	BodyChildCount() (int, error)

	// WaitSettled waits for rendering to quiesce, up to timeout. A timeout
	// here is recoverable: the caller proceeds with the current state.
	WaitSettled(ctx context.Context, timeout time.Duration) error

	// Humanize injects randomized pointer movement. Cosmetic only; must
	// not affect extracted content.
	Humanize(ctx context.Context) error

	// HTML returns the full settled document serialization.
	HTML() (string, error)

	// Screenshot captures an opaque image artifact.
	Screenshot() ([]byte, error)

	// Close releases the page context. Safe to call exactly once.
	Close() error
}

// Profile selects the page configuration for one session.
type Profile struct {
	// Stealth applies the evasion overrides before any navigation.
	Stealth bool

	// UserAgent overrides the engine's user agent when non-empty.
	UserAgent string

	// Viewport dimensions; zero values keep the engine default.
	ViewportWidth  int
	ViewportHeight int

	// Mobile toggles mobile emulation.
	Mobile bool
}

// EngineSpec describes one target browser engine identity. Engines differ
// in user agent and viewport so that cross-engine diff variance is a real
// signal rather than a duplicate measurement.
type EngineSpec struct {
	ID             string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Mobile         bool
}

// DefaultEngines is the standard engine set, driven sequentially per target.
func DefaultEngines() []EngineSpec {
	return []EngineSpec{
		{
			ID:             "chromium-desktop",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			ViewportWidth:  1366,
			ViewportHeight: 900,
		},
		{
			ID:             "chromium-mobile",
			UserAgent:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36",
			ViewportWidth:  412,
			ViewportHeight: 915,
			Mobile:         true,
		},
	}
}

// ProfileFor builds the session profile for an engine under stealth on/off.
func ProfileFor(spec EngineSpec, stealth bool) Profile {
	return Profile{
		Stealth:        stealth,
		UserAgent:      spec.UserAgent,
		ViewportWidth:  spec.ViewportWidth,
		ViewportHeight: spec.ViewportHeight,
		Mobile:         spec.Mobile,
	}
}
