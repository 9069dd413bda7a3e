package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is constructed once at the
// entry point and passed down; no other package reads the process
// environment directly.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Session    SessionConfig
	Classifier ClassifierConfig
	Scoring    ScoringConfig
	Batch      BatchConfig
	Cache      CacheConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the headless browser instances behind the drivers.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the browser binary path.
	BrowserBin string

	// Proxy is an optional proxy URL for all engine traffic.
	Proxy string

	// ScreenshotDir is where opaque screenshot artifacts are written.
	ScreenshotDir string // default: "screenshots"
}

// SessionConfig controls one page driver session.
type SessionConfig struct {
	// NavTimeout bounds each navigation attempt. A navigation timeout is
	// fatal to the run.
	NavTimeout time.Duration // default: 15s

	// SettleTimeout bounds the network-idle wait. A settle timeout is
	// recoverable: the session proceeds with whatever has rendered.
	SettleTimeout time.Duration // default: 10s

	// PostSettleDelay is the fixed extra wait after idle for post-idle
	// script completion.
	PostSettleDelay time.Duration // default: 1500ms

	// StealthDelayMin/Max bound the randomized pre-settle delay injected
	// in stealth mode.
	StealthDelayMin time.Duration // default: 500ms
	StealthDelayMax time.Duration // default: 2s
}

// ClassifierConfig controls content unit extraction.
type ClassifierConfig struct {
	// MinTokenLength discards noise tokens below this rune count.
	MinTokenLength int // default: 3

	// MaxTokenLength caps a unit's normalized token.
	MaxTokenLength int // default: 80

	// MaxExamples caps the missing examples recorded per category.
	MaxExamples int // default: 5
}

// DiffBand maps an average absolute diff threshold to a score penalty.
// Bands are evaluated from the largest threshold down; the first band whose
// threshold the average meets applies.
type DiffBand struct {
	Threshold float64
	Penalty   float64
}

// ScoringConfig holds the scorer's penalty constants. These are tuning
// defaults, not fixed semantics.
type ScoringConfig struct {
	DiffBands []DiffBand // default: 150/50, 100/40, 50/30, 25/20, 10/10

	PricingPenalty     float64 // default: 25
	ReviewsPenalty     float64 // default: 10
	NavPerLinkPenalty  float64 // default: 2
	NavPenaltyCap      float64 // default: 15
	CheckoutPenalty    float64 // default: 20
	VariancePenalty    float64 // default: 10
	VarianceThreshold  float64 // stddev of diffPercent; default: 15
	MinRawLength       int     // shell-page floor; default: 512
	ShellPenalty       float64 // default: 10
	HighStddevCutoff   float64 // consistency High below this stddev; default: 5
	MediumStddevCutoff float64 // consistency Medium below this stddev; default: 15

	FailedRunPenalty      float64 // confidence deduction per failed run; default: 20
	BlockedRunPenalty     float64 // per blocked run; default: 25
	ProtectedRunPenalty   float64 // per protected run; default: 10
	LowConsistencyPenalty float64 // default: 15
}

// BatchConfig controls multi-target processing.
type BatchConfig struct {
	// MaxTargets is the hard cap per invocation; the remainder is reported
	// as deferred, never silently dropped.
	MaxTargets int // default: 50

	// InterTargetDelay is the mandatory politeness delay between targets.
	InterTargetDelay time.Duration // default: 5s

	// Deadline is the single wall-clock budget for the entire batch.
	Deadline time.Duration // default: 45m
}

// CacheConfig controls the report cache on the HTTP surface.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached reports.
	MaxEntries int // default: 256

	// TTL is how long a cached report stays fresh.
	TTL time.Duration // default: 15m
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     // default: false
	APIKeys []string // valid keys when enabled
}

// RateLimitConfig controls per-key rate limiting on the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 3
}

// WebhookConfig controls completion notifications. Disabled when URL is
// empty.
type WebhookConfig struct {
	URL    string
	Secret string // HMAC-SHA256 signing key, optional
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("AGENTLENS_HOST", "0.0.0.0"),
			Port: envIntOr("AGENTLENS_PORT", 8080),
			Mode: envOr("AGENTLENS_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("AGENTLENS_HEADLESS", true),
			NoSandbox:     envBoolOr("AGENTLENS_NO_SANDBOX", false),
			BrowserBin:    os.Getenv("AGENTLENS_BROWSER_BIN"),
			Proxy:         os.Getenv("AGENTLENS_PROXY"),
			ScreenshotDir: envOr("AGENTLENS_SCREENSHOT_DIR", "screenshots"),
		},
		Session: SessionConfig{
			NavTimeout:      envDurationOr("AGENTLENS_NAV_TIMEOUT", 15*time.Second),
			SettleTimeout:   envDurationOr("AGENTLENS_SETTLE_TIMEOUT", 10*time.Second),
			PostSettleDelay: envDurationOr("AGENTLENS_POST_SETTLE_DELAY", 1500*time.Millisecond),
			StealthDelayMin: envDurationOr("AGENTLENS_STEALTH_DELAY_MIN", 500*time.Millisecond),
			StealthDelayMax: envDurationOr("AGENTLENS_STEALTH_DELAY_MAX", 2*time.Second),
		},
		Classifier: ClassifierConfig{
			MinTokenLength: envIntOr("AGENTLENS_MIN_TOKEN_LEN", 3),
			MaxTokenLength: envIntOr("AGENTLENS_MAX_TOKEN_LEN", 80),
			MaxExamples:    envIntOr("AGENTLENS_MAX_EXAMPLES", 5),
		},
		Scoring: DefaultScoring(),
		Batch: BatchConfig{
			MaxTargets:       envIntOr("AGENTLENS_BATCH_MAX_TARGETS", 50),
			InterTargetDelay: envDurationOr("AGENTLENS_BATCH_DELAY", 5*time.Second),
			Deadline:         envDurationOr("AGENTLENS_BATCH_DEADLINE", 45*time.Minute),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("AGENTLENS_CACHE_MAX_ENTRIES", 256),
			TTL:        envDurationOr("AGENTLENS_CACHE_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AGENTLENS_AUTH_ENABLED", false),
			APIKeys: envSliceOr("AGENTLENS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("AGENTLENS_RATE_RPS", 1.0),
			Burst:             envIntOr("AGENTLENS_RATE_BURST", 3),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("AGENTLENS_WEBHOOK_URL"),
			Secret: os.Getenv("AGENTLENS_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("AGENTLENS_LOG_LEVEL", "info"),
			Format: envOr("AGENTLENS_LOG_FORMAT", "json"),
		},
	}
}

// DefaultScoring returns the scorer's default penalty table.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		DiffBands: []DiffBand{
			{Threshold: 150, Penalty: 50},
			{Threshold: 100, Penalty: 40},
			{Threshold: 50, Penalty: 30},
			{Threshold: 25, Penalty: 20},
			{Threshold: 10, Penalty: 10},
		},
		PricingPenalty:     envFloatOr("AGENTLENS_PENALTY_PRICING", 25),
		ReviewsPenalty:     envFloatOr("AGENTLENS_PENALTY_REVIEWS", 10),
		NavPerLinkPenalty:  envFloatOr("AGENTLENS_PENALTY_NAV_PER_LINK", 2),
		NavPenaltyCap:      envFloatOr("AGENTLENS_PENALTY_NAV_CAP", 15),
		CheckoutPenalty:    envFloatOr("AGENTLENS_PENALTY_CHECKOUT", 20),
		VariancePenalty:    envFloatOr("AGENTLENS_PENALTY_VARIANCE", 10),
		VarianceThreshold:  envFloatOr("AGENTLENS_VARIANCE_THRESHOLD", 15),
		MinRawLength:       envIntOr("AGENTLENS_MIN_RAW_LENGTH", 512),
		ShellPenalty:       envFloatOr("AGENTLENS_PENALTY_SHELL", 10),
		HighStddevCutoff:   5,
		MediumStddevCutoff: 15,

		FailedRunPenalty:      20,
		BlockedRunPenalty:     25,
		ProtectedRunPenalty:   10,
		LowConsistencyPenalty: 15,
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
