// Package session drives one browser engine through a resilient
// navigate/settle/extract lifecycle and produces one finalized BrowserRun.
package session

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/driver"
	"github.com/use-agent/agentlens/models"
)

// SnapshotFetcher captures the pre-execution snapshot. The state machine
// owns the primary -> degraded transition, so both attempts are explicit.
type SnapshotFetcher interface {
	FetchPrimary(ctx context.Context, url, userAgent string) (*driver.RawSnapshot, error)
	FetchDegraded(ctx context.Context, url, userAgent string) (*driver.RawSnapshot, error)
}

// Result carries the finalized run plus the two snapshots for
// classification and the opaque screenshot artifact.
type Result struct {
	Run           models.BrowserRun
	RawMarkup     string
	SettledMarkup string
	Screenshot    []byte
}

// state names one step of the session lifecycle. Transitions:
//
//	Launch -> NavigatePrimary -> [NavigateFallback] -> DetectBlocking
//	       -> Settle -> Extract -> done
//
// with failed reachable from any step. Close is not a state: the page is
// released by defer on every exit path, exactly once.
type state int

const (
	stateLaunch state = iota
	stateNavigatePrimary
	stateNavigateFallback
	stateDetectBlocking
	stateSettle
	stateExtract
	stateDone
	stateFailed
)

// Run executes the full session state machine for one engine. It never
// returns an error: every failure is recorded on the BrowserRun and
// recovered locally so sibling engines still get attempted.
func Run(ctx context.Context, target models.Target, drv driver.Driver, fetcher SnapshotFetcher, cfg config.SessionConfig) *Result {
	started := time.Now()

	res := &Result{
		Run: models.BrowserRun{
			EngineID: drv.EngineID(),
			Findings: models.EmptyFindings(),
		},
	}

	profile := driver.ProfileFor(specOf(drv), target.Mode == models.ModeStealth)

	var (
		page         driver.Page
		raw          *driver.RawSnapshot
		navStarted   time.Time
		settleMillis int64
	)

	// Scoped acquisition: whatever happens between Launch and return, the
	// page context is released exactly once.
	defer func() {
		if page != nil {
			if err := page.Close(); err != nil {
				slog.Warn("page close failed", "engine", drv.EngineID(), "error", err)
			}
		}
		res.Run.Performance.TotalMillis = time.Since(started).Milliseconds()
		res.Run.Performance.SettleMillis = settleMillis
	}()

	fail := func(code, msg string, err error) {
		slog.Warn("session failed", "engine", drv.EngineID(), "url", target.URL,
			"state_error", msg, "error", err)
		res.Run.Status = models.StatusFailed
		res.Run.Error = models.NewAnalysisError(code, msg, err).ToDetail()
	}

	for st := stateLaunch; ; {
		switch st {
		case stateLaunch:
			p, err := drv.Acquire(ctx, profile)
			if err != nil {
				fail(models.ErrCodeEngine, "failed to acquire browser context", err)
				return res
			}
			page = p
			st = stateNavigatePrimary

		case stateNavigatePrimary:
			navStarted = time.Now()
			navCtx, cancel := context.WithTimeout(ctx, cfg.NavTimeout)
			snap, err := fetcher.FetchPrimary(navCtx, target.URL, profile.UserAgent)
			cancel()
			if err != nil {
				if driver.IsProtocolError(err) {
					slog.Info("primary transport protocol failure, retrying degraded",
						"engine", drv.EngineID(), "url", target.URL, "error", err)
					st = stateNavigateFallback
					continue
				}
				fail(models.ErrCodeNavigation, "primary navigation failed", err)
				return res
			}
			raw = snap
			st = stateDetectBlocking

		case stateNavigateFallback:
			// Exactly one fallback attempt, under the degraded transport.
			navCtx, cancel := context.WithTimeout(ctx, cfg.NavTimeout)
			snap, err := fetcher.FetchDegraded(navCtx, target.URL, profile.UserAgent)
			cancel()
			if err != nil {
				fail(models.ErrCodeNavigation, "fallback navigation failed", err)
				return res
			}
			raw = snap
			st = stateDetectBlocking

		case stateDetectBlocking:
			navCtx, cancel := context.WithTimeout(ctx, cfg.NavTimeout)
			err := page.Navigate(navCtx, target.URL)
			cancel()
			res.Run.Performance.NavigateMillis = time.Since(navStarted).Milliseconds()
			if err != nil {
				fail(models.ErrCodeNavigation, "browser navigation failed", err)
				return res
			}

			blocked, indicator := detectBlocking(page)
			if blocked {
				// Zero-valued findings, not partial ones: a challenge page
				// diff would pollute aggregate scoring.
				slog.Info("automation blocking detected", "engine", drv.EngineID(),
					"url", target.URL, "indicator", indicator)
				res.Run.Status = models.StatusBlocked
				res.Run.Error = models.NewAnalysisError(models.ErrCodeBlocked,
					"blocking indicator: "+indicator, nil).ToDetail()
				return res
			}

			if rawChallenged(raw) {
				// The rendered page is fine but the pre-execution fetch was
				// served an interstitial: the diff is meaningless.
				slog.Info("raw snapshot served an anti-bot interstitial",
					"engine", drv.EngineID(), "url", target.URL, "status", raw.StatusCode)
				res.Run.Status = models.StatusProtected
				res.Run.Error = models.NewAnalysisError(models.ErrCodeProtected,
					"pre-execution fetch was challenged", nil).ToDetail()
				return res
			}
			st = stateSettle

		case stateSettle:
			settleStarted := time.Now()
			if target.Mode == models.ModeStealth {
				humanizeDelay(ctx, page, cfg)
			}
			settleWait, postDelay := settleBudget(target.Mode, cfg)
			if err := page.WaitSettled(ctx, settleWait); err != nil {
				// Recoverable: proceed with whatever has rendered so far.
				slog.Debug("settle wait timed out, proceeding with current DOM",
					"engine", drv.EngineID(), "url", target.URL, "error", err)
			}
			sleepCtx(ctx, postDelay)
			settleMillis = time.Since(settleStarted).Milliseconds()
			st = stateExtract

		case stateExtract:
			settled, err := page.HTML()
			if err != nil {
				fail(models.ErrCodeEngine, "failed to extract settled document", err)
				return res
			}
			res.RawMarkup = raw.Body
			res.SettledMarkup = settled

			// Screenshot is an opaque artifact, passed through untouched.
			if shot, shotErr := page.Screenshot(); shotErr != nil {
				slog.Debug("screenshot failed", "engine", drv.EngineID(), "error", shotErr)
			} else {
				res.Screenshot = shot
			}

			res.Run.Status = models.StatusSuccess
			return res

		case stateDone, stateFailed:
			// Terminal states are returned from directly; reaching here is
			// a programming error kept loud.
			panic("session: unreachable state")
		}
	}
}

// humanizeDelay injects randomized pointer movement and a randomized delay
// before settling, reducing behavioral fingerprinting. Cosmetic: failures
// are ignored and content is unaffected.
func humanizeDelay(ctx context.Context, page driver.Page, cfg config.SessionConfig) {
	if err := page.Humanize(ctx); err != nil {
		slog.Debug("humanize failed", "error", err)
	}
	span := cfg.StealthDelayMax - cfg.StealthDelayMin
	d := cfg.StealthDelayMin
	if span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	sleepCtx(ctx, d)
}

// settleBudget returns the settle waits for the run mode. Quick mode halves
// the idle wait and skips the post-settle delay.
func settleBudget(mode models.AnalysisMode, cfg config.SessionConfig) (settle, post time.Duration) {
	if mode == models.ModeQuick {
		return cfg.SettleTimeout / 2, 0
	}
	return cfg.SettleTimeout, cfg.PostSettleDelay
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// specOf recovers the engine spec for profile construction. Drivers that
// expose a spec (the rod driver and test fakes) are queried; otherwise only
// the engine id is known.
func specOf(drv driver.Driver) driver.EngineSpec {
	type withSpec interface{ Spec() driver.EngineSpec }
	if ws, ok := drv.(withSpec); ok {
		return ws.Spec()
	}
	return driver.EngineSpec{ID: drv.EngineID()}
}
