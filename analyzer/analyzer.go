// Package analyzer orchestrates the full analysis of one target: it
// drives every configured engine through a session, classifies the
// snapshot pair, reduces the runs to a score, and assembles the report.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/agentlens/classify"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/domprint"
	"github.com/use-agent/agentlens/driver"
	"github.com/use-agent/agentlens/htmltext"
	"github.com/use-agent/agentlens/models"
	"github.com/use-agent/agentlens/preview"
	"github.com/use-agent/agentlens/recommend"
	"github.com/use-agent/agentlens/score"
	"github.com/use-agent/agentlens/session"
)

// Analyzer analyzes targets against a fixed engine set. Engines run
// sequentially: one page context at a time keeps resource usage
// predictable and the per-engine timings honest.
type Analyzer struct {
	cfg        *config.Config
	drivers    []driver.Driver
	fetcher    session.SnapshotFetcher
	classifier *classify.Classifier
	previews   *preview.Builder
}

// New wires an Analyzer from explicit drivers and a snapshot fetcher.
// Callers with a live browser use NewFromBrowser; tests inject fakes.
func New(cfg *config.Config, drivers []driver.Driver, fetcher session.SnapshotFetcher) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		drivers:    drivers,
		fetcher:    fetcher,
		classifier: classify.New(cfg.Classifier),
		previews:   preview.NewBuilder(),
	}
}

// NewFromBrowser builds the standard engine set on a shared browser.
func NewFromBrowser(cfg *config.Config, browser *driver.Browser) *Analyzer {
	specs := driver.DefaultEngines()
	drivers := make([]driver.Driver, 0, len(specs))
	for _, spec := range specs {
		drivers = append(drivers, browser.Engine(spec))
	}
	fetcher := driver.NewRawFetcher(cfg.Browser.Proxy, cfg.Session.NavTimeout)
	return New(cfg, drivers, fetcher)
}

// AnalyzeTarget runs every engine against the target and assembles one
// report. It always returns a report; total failure is expressed through
// the score's explicit failure marker and the report error field.
func (a *Analyzer) AnalyzeTarget(ctx context.Context, target models.Target) *models.Report {
	started := time.Now()
	slog.Info("analysis started", "url", target.URL, "mode", target.Mode,
		"engines", len(a.drivers))

	report := &models.Report{
		Target:      target,
		GeneratedAt: started.UTC(),
		Findings:    models.EmptyFindings(),
	}

	var firstRawMarkup string

	for _, drv := range a.drivers {
		if ctx.Err() != nil {
			report.Runs = append(report.Runs, canceledRun(drv.EngineID(), ctx.Err()))
			continue
		}

		res := session.Run(ctx, target, drv, a.fetcher, a.cfg.Session)

		if res.Run.Status == models.StatusSuccess {
			a.measure(&res.Run, res.RawMarkup, res.SettledMarkup, target.URL)
			if firstRawMarkup == "" {
				firstRawMarkup = res.RawMarkup
			}
			if path := a.saveScreenshot(target.URL, drv.EngineID(), res.Screenshot); path != "" {
				report.Screenshots = append(report.Screenshots, path)
			}
		}

		slog.Info("engine run finished", "url", target.URL, "engine", drv.EngineID(),
			"status", res.Run.Status, "diff_percent", res.Run.DiffPercent,
			"total_ms", res.Run.Performance.TotalMillis)
		report.Runs = append(report.Runs, res.Run)
	}

	report.Findings = mergeFindings(report.Runs)
	report.Signals = mergeSignals(report.Runs)
	report.Score = score.Compute(report.Runs, a.cfg.Scoring)
	report.Recommendations = recommend.Build(report.Score, report.Findings, report.Signals)

	if firstRawMarkup != "" {
		p := a.previews.Build(firstRawMarkup, target.URL)
		report.Preview = &p
	}
	if report.Score.Error != nil {
		report.Error = report.Score.Error
	}

	slog.Info("analysis finished", "url", target.URL,
		"score", report.Score.Value, "confidence", report.Score.Confidence,
		"elapsed_ms", time.Since(started).Milliseconds())
	return report
}

// measure fills the diff metrics and classification for one successful
// run. Lengths are of normalized visible text, not raw markup bytes.
func (a *Analyzer) measure(run *models.BrowserRun, rawMarkup, settledMarkup, targetURL string) {
	rawText := htmltext.Normalize(rawMarkup)
	settledText := htmltext.Normalize(settledMarkup)

	run.RawLength = len(rawText)
	run.SettledLength = len(settledText)
	run.DiffPercent = models.DiffPercent(run.RawLength, run.SettledLength)
	run.StructuralDistance = domprint.StructuralDistance(rawMarkup, settledMarkup)

	doc, err := classify.ParseDocument(settledMarkup)
	if err != nil {
		// Classification is additive: a parse failure degrades the run to
		// diff-only rather than failing it.
		slog.Warn("settled document parse failed, skipping classification",
			"url", targetURL, "engine", run.EngineID, "error", err)
		return
	}

	res := a.classifier.Classify(rawMarkup, rawText, doc)
	run.Findings = res.Findings
	run.Signals = res.Signals
	run.Signals.Frameworks = classify.DetectFrameworks(rawMarkup, settledMarkup)
}

// saveScreenshot writes the opaque artifact and returns its path, or ""
// when screenshots are disabled, absent, or unwritable.
func (a *Analyzer) saveScreenshot(targetURL, engineID string, shot []byte) string {
	dir := a.cfg.Browser.ScreenshotDir
	if dir == "" || len(shot) == 0 {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("screenshot dir unavailable", "dir", dir, "error", err)
		return ""
	}

	name := fmt.Sprintf("%s-%s-%d.png", hostSlug(targetURL), engineID, time.Now().UnixMilli())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		slog.Warn("screenshot write failed", "path", path, "error", err)
		return ""
	}
	return path
}

// mergeFindings reduces per-run findings to the worst case per category:
// the tally with the most missing units wins, ties broken by total.
func mergeFindings(runs []models.BrowserRun) models.CategoryFindings {
	merged := models.EmptyFindings()
	for _, cat := range models.Categories {
		for _, run := range runs {
			if !run.Countable() {
				continue
			}
			f := run.Findings.Get(cat)
			cur := merged[cat]
			if f.Missing > cur.Missing || (f.Missing == cur.Missing && f.Total > cur.Total) {
				cp := f
				merged[cat] = &cp
			}
		}
	}
	return merged
}

// mergeSignals unions per-run signals. Scalars come from the first
// countable run; the purchase flag is sticky and frameworks are the
// sorted union.
func mergeSignals(runs []models.BrowserRun) models.PageSignals {
	var out models.PageSignals
	var have bool
	frameworks := map[string]bool{}

	for _, run := range runs {
		if !run.Countable() {
			continue
		}
		if !have {
			out = run.Signals
			have = true
		}
		if run.Signals.PurchaseControlMissing {
			out.PurchaseControlMissing = true
		}
		for _, fw := range run.Signals.Frameworks {
			frameworks[fw] = true
		}
	}

	if len(frameworks) > 0 {
		out.Frameworks = make([]string, 0, len(frameworks))
		for fw := range frameworks {
			out.Frameworks = append(out.Frameworks, fw)
		}
		sort.Strings(out.Frameworks)
	}
	return out
}

func canceledRun(engineID string, err error) models.BrowserRun {
	return models.BrowserRun{
		EngineID: engineID,
		Status:   models.StatusFailed,
		Findings: models.EmptyFindings(),
		Error: models.NewAnalysisError(models.ErrCodeTimeout,
			"analysis deadline exceeded before this engine ran", err).ToDetail(),
	}
}

// hostSlug reduces a URL to a filesystem-safe host token.
func hostSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "target"
	}
	return strings.ReplaceAll(u.Host, ":", "_")
}
