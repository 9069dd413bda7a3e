package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/driver"
	"github.com/use-agent/agentlens/models"
)

const shellMarkup = `<html><head><title>Shop</title></head><body><div id="root"></div></body></html>`

const richMarkup = `<html><head><title>Shop</title></head><body>
	<nav>
		<a href="/">Homepage</a>
		<a href="/catalog">Catalog</a>
		<a href="/contact">Contact</a>
	</nav>
	<h1>Spring Collection</h1>
	<span class="price">$19.99</span>
	<button>Add to cart</button>
	<p>Hand-picked items refreshed weekly for the new season, with free
	shipping on orders over fifty dollars and easy thirty day returns.</p>
</body></html>`

type fakePage struct {
	title    string
	body     string
	children int
	html     string
	navErr   error
	closed   int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error { return p.navErr }
func (p *fakePage) Title() (string, error)                         { return p.title, nil }
func (p *fakePage) BodyText() (string, error)                      { return p.body, nil }
func (p *fakePage) BodyChildCount() (int, error)                   { return p.children, nil }
func (p *fakePage) WaitSettled(ctx context.Context, timeout time.Duration) error {
	return nil
}
func (p *fakePage) Humanize(ctx context.Context) error { return nil }
func (p *fakePage) HTML() (string, error)              { return p.html, nil }
func (p *fakePage) Screenshot() ([]byte, error)        { return []byte{0x89, 0x50}, nil }
func (p *fakePage) Close() error                       { p.closed++; return nil }

type fakeDriver struct {
	id         string
	page       *fakePage
	acquireErr error
}

func (d *fakeDriver) EngineID() string { return d.id }
func (d *fakeDriver) Acquire(ctx context.Context, profile driver.Profile) (driver.Page, error) {
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.page, nil
}

type fakeFetcher struct {
	snap *driver.RawSnapshot
	err  error
}

func (f *fakeFetcher) FetchPrimary(ctx context.Context, url, ua string) (*driver.RawSnapshot, error) {
	return f.snap, f.err
}
func (f *fakeFetcher) FetchDegraded(ctx context.Context, url, ua string) (*driver.RawSnapshot, error) {
	return f.snap, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Browser: config.BrowserConfig{ScreenshotDir: t.TempDir()},
		Session: config.SessionConfig{
			NavTimeout:    time.Second,
			SettleTimeout: 50 * time.Millisecond,
		},
		Classifier: config.ClassifierConfig{
			MinTokenLength: 3,
			MaxTokenLength: 80,
			MaxExamples:    5,
		},
		Scoring: config.DefaultScoring(),
		Batch: config.BatchConfig{
			MaxTargets:       2,
			InterTargetDelay: time.Millisecond,
			Deadline:         time.Minute,
		},
	}
}

func renderedPage(markup string) *fakePage {
	return &fakePage{title: "Shop", body: "Spring Collection", children: 3, html: markup}
}

func mustTarget(t *testing.T, url string) models.Target {
	t.Helper()
	tgt, err := models.NewTarget(url, "full")
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	return tgt
}

func TestAnalyzeTarget_ShellPage(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
		&fakeDriver{id: "chromium-mobile", page: renderedPage(richMarkup)},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: shellMarkup, StatusCode: 200}}

	a := New(testConfig(t), drivers, fetcher)
	report := a.AnalyzeTarget(context.Background(), mustTarget(t, "https://shop.example.com/"))

	if len(report.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(report.Runs))
	}
	for _, run := range report.Runs {
		if run.Status != models.StatusSuccess {
			t.Fatalf("engine %s status = %s, want success", run.EngineID, run.Status)
		}
		if run.DiffPercent <= 0 {
			t.Errorf("engine %s diff = %v, want positive (content grew)", run.EngineID, run.DiffPercent)
		}
		if run.StructuralDistance == 0 {
			t.Errorf("engine %s structural distance = 0, want change detected", run.EngineID)
		}
	}

	nav := report.Findings.Get(models.CategoryNavigation)
	if nav.Missing != 3 {
		t.Errorf("merged navigation missing = %d, want 3", nav.Missing)
	}
	if !report.Signals.PurchaseControlMissing {
		t.Error("purchase control missing flag not set")
	}
	if report.Score.Value >= 100 {
		t.Errorf("score = %v, want penalized", report.Score.Value)
	}
	if len(report.Recommendations) == 0 {
		t.Error("no recommendations for a shell page")
	}
	if report.Preview == nil {
		t.Error("preview missing")
	}
	if len(report.Screenshots) != 2 {
		t.Errorf("screenshots = %d, want 2", len(report.Screenshots))
	}
	if report.Error != nil {
		t.Errorf("unexpected report error: %+v", report.Error)
	}
}

func TestAnalyzeTarget_ServerRenderedPage(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: richMarkup, StatusCode: 200}}

	a := New(testConfig(t), drivers, fetcher)
	report := a.AnalyzeTarget(context.Background(), mustTarget(t, "https://shop.example.com/"))

	run := report.Runs[0]
	if run.DiffPercent != 0 {
		t.Errorf("identical snapshots diff = %v, want 0", run.DiffPercent)
	}
	for _, cat := range models.Categories {
		if m := report.Findings.Get(cat).Missing; m != 0 {
			t.Errorf("category %s missing = %d, want 0", cat, m)
		}
	}
	if report.Signals.PurchaseControlMissing {
		t.Error("purchase control flagged on a server-rendered page")
	}
}

func TestAnalyzeTarget_PartialEngineFailure(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
		&fakeDriver{id: "chromium-mobile", acquireErr: errors.New("browser crashed")},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: richMarkup, StatusCode: 200}}

	a := New(testConfig(t), drivers, fetcher)
	report := a.AnalyzeTarget(context.Background(), mustTarget(t, "https://shop.example.com/"))

	if len(report.Runs) != 2 {
		t.Fatalf("runs = %d, want 2 (failed engine still recorded)", len(report.Runs))
	}
	if report.Runs[1].Status != models.StatusFailed {
		t.Errorf("second run status = %s, want failed", report.Runs[1].Status)
	}
	if report.Score.Confidence >= 100 {
		t.Errorf("confidence = %v, want reduced by the failed run", report.Score.Confidence)
	}
	if report.Error != nil {
		t.Error("partial failure must not mark the whole report failed")
	}
}

func TestAnalyzeTarget_TotalFailure(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", acquireErr: errors.New("no browser")},
		&fakeDriver{id: "chromium-mobile", acquireErr: errors.New("no browser")},
	}
	fetcher := &fakeFetcher{err: errors.New("unreachable")}

	a := New(testConfig(t), drivers, fetcher)
	report := a.AnalyzeTarget(context.Background(), mustTarget(t, "https://down.example.com/"))

	if report.Score.Value != 0 || report.Score.Confidence != 0 {
		t.Errorf("score = %v/%v, want explicit 0/0", report.Score.Value, report.Score.Confidence)
	}
	if report.Error == nil || report.Error.Code != models.ErrCodeAggregate {
		t.Errorf("report error = %+v, want %s", report.Error, models.ErrCodeAggregate)
	}
	if len(report.Recommendations) == 0 {
		t.Error("total failure should still carry a recommendation explaining it")
	}
	if report.Preview != nil {
		t.Error("no snapshot was captured; preview must be absent")
	}
}

func TestAnalyzeBatch_CapAndDeferred(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: richMarkup, StatusCode: 200}}

	a := New(testConfig(t), drivers, fetcher)
	urls := []string{
		"https://one.example.com/",
		"https://two.example.com/",
		"https://three.example.com/",
		"https://four.example.com/",
	}

	res := a.AnalyzeBatch(context.Background(), urls, "full")

	if len(res.Reports) != 2 {
		t.Errorf("reports = %d, want 2 (capped)", len(res.Reports))
	}
	if len(res.Deferred) != 2 {
		t.Fatalf("deferred = %d, want 2", len(res.Deferred))
	}
	if res.Deferred[0] != "https://three.example.com/" || res.Deferred[1] != "https://four.example.com/" {
		t.Errorf("deferred = %v, want the overflow in input order", res.Deferred)
	}
	if res.TimedOut {
		t.Error("cap overflow is not a timeout")
	}
}

func TestAnalyzeBatch_InvalidURLStillProducesReport(t *testing.T) {
	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: richMarkup, StatusCode: 200}}

	a := New(testConfig(t), drivers, fetcher)
	res := a.AnalyzeBatch(context.Background(),
		[]string{"ftp://bad.example.com/", "https://ok.example.com/"}, "full")

	if len(res.Reports) != 2 {
		t.Fatalf("reports = %d, want one per input", len(res.Reports))
	}
	if res.Reports[0].Error == nil || res.Reports[0].Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("invalid target error = %+v, want %s",
			res.Reports[0].Error, models.ErrCodeInvalidInput)
	}
	if res.Reports[1].Error != nil {
		t.Errorf("valid target unexpectedly failed: %+v", res.Reports[1].Error)
	}
}

func TestAnalyzeBatch_DeadlineDefersRemainder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Deadline = time.Nanosecond

	drivers := []driver.Driver{
		&fakeDriver{id: "chromium-desktop", page: renderedPage(richMarkup)},
	}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: richMarkup, StatusCode: 200}}

	a := New(cfg, drivers, fetcher)
	res := a.AnalyzeBatch(context.Background(),
		[]string{"https://one.example.com/", "https://two.example.com/"}, "full")

	if !res.TimedOut {
		t.Error("expected timed-out batch")
	}
	if len(res.Reports)+len(res.Deferred) != 2 {
		t.Errorf("reports(%d) + deferred(%d) != inputs(2)",
			len(res.Reports), len(res.Deferred))
	}
}

func TestMergeFindings_WorstCaseWins(t *testing.T) {
	a := models.BrowserRun{Status: models.StatusSuccess, Findings: models.EmptyFindings()}
	a.Findings[models.CategoryPricing] = &models.CategoryFinding{Total: 4, Missing: 1}
	b := models.BrowserRun{Status: models.StatusSuccess, Findings: models.EmptyFindings()}
	b.Findings[models.CategoryPricing] = &models.CategoryFinding{Total: 4, Missing: 3}

	merged := mergeFindings([]models.BrowserRun{a, b})
	if got := merged.Get(models.CategoryPricing); got.Missing != 3 {
		t.Errorf("merged pricing missing = %d, want 3 (worst case)", got.Missing)
	}
}

func TestMergeSignals_UnionFrameworksStickyFlag(t *testing.T) {
	a := models.BrowserRun{Status: models.StatusSuccess}
	a.Signals.Frameworks = []string{"React"}
	b := models.BrowserRun{Status: models.StatusSuccess}
	b.Signals.Frameworks = []string{"Next.js", "React"}
	b.Signals.PurchaseControlMissing = true

	merged := mergeSignals([]models.BrowserRun{a, b})
	want := []string{"Next.js", "React"}
	if len(merged.Frameworks) != len(want) {
		t.Fatalf("frameworks = %v, want %v", merged.Frameworks, want)
	}
	for i := range want {
		if merged.Frameworks[i] != want[i] {
			t.Errorf("frameworks[%d] = %q, want %q", i, merged.Frameworks[i], want[i])
		}
	}
	if !merged.PurchaseControlMissing {
		t.Error("sticky purchase flag lost in merge")
	}
}
