package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/driver"
	"github.com/use-agent/agentlens/models"
)

type fakePage struct {
	title      string
	body       string
	children   int
	html       string
	navErr     error
	settleErr  error
	settleWait time.Duration
	closed     int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error { return p.navErr }
func (p *fakePage) Title() (string, error)                         { return p.title, nil }
func (p *fakePage) BodyText() (string, error)                      { return p.body, nil }
func (p *fakePage) BodyChildCount() (int, error)                   { return p.children, nil }
func (p *fakePage) WaitSettled(ctx context.Context, timeout time.Duration) error {
	p.settleWait = timeout
	return p.settleErr
}
func (p *fakePage) Humanize(ctx context.Context) error { return nil }
func (p *fakePage) HTML() (string, error)              { return p.html, nil }
func (p *fakePage) Screenshot() ([]byte, error)        { return []byte{0x89, 0x50}, nil }
func (p *fakePage) Close() error {
	p.closed++
	return nil
}

type fakeDriver struct {
	id         string
	acquireErr error
	page       *fakePage
}

func (d *fakeDriver) EngineID() string { return d.id }
func (d *fakeDriver) Acquire(ctx context.Context, profile driver.Profile) (driver.Page, error) {
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.page, nil
}

type fakeFetcher struct {
	snap          *driver.RawSnapshot
	primaryErr    error
	degradedErr   error
	primaryCalls  int
	degradedCalls int
}

func (f *fakeFetcher) FetchPrimary(ctx context.Context, url, ua string) (*driver.RawSnapshot, error) {
	f.primaryCalls++
	if f.primaryErr != nil {
		return nil, f.primaryErr
	}
	return f.snap, nil
}

func (f *fakeFetcher) FetchDegraded(ctx context.Context, url, ua string) (*driver.RawSnapshot, error) {
	f.degradedCalls++
	if f.degradedErr != nil {
		return nil, f.degradedErr
	}
	s := *f.snap
	s.Degraded = true
	return &s, nil
}

func testCfg() config.SessionConfig {
	return config.SessionConfig{
		NavTimeout:      time.Second,
		SettleTimeout:   100 * time.Millisecond,
		PostSettleDelay: 0,
	}
}

func testTarget(t *testing.T) models.Target {
	t.Helper()
	target, err := models.NewTarget("https://example.com/", "full")
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	return target
}

func TestRun_Success(t *testing.T) {
	page := &fakePage{
		title:    "Example",
		body:     "Hello",
		children: 1,
		html:     "<html><body>Hello rendered</body></html>",
	}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{
		Body:       "<html><body>Hello</body></html>",
		StatusCode: 200,
	}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", res.Run.Status, res.Run.Error)
	}
	if res.RawMarkup == "" || res.SettledMarkup == "" {
		t.Error("expected both snapshots captured")
	}
	if len(res.Screenshot) == 0 {
		t.Error("expected screenshot artifact")
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times, want exactly 1", page.closed)
	}
	if fetcher.degradedCalls != 0 {
		t.Errorf("degraded transport used %d times on a clean run", fetcher.degradedCalls)
	}
}

func TestRun_QuickModeShortensSettle(t *testing.T) {
	newPage := func() *fakePage {
		return &fakePage{
			title:    "Example",
			body:     "Hello",
			children: 1,
			html:     "<html><body>Hello</body></html>",
		}
	}
	snap := &driver.RawSnapshot{Body: "<html><body>Hello</body></html>", StatusCode: 200}
	cfg := config.SessionConfig{
		NavTimeout:      time.Second,
		SettleTimeout:   100 * time.Millisecond,
		PostSettleDelay: 300 * time.Millisecond,
	}

	quickTarget, err := models.NewTarget("https://example.com/", "quick")
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	quickPage := newPage()
	started := time.Now()
	res := Run(context.Background(), quickTarget, &fakeDriver{id: "fake-engine", page: quickPage}, &fakeFetcher{snap: snap}, cfg)
	quickElapsed := time.Since(started)

	if res.Run.Status != models.StatusSuccess {
		t.Fatalf("status = %q, want success", res.Run.Status)
	}
	if want := cfg.SettleTimeout / 2; quickPage.settleWait != want {
		t.Errorf("quick settle wait = %v, want %v", quickPage.settleWait, want)
	}
	if quickElapsed >= cfg.PostSettleDelay {
		t.Errorf("quick run took %v, must skip the %v post-settle delay", quickElapsed, cfg.PostSettleDelay)
	}

	fullPage := newPage()
	Run(context.Background(), testTarget(t), &fakeDriver{id: "fake-engine", page: fullPage}, &fakeFetcher{snap: snap}, cfg)
	if fullPage.settleWait != cfg.SettleTimeout {
		t.Errorf("full settle wait = %v, want %v", fullPage.settleWait, cfg.SettleTimeout)
	}
}

func TestRun_SettleTimeoutIsRecoverable(t *testing.T) {
	page := &fakePage{
		title:     "Example",
		body:      "partial",
		children:  1,
		html:      "<html><body>partial</body></html>",
		settleErr: context.DeadlineExceeded,
	}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: "<html></html>", StatusCode: 200}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusSuccess {
		t.Fatalf("settle timeout must not fail the run, got %q", res.Run.Status)
	}
}

func TestRun_ProtocolFailureUsesFallbackOnce(t *testing.T) {
	page := &fakePage{title: "ok", body: "ok", children: 1, html: "<html><body>ok</body></html>"}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{
		snap:       &driver.RawSnapshot{Body: "<html><body>ok</body></html>", StatusCode: 200},
		primaryErr: errors.New("stream error: PROTOCOL_ERROR"),
	}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusSuccess {
		t.Fatalf("status = %q, want success after fallback", res.Run.Status)
	}
	if fetcher.primaryCalls != 1 || fetcher.degradedCalls != 1 {
		t.Errorf("calls = (%d primary, %d degraded), want (1, 1)",
			fetcher.primaryCalls, fetcher.degradedCalls)
	}
}

func TestRun_FallbackFailureIsNavigationError(t *testing.T) {
	page := &fakePage{}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{
		snap:        &driver.RawSnapshot{},
		primaryErr:  errors.New("http2: frame too large"),
		degradedErr: errors.New("connection reset"),
	}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Run.Status)
	}
	if res.Run.Error == nil || res.Run.Error.Code != models.ErrCodeNavigation {
		t.Errorf("error = %+v, want code %s", res.Run.Error, models.ErrCodeNavigation)
	}
	if fetcher.degradedCalls != 1 {
		t.Errorf("degraded attempts = %d, want exactly 1", fetcher.degradedCalls)
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times on failure path, want exactly 1", page.closed)
	}
}

func TestRun_NonProtocolFailureSkipsFallback(t *testing.T) {
	page := &fakePage{}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{
		snap:       &driver.RawSnapshot{},
		primaryErr: errors.New("dial tcp: lookup nosuchhost: no such host"),
	}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Run.Status)
	}
	if fetcher.degradedCalls != 0 {
		t.Errorf("degraded transport must not run for non-protocol failures, ran %d times",
			fetcher.degradedCalls)
	}
}

func TestRun_LaunchFailureIsFatal(t *testing.T) {
	drv := &fakeDriver{id: "fake-engine", acquireErr: errors.New("no browser")}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Run.Status)
	}
	if fetcher.primaryCalls != 0 {
		t.Error("no navigation should be attempted after launch failure")
	}
}

func TestRun_CaptchaTitleIsBlocked(t *testing.T) {
	page := &fakePage{
		title:    "Captcha required",
		body:     "complete the captcha to continue",
		children: 2,
		html:     "<html><body>challenge</body></html>",
	}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: "<html></html>", StatusCode: 200}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusBlocked {
		t.Fatalf("status = %q, want blocked", res.Run.Status)
	}
	for _, c := range models.Categories {
		f := res.Run.Findings.Get(c)
		if f.Total != 0 || f.Missing != 0 {
			t.Errorf("blocked run must carry zero findings, %s has %+v", c, f)
		}
	}
	if res.SettledMarkup != "" {
		t.Error("blocked run must short-circuit content extraction")
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times, want exactly 1", page.closed)
	}
}

func TestRun_EmptyBodyIsBlocked(t *testing.T) {
	page := &fakePage{title: "", body: "", children: 0}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{Body: "", StatusCode: 200}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusBlocked {
		t.Fatalf("status = %q, want blocked for childless empty body", res.Run.Status)
	}
}

func TestRun_ChallengedRawSnapshotIsProtected(t *testing.T) {
	page := &fakePage{
		title:    "Real Store",
		body:     "Welcome to the store",
		children: 3,
		html:     "<html><body>store</body></html>",
	}
	drv := &fakeDriver{id: "fake-engine", page: page}
	fetcher := &fakeFetcher{snap: &driver.RawSnapshot{
		Body:       "<html><head><title>Just a moment...</title></head></html>",
		StatusCode: 403,
	}}

	res := Run(context.Background(), testTarget(t), drv, fetcher, testCfg())

	if res.Run.Status != models.StatusProtected {
		t.Fatalf("status = %q, want protected", res.Run.Status)
	}
	for _, c := range models.Categories {
		f := res.Run.Findings.Get(c)
		if f.Total != 0 || f.Missing != 0 {
			t.Errorf("protected run must carry zero findings, %s has %+v", c, f)
		}
	}
}
