package driver

import (
	"context"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/models"
	"github.com/ysmood/gson"
)

// Browser owns the single headless browser process shared by all engine
// drivers. Engines are driven sequentially, so one process is enough and
// bounds resource usage.
type Browser struct {
	browser *rod.Browser
}

// LaunchBrowser starts the headless browser with the stealth launch flags
// applied. The flags are launch-time configuration; the per-context
// overrides are applied only for stealth-mode profiles.
func LaunchBrowser(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Delete(flags.Flag("enable-automation"))
	for _, f := range stealthLaunchFlags {
		if f.value != "" {
			l.Set(flags.Flag(f.name), f.value)
		} else {
			l.Set(flags.Flag(f.name))
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewAnalysisError(models.ErrCodeBrowserCrash,
			"failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewAnalysisError(models.ErrCodeBrowserCrash,
			"failed to connect to browser", err)
	}

	return &Browser{browser: browser}, nil
}

// Close kills the browser process. Call on shutdown to prevent zombie
// Chrome processes.
func (b *Browser) Close() {
	slog.Info("closing browser")
	b.browser.MustClose()
}

// Engine returns a Driver bound to one engine identity on this browser.
func (b *Browser) Engine(spec EngineSpec) Driver {
	return &rodDriver{browser: b.browser, spec: spec}
}

type rodDriver struct {
	browser *rod.Browser
	spec    EngineSpec
}

func (d *rodDriver) EngineID() string { return d.spec.ID }

// Spec exposes the engine identity for profile construction.
func (d *rodDriver) Spec() EngineSpec { return d.spec }

// Acquire creates a fresh tab and applies the profile. Stealth overrides
// must be installed before any navigation; they only take effect for
// documents created after installation.
func (d *rodDriver) Acquire(ctx context.Context, profile Profile) (Page, error) {
	page, err := d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewAnalysisError(models.ErrCodeBrowserCrash,
			"failed to create page", err)
	}

	rp := &rodPage{page: page}

	if profile.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr)
		}
		for _, override := range contextOverrides {
			if _, evalErr := page.EvalOnNewDocument(override); evalErr != nil {
				slog.Warn("context override failed", "error", evalErr)
			}
		}
	}

	if profile.UserAgent != "" {
		_ = (proto.NetworkSetUserAgentOverride{
			UserAgent: profile.UserAgent,
		}).Call(page)
	}

	if profile.ViewportWidth > 0 && profile.ViewportHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             profile.ViewportWidth,
			Height:            profile.ViewportHeight,
			DeviceScaleFactor: 1,
			Mobile:            profile.Mobile,
		})
	}

	return rp, nil
}

type rodPage struct {
	page      *rod.Page
	closeOnce sync.Once
	closeErr  error
}

func (p *rodPage) Navigate(ctx context.Context, targetURL string) error {
	pg := p.page.Context(ctx)

	// Plausible Referer for direct hits; sites treat refererless browser
	// traffic as a bot tell.
	if u, err := url.Parse(targetURL); err == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(pg)
	}

	if err := pg.Navigate(targetURL); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Title() (string, error) {
	return p.evalString(`() => document.title`)
}

func (p *rodPage) BodyText() (string, error) {
	return p.evalString(`() => document.body ? document.body.innerText : ""`)
}

func (p *rodPage) BodyChildCount() (int, error) {
	res, err := p.page.Eval(`() => document.body ? document.body.children.length : 0`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// WaitSettled waits for the DOM to stop mutating, bounded by timeout.
// WaitRequestIdle conflicts with the Fetch domain on Chromium 145+, so DOM
// stability is the idle signal.
func (p *rodPage) WaitSettled(ctx context.Context, timeout time.Duration) error {
	pg := p.page.Context(ctx).Timeout(timeout)
	return pg.WaitDOMStable(300*time.Millisecond, 0.1)
}

// Humanize moves the pointer along a few randomized segments. Behavioral
// cover only; it must not change extracted content.
func (p *rodPage) Humanize(ctx context.Context) error {
	pg := p.page.Context(ctx)
	for i := 0; i < 3; i++ {
		x := 100 + rand.Float64()*800
		y := 100 + rand.Float64()*500
		if err := pg.Mouse.MoveLinear(proto.Point{X: x, Y: y}, 8+rand.Intn(8)); err != nil {
			return err
		}
		select {
		case <-time.After(time.Duration(50+rand.Intn(150)) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(false, nil)
}

// Close releases the tab exactly once, even when called from multiple
// defer paths.
func (p *rodPage) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.page.Close()
	})
	return p.closeErr
}

func (p *rodPage) evalString(js string) (string, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
