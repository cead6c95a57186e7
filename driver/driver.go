// Package driver runs one headless-browser session per validate request:
// bootstrap (navigate, optional frame entry, optional login), input dispatch
// (fill + trigger), and output harvest (poll + extract).
package driver

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/stproxy/config"
	"github.com/use-agent/stproxy/extract"
	"github.com/use-agent/stproxy/models"
)

// probeTTL caches target reachability probes so health checks don't hammer
// the remote app.
const probeTTL = time.Minute

// Driver manages the shared browser process. Each request gets its own
// freshly created page (session); there is no page reuse across requests.
// It is safe for concurrent use.
type Driver struct {
	browser *rod.Browser
	cfg     *config.Config
	probe   *probe
	mdConv  *converter.Converter

	// targetDomain resolves relative URLs in Markdown output.
	targetDomain string

	activeSessions atomic.Int32

	probeMu   sync.Mutex
	lastProbe models.TargetStatus
	probedAt  time.Time
}

// New launches a headless browser and connects to it.
func New(cfg *config.Config) (*Driver, error) {
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		NoSandbox(cfg.Browser.NoSandbox)

	if cfg.Browser.BrowserBin != "" {
		l = l.Bin(cfg.Browser.BrowserBin)
	}
	if cfg.Browser.Proxy != "" {
		l = l.Proxy(cfg.Browser.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewProxyError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewProxyError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	targetDomain := ""
	if u, parseErr := url.Parse(cfg.Target.URL); parseErr == nil {
		targetDomain = u.Scheme + "://" + u.Host
	}

	return &Driver{
		browser:      browser,
		cfg:          cfg,
		probe:        newProbe(cfg.Browser.Proxy),
		mdConv:       extract.NewMarkdownConverter(),
		targetDomain: targetDomain,
	}, nil
}

// Stats returns a snapshot of in-flight sessions.
func (d *Driver) Stats() models.SessionStats {
	return models.SessionStats{
		ActiveSessions: int(d.activeSessions.Load()),
	}
}

// ProbeTarget reports whether the remote application answers plain HTTP.
// Results are cached for probeTTL.
func (d *Driver) ProbeTarget(ctx context.Context) models.TargetStatus {
	d.probeMu.Lock()
	defer d.probeMu.Unlock()

	if !d.probedAt.IsZero() && time.Since(d.probedAt) < probeTTL {
		return d.lastProbe
	}
	d.lastProbe = d.probe.Check(ctx, d.cfg.Target.URL)
	d.probedAt = time.Now()
	return d.lastProbe
}

// Close kills the browser process. Call this on graceful shutdown to prevent
// zombie Chrome processes.
func (d *Driver) Close() {
	slog.Info("driver shutting down: closing browser")
	d.browser.MustClose()
	slog.Info("driver shutdown complete")
}
