// Package browser drives a mobile-emulated Chromium page through playwright
// and exposes it as a tools.Device.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/config"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

const (
	defaultNavTimeout = 30 * time.Second
	headlessEnv       = "AGENT_HEADLESS"
	maxNodes          = 4000
)

var _ tools.Device = (*Device)(nil)

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
	logger  zerolog.Logger
}

// NewLauncher starts playwright and chromium. AGENT_HEADLESS overrides the
// configured headless flag.
func NewLauncher(ctx context.Context, cfg config.BrowserConfig, logger zerolog.Logger) (*Launcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	headless := parseBoolEnv(headlessEnv, cfg.Headless)
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	logger.Info().Bool("headless", headless).Msg("chromium launched")
	return &Launcher{pw: pw, browser: browser, cfg: cfg, logger: logger}, nil
}

// NewDevice opens a touch-enabled mobile context and navigates to rawURL.
func (l *Launcher) NewDevice(ctx context.Context, rawURL string) (*Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	home, err := hostOf(rawURL)
	if err != nil {
		return nil, err
	}
	bctx, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: l.cfg.Width, Height: l.cfg.Height},
		IsMobile:          playwright.Bool(true),
		HasTouch:          playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.cfg.Timeout.Milliseconds()))

	d := &Device{
		context: bctx,
		page:    page,
		home:    home,
		source:  l.cfg.Source,
		width:   l.cfg.Width,
		height:  l.cfg.Height,
		logger:  l.logger,
	}
	if _, err := page.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(defaultNavTimeout.Milliseconds())),
	}); err != nil {
		_ = d.Close()
		return nil, wrap(err)
	}
	return d, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

// Device is one emulated phone screen. Pages on the start host report the
// configured app source; anything else reports its own host.
type Device struct {
	context playwright.BrowserContext
	page    playwright.Page
	home    string
	source  string
	width   int
	height  int
	logger  zerolog.Logger

	open atomic.Int64
}

func (d *Device) Close() error {
	if d.page != nil {
		_ = d.page.Close()
	}
	if d.context != nil {
		return d.context.Close()
	}
	return nil
}

// Source names the window currently shown.
func (d *Device) Source() string {
	return sourceFor(d.page.URL(), d.home, d.source)
}

// OpenSnapshots is the number of acquired snapshots not yet released.
func (d *Device) OpenSnapshots() int64 { return d.open.Load() }

func (d *Device) AcquireSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := d.page.Evaluate(walkScript, maxNodes)
	if err != nil {
		return nil, wrap(err)
	}
	root, err := decodeTree(val)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, snapshot.ErrNoSnapshot
	}
	d.open.Add(1)
	return snapshot.New(d.Source(), root, func() { d.open.Add(-1) }), nil
}

func (d *Device) ScreenSize(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if vp := d.page.ViewportSize(); vp != nil && vp.Width > 0 && vp.Height > 0 {
		return vp.Width, vp.Height, nil
	}
	return d.width, d.height, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return u.Host, nil
}

func sourceFor(pageURL, home, appSource string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Host == home {
		return appSource
	}
	return u.Host
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}

func parseBoolEnv(name string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
