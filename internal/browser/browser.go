// Package browser runs Chromium through playwright. A Launcher owns the
// playwright driver for the life of the process and opens one Session per
// poll cycle.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/termin-watch/internal/dom"
)

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	// ReadTimeout bounds element reads (text, value, attribute, box).
	ReadTimeout time.Duration
	// ScrollTimeout bounds scrolling into view and script clicks.
	ScrollTimeout time.Duration
	// InstallBrowsers downloads the driver and Chromium before the first run.
	InstallBrowsers bool
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1366,
		ViewportHeight: 900,
		AcceptLanguage: "de-DE,de;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Berlin",
		Locale:         "de-DE",
		ReadTimeout:    200 * time.Millisecond,
		ScrollTimeout:  1500 * time.Millisecond,
	}
}

// Launcher starts the playwright driver once. It is safe to call Open
// repeatedly; sessions never share a browser.
type Launcher struct {
	pw     *playwright.Playwright
	opts   *Options
	logger *slog.Logger
}

func NewLauncher(opts *Options, logger *slog.Logger) (*Launcher, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "browser")

	if opts.InstallBrowsers {
		logger.Info("installing playwright driver and chromium")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Launcher{pw: pw, opts: opts, logger: logger}, nil
}

// Open launches a fresh browser, context and page. JavaScript dialogs on the
// page are accepted as soon as they open.
func (l *Launcher) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	}
	if l.opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: l.opts.ProxyServer}
	}

	b, err := l.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(l.opts.UserAgent),
		Locale:     playwright.String(l.opts.Locale),
		TimezoneId: playwright.String(l.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{"Accept-Language": l.opts.AcceptLanguage},
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	logger := l.logger
	page.OnDialog(func(d playwright.Dialog) {
		logger.Debug("accepting dialog", "type", d.Type(), "message", d.Message())
		if err := d.Accept(); err != nil {
			logger.Debug("accept dialog failed", "error", err)
		}
	})

	return &Session{
		browser: b,
		context: bctx,
		page:    NewPage(page, l.opts),
	}, nil
}

// Close stops the playwright driver. Sessions must be closed first.
func (l *Launcher) Close() error {
	if l.pw == nil {
		return nil
	}
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Session is one browser with a single tab.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    *Page
}

func (s *Session) Page() dom.Page {
	return s.page
}

// Close closes the context, then the browser, and reports every failure.
func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	return errors.Join(errs...)
}
