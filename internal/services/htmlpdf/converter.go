// Package htmlpdf prints HTML documents to PDF with headless Chrome.
package htmlpdf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

var (
	ErrClosed             = errors.New("html converter is closed")
	ErrBrowserUnavailable = errors.New("HTML to PDF conversion is not available on this server")
	ErrEmptyDocument      = errors.New("the HTML file is empty")
	ErrConversionFailed   = errors.New("could not convert the HTML document")
)

const (
	DefaultTimeout = 30 * time.Second

	// A4 portrait with 1cm margins, in inches.
	paperWidth  = 8.27
	paperHeight = 11.69
	marginInch  = 1 / 2.54
)

// Options configures a Converter.
type Options struct {
	ChromePath    string        // empty means look up an installed browser
	AllowDownload bool          // fetch a Chromium build when none is installed
	NoSandbox     bool          // needed when running as root in containers
	Timeout       time.Duration // per conversion
}

// Converter owns one browser process, started on first use and shared by
// every conversion. It is safe for concurrent use.
type Converter struct {
	opts Options

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closed        bool
}

// NewConverter returns a Converter. The browser is not launched until the
// first conversion, so a server without Chrome still starts.
func NewConverter(opts Options) *Converter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Converter{opts: opts}
}

// resolveBrowser finds a Chrome binary: the configured path, then an
// installed browser, then (if allowed) a downloaded Chromium.
func resolveBrowser(opts Options) (string, error) {
	if opts.ChromePath != "" {
		return opts.ChromePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	if !opts.AllowDownload {
		return "", ErrBrowserUnavailable
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("%w: downloading browser: %w", ErrBrowserUnavailable, err)
	}
	return path, nil
}

func (c *Converter) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	path, err := resolveBrowser(c.opts)
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
	)
	if c.opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: starting browser: %w", ErrBrowserUnavailable, err)
	}

	log.Printf("🌐 Headless browser started (%s)", path)
	c.allocCancel, c.browserCtx, c.browserCancel = allocCancel, browserCtx, browserCancel
	return browserCtx, nil
}

// Close stops the browser. It is safe to call more than once.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.browserCancel != nil {
		c.browserCancel()
		c.allocCancel()
	}
	return nil
}

// Convert prints an HTML document to an A4 PDF. The markup is written to a
// temp file and opened from there so relative URLs resolve like a saved page.
func (c *Converter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, ErrEmptyDocument
	}
	browserCtx, err := c.browser()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "smartconverter-*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(html); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(marginInch).
				WithMarginBottom(marginInch).
				WithMarginLeft(marginInch).
				WithMarginRight(marginInch).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("html conversion timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return buf, nil
}
