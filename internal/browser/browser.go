package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	// screenshotQuality 100 makes chromedp emit PNG instead of JPEG.
	screenshotQuality = 100

	// settleDelay lets late XHRs fire after the page is ready.
	settleDelay = 2 * time.Second

	// MainPageScreenshot and SearchPageScreenshot are the discovery screenshots.
	MainPageScreenshot   = "01_main_page.png"
	SearchPageScreenshot = "02_utility_search.png"
)

// Browser launches a Chrome process per run.
type Browser struct {
	execPath  string
	headless  bool
	userAgent string
	proxy     string
	timeout   time.Duration
	settle    time.Duration
	logger    *slog.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithExecPath sets the Chrome executable.
func WithExecPath(p string) Option {
	return func(b *Browser) { b.execPath = p }
}

// WithHeadless toggles headless mode.
func WithHeadless(h bool) Option {
	return func(b *Browser) { b.headless = h }
}

// WithUserAgent sets the User-Agent the browser sends.
func WithUserAgent(ua string) Option {
	return func(b *Browser) { b.userAgent = ua }
}

// WithProxy sends browser traffic through the SOCKS5 proxy at address ("host:port").
func WithProxy(address string) Option {
	return func(b *Browser) { b.proxy = address }
}

// WithTimeout bounds a whole run.
func WithTimeout(d time.Duration) Option {
	return func(b *Browser) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithSettleDelay sets how long to wait after a page is ready.
func WithSettleDelay(d time.Duration) Option {
	return func(b *Browser) { b.settle = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) { b.logger = l }
}

// New creates a Browser.
func New(opts ...Option) *Browser {
	b := &Browser{
		headless: true,
		timeout:  2 * time.Minute,
		settle:   settleDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// allocate starts a browser and returns a tab context.
func (b *Browser) allocate(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.WindowSize(1280, 720),
		chromedp.NoSandbox,
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.proxy != "" {
		opts = append(opts, chromedp.ProxyServer("socks5://"+b.proxy))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, b.timeout)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			b.logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
	)
	return tabCtx, func() {
		cancelTab()
		cancelAlloc()
		cancelTimeout()
	}
}

// Screenshot loads pageURL and writes a full page PNG to path.
func (b *Browser) Screenshot(ctx context.Context, pageURL, path string) error {
	tabCtx, cancel := b.allocate(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.FullScreenshot(&buf, screenshotQuality),
	); err != nil {
		return fmt.Errorf("failed to capture %s: %w", pageURL, err)
	}
	return writeFile(path, buf)
}

// pageInfo is filled by discoveryScript.
type pageInfo struct {
	Forms int       `json:"forms"`
	Links []NavLink `json:"links"`
}

const discoveryScript = `(() => ({
	forms: document.querySelectorAll('form, input[type="search"], input[type="text"]').length,
	links: Array.from(document.querySelectorAll(
		'a[href*="Search"], a[href*="Bill"], a[href*="Water"], a[href*="Utility"], a[href*="Account"]'
	)).map(a => ({text: (a.innerText || '').trim(), href: a.getAttribute('href') || ''}))
}))()`

// Discover loads mainURL and then searchURL in one tab, recording every
// request. Screenshots of both pages go into screenshotDir.
func (b *Browser) Discover(ctx context.Context, mainURL, searchURL, screenshotDir string) (*Result, error) {
	tabCtx, cancel := b.allocate(ctx)
	defer cancel()

	rec := &Recorder{}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventRequestWillBeSent)
		if !ok || e.Request == nil {
			return
		}
		headers := make(map[string]string, len(e.Request.Headers))
		for k, v := range e.Request.Headers {
			headers[k] = fmt.Sprint(v)
		}
		req := Request{
			URL:          e.Request.URL,
			Method:       e.Request.Method,
			ResourceType: string(e.Type),
			Headers:      headers,
			HasPostData:  e.Request.HasPostData,
			Timestamp:    time.Now(),
		}
		if rec.Record(req) {
			b.logger.Info("API found", "method", req.Method, "url", req.URL)
		}
	})

	result := &Result{}
	var info pageInfo
	var mainShot, searchShot []byte

	b.logger.Info("loading main page", "url", mainURL)
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(mainURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.FullScreenshot(&mainShot, screenshotQuality),
		chromedp.Evaluate(discoveryScript, &info),
	); err != nil {
		return nil, fmt.Errorf("failed to load main page: %w", err)
	}
	result.FormCount = info.Forms
	result.NavLinks = info.Links
	for _, l := range info.Links {
		b.logger.Info("navigation link", "text", l.Text, "href", l.Href)
	}

	path := filepath.Join(screenshotDir, MainPageScreenshot)
	if err := writeFile(path, mainShot); err != nil {
		return nil, err
	}
	result.Screenshots = append(result.Screenshots, path)

	b.logger.Info("loading utility search page", "url", searchURL)
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.FullScreenshot(&searchShot, screenshotQuality),
	); err != nil {
		return nil, fmt.Errorf("failed to load search page: %w", err)
	}
	path = filepath.Join(screenshotDir, SearchPageScreenshot)
	if err := writeFile(path, searchShot); err != nil {
		return nil, err
	}
	result.Screenshots = append(result.Screenshots, path)

	result.Requests, result.Endpoints = rec.Snapshot()
	b.logger.Info("discovery complete",
		"requests", len(result.Requests),
		"endpoints", len(result.Endpoints),
	)
	return result, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
