package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// SearchKind selects the search form.
type SearchKind string

const (
	// SearchAccount searches by utility account (reference) number.
	SearchAccount SearchKind = "account"
	// SearchAddress searches by street address.
	SearchAddress SearchKind = "address"
)

// searchForms maps a search kind to the form action marker and input name.
var searchForms = map[SearchKind]struct{ action, input string }{
	SearchAccount: {action: "Account", input: "AccountNumber"},
	SearchAddress: {action: "Address", input: "Address"},
}

const (
	defaultBaseURL     = "https://bsaonline.com"
	defaultUID         = "305"
	defaultCity        = "Warren"
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
	defaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxRedirects limits redirects to prevent loops.
	maxRedirects = 10
)

// Client searches the BS&A Online utility billing portal.
// It keeps the portal's session cookies between requests. A Client is
// safe for concurrent use; concurrent lookups share one session.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	uid         string
	city        string
	userAgent   string
	maxBodySize int64
	delay       time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the portal root, e.g. an httptest server in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithMunicipality sets the BS&A municipality uid and the city name that
// appears in addresses.
func WithMunicipality(uid, city string) Option {
	return func(c *Client) {
		if uid != "" {
			c.uid = uid
		}
		if city != "" {
			c.city = city
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxBodySize limits how much of a response is read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithDelay sets the pause between lookups in ScrapeAll.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.httpClient.Transport = &headerInjectingTransport{
			base:    c.httpClient.Transport,
			headers: headers,
		}
	}
}

// NewClient creates a portal client.
func NewClient(opts ...Option) *Client {
	// cookiejar.New only fails with invalid options.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck

	c := &Client{
		httpClient: &http.Client{
			Transport: http.DefaultTransport,
			Timeout:   defaultTimeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		baseURL:     defaultBaseURL,
		uid:         defaultUID,
		city:        defaultCity,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		delay:       2 * time.Second,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &headerInjectingTransport{
		base: c.httpClient.Transport,
		headers: map[string]string{
			"User-Agent":      c.userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
		},
	}
	return c
}

// SearchURL is the utility billing search page.
func (c *Client) SearchURL() string {
	return c.baseURL + "/OnlinePayment/OnlinePaymentSearch?PaymentApplicationType=10&uid=" + url.QueryEscape(c.uid)
}

// Search looks up one account or address and returns its bill.
// An unknown account returns ErrNoRecords.
func (c *Client) Search(ctx context.Context, kind SearchKind, term string) (*Bill, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	spec, ok := searchForms[kind]
	if !ok {
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}

	searchPage, err := c.get(ctx, c.SearchURL())
	if err != nil {
		return nil, fmt.Errorf("failed to load search page: %w", err)
	}

	form, ok := searchPage.FindForm(spec.action)
	if !ok {
		return nil, fmt.Errorf("%w: action containing %q", ErrFormNotFound, spec.action)
	}
	if !form.HasField(spec.input) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, spec.input)
	}

	result, err := c.submit(ctx, form, map[string]string{spec.input: term})
	if err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}
	return c.readResult(ctx, result, term)
}

// SearchByAccount looks up an account number.
func (c *Client) SearchByAccount(ctx context.Context, accountNumber string) (*Bill, error) {
	return c.Search(ctx, SearchAccount, accountNumber)
}

// SearchByAddress looks up a street address.
func (c *Client) SearchByAddress(ctx context.Context, address string) (*Bill, error) {
	return c.Search(ctx, SearchAddress, address)
}

// Lookup tries the address search first and falls back to the account search.
func (c *Client) Lookup(ctx context.Context, term string) (*Bill, error) {
	bill, err := c.SearchByAddress(ctx, term)
	if err == nil {
		return bill, nil
	}
	c.logger.Debug("address search failed, trying account", "term", term, "error", err)
	return c.SearchByAccount(ctx, term)
}

// readResult handles the page shown after a search: no records, a payment
// page for a single match, or a results table.
func (c *Client) readResult(ctx context.Context, page *Page, term string) (*Bill, error) {
	if strings.Contains(page.Text, "No records to display") {
		return nil, fmt.Errorf("%w for %q", ErrNoRecords, term)
	}
	if isDetailPage(page) {
		c.logger.Debug("search went straight to the payment page", "term", term)
		return ParseBill(page.Text, c.city), nil
	}

	for _, row := range page.Rows {
		if len(row.Cells) < 3 || isHeaderRow(row) {
			continue
		}
		for _, link := range row.Links {
			if !strings.Contains(link.Href, "Detail") && !strings.Contains(link.Href, "Payment") {
				continue
			}
			detail, err := c.get(ctx, link.URL)
			if err != nil {
				return nil, fmt.Errorf("failed to load result: %w", err)
			}
			return ParseBill(detail.Text, c.city), nil
		}
	}
	return nil, fmt.Errorf("%w for %q", ErrNoResult, term)
}

func isDetailPage(p *Page) bool {
	return strings.Contains(p.Text, "Step 3: Make Payment") || strings.Contains(p.Text, "Account:")
}

func isHeaderRow(r Row) bool {
	address, reference := r.Cells[0], r.Cells[1]
	if strings.Contains(address, "Address") && strings.Contains(reference, "Reference") {
		return true
	}
	return strings.Contains(address, "Search:") || strings.Contains(reference, "By:")
}

// LookupResult is the outcome of one lookup in ScrapeAll.
type LookupResult struct {
	Term string
	Bill *Bill
	Err  error
}

// ScrapeAll looks up each term in order, pausing between lookups.
// Failures are reported per term; only context cancellation stops the run.
func (c *Client) ScrapeAll(ctx context.Context, kind SearchKind, terms []string) ([]LookupResult, error) {
	results := make([]LookupResult, 0, len(terms))
	for i, term := range terms {
		c.logger.Info("looking up", "kind", kind, "term", term)

		bill, err := c.Search(ctx, kind, term)
		if err != nil {
			c.logger.Warn("lookup failed", "term", term, "error", err)
		}
		results = append(results, LookupResult{Term: term, Bill: bill, Err: err})

		if err := ctx.Err(); err != nil {
			return results, err
		}
		if i < len(terms)-1 && c.delay > 0 {
			if err := sleep(ctx, c.delay); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// get fetches and parses a page.
func (c *Client) get(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// submit sends a form the way a browser would.
func (c *Client) submit(ctx context.Context, form *Form, overrides map[string]string) (*Page, error) {
	values := form.Values(overrides)

	if form.Method == http.MethodPost {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.Action, strings.NewReader(values.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.do(req)
	}

	// A GET submission replaces the action's query string.
	u, err := url.Parse(form.Action)
	if err != nil {
		return nil, err
	}
	u.RawQuery = values.Encode()
	return c.get(ctx, u.String())
}

func (c *Client) do(req *http.Request) (*Page, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // draining only
		return nil, fmt.Errorf("%w: %s %s: %d", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, c.maxBodySize), resp.Request.URL.String())
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}
