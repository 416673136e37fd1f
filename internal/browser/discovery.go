package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Discovery output file names.
const (
	AllRequestsFile  = "all_requests.json"
	APIEndpointsFile = "api_endpoints.json"
	UniquePathsFile  = "unique_paths.txt"
)

// apiPatterns mark a request URL as a likely data endpoint.
var apiPatterns = []string{
	"/api/", "/service/", "/data/", "/search/", "/query/",
	".ashx", ".asmx", "/handler/", "getdata", "fetch",
	"account", "bill", "water", "utility", "balance",
}

// IsAPIRequest reports whether a URL looks like a data endpoint.
func IsAPIRequest(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range apiPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Request is one network request seen by the browser.
type Request struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	ResourceType string            `json:"resource_type"`
	Headers      map[string]string `json:"headers"`
	HasPostData  bool              `json:"has_post_data"`
	Timestamp    time.Time         `json:"timestamp"`
}

// NavLink is a link whose target mentions search, bills or accounts.
type NavLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Result is what a discovery run found.
type Result struct {
	Requests    []Request `json:"requests"`
	Endpoints   []Request `json:"endpoints"`
	FormCount   int       `json:"form_count"`
	NavLinks    []NavLink `json:"nav_links"`
	Screenshots []string  `json:"screenshots"`
}

// Recorder collects requests from browser events, which arrive on
// chromedp's event goroutine.
type Recorder struct {
	mu        sync.Mutex
	requests  []Request
	endpoints []Request
}

// Record stores a request and reports whether it looks like an endpoint.
func (r *Recorder) Record(req Request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if IsAPIRequest(req.URL) {
		r.endpoints = append(r.endpoints, req)
		return true
	}
	return false
}

// Snapshot returns copies of the recorded requests and endpoints.
func (r *Recorder) Snapshot() (requests, endpoints []Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...), append([]Request(nil), r.endpoints...)
}

// UniquePaths returns the sorted distinct host+path of the requests.
func UniquePaths(requests []Request) []string {
	seen := map[string]bool{}
	for _, req := range requests {
		u, err := url.Parse(req.URL)
		if err != nil {
			continue
		}
		seen[u.Host+u.Path] = true
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Save writes all_requests.json, api_endpoints.json and unique_paths.txt
// into dir, creating it if needed.
func (r *Result) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := writeJSON(filepath.Join(dir, AllRequestsFile), nonNil(r.Requests)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, APIEndpointsFile), nonNil(r.Endpoints)); err != nil {
		return err
	}

	var b strings.Builder
	for _, p := range UniquePaths(r.Requests) {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, UniquePathsFile), []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", UniquePathsFile, err)
	}
	return nil
}

func nonNil(reqs []Request) []Request {
	if reqs == nil {
		return []Request{}
	}
	return reqs
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
