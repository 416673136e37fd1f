package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestIsAPIRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://bsaonline.com/api/v1/search", true},
		{"https://bsaonline.com/Handlers/GetData.ashx?x=1", true},
		{"https://bsaonline.com/OnlinePayment/OnlinePaymentSearch?PaymentApplicationType=10", false},
		{"https://bsaonline.com/UtilityBilling/Search", true},
		{"https://bsaonline.com/Account/Balance", true},
		{"https://bsaonline.com/Content/site.css", false},
		{"https://www.google-analytics.com/collect", false},
	}
	for _, tt := range tests {
		if got := IsAPIRequest(tt.url); got != tt.want {
			t.Errorf("IsAPIRequest(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	if rec.Record(Request{URL: "https://bsaonline.com/"}) {
		t.Error("home page should not be an endpoint")
	}
	if !rec.Record(Request{URL: "https://bsaonline.com/api/bills"}) {
		t.Error("api URL should be an endpoint")
	}

	requests, endpoints := rec.Snapshot()
	if len(requests) != 2 || len(endpoints) != 1 {
		t.Errorf("unexpected snapshot: %d requests, %d endpoints", len(requests), len(endpoints))
	}
}

func TestUniquePaths(t *testing.T) {
	t.Parallel()

	got := UniquePaths([]Request{
		{URL: "https://bsaonline.com/b?x=1"},
		{URL: "https://bsaonline.com/a"},
		{URL: "https://bsaonline.com/b?x=2"},
		{URL: "https://cdn.example.com/app.js"},
		{URL: "://bad"},
	})
	want := []string{"bsaonline.com/a", "bsaonline.com/b", "cdn.example.com/app.js"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestResultSave(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "discovery_results")
	r := &Result{
		Requests: []Request{
			{URL: "https://bsaonline.com/", Method: "GET"},
			{URL: "https://bsaonline.com/api/bills", Method: "POST", HasPostData: true},
		},
		Endpoints: []Request{{URL: "https://bsaonline.com/api/bills", Method: "POST", HasPostData: true}},
	}
	if err := r.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, APIEndpointsFile))
	if err != nil {
		t.Fatal(err)
	}
	var endpoints []Request
	if err := json.Unmarshal(data, &endpoints); err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 1 || endpoints[0].Method != "POST" {
		t.Errorf("unexpected endpoints: %+v", endpoints)
	}

	paths, err := os.ReadFile(filepath.Join(dir, UniquePathsFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(paths) != "bsaonline.com/\nbsaonline.com/api/bills\n" {
		t.Errorf("unexpected unique paths %q", paths)
	}

	t.Run("empty result writes empty arrays", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := (&Result{}).Save(dir); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(dir, AllRequestsFile))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "[]\n" {
			t.Errorf("expected empty array, got %q", data)
		}
	})
}

func TestLocate(t *testing.T) {
	t.Parallel()

	fakeLookPath := func(found ...string) LookPathFunc {
		return func(name string) (string, error) {
			for _, f := range found {
				if f == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", exec.ErrNotFound
		}
	}

	t.Run("first candidate in PATH", func(t *testing.T) {
		t.Parallel()
		got, err := Locate("", fakeLookPath("google-chrome", "chromium"))
		if err != nil {
			t.Fatal(err)
		}
		if got != "/usr/bin/chromium" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("explicit file", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "chrome")
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o700); err != nil {
			t.Fatal(err)
		}
		got, err := Locate(p, fakeLookPath())
		if err != nil || got != p {
			t.Errorf("Locate(%q) = %q, %v", p, got, err)
		}
	})

	t.Run("explicit missing", func(t *testing.T) {
		t.Parallel()
		if _, err := Locate("/nonexistent/chrome", fakeLookPath("chromium")); !errors.Is(err, ErrBrowserNotFound) {
			t.Errorf("expected ErrBrowserNotFound, got %v", err)
		}
	})

	t.Run("nothing installed", func(t *testing.T) {
		t.Parallel()
		if _, err := Locate("", fakeLookPath()); !errors.Is(err, ErrBrowserNotFound) {
			t.Errorf("expected ErrBrowserNotFound, got %v", err)
		}
	})
}

// TestDiscover runs a real headless browser against a local server.
func TestDiscover(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	execPath, err := Locate("", nil)
	if err != nil {
		t.Skip("skipping browser test: no Chrome or Chromium installed")
	}
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<a href="/OnlinePayment/OnlinePaymentSearch">Utility Billing Search</a>
<form><input type="text" name="q"></form>
<script>fetch('/api/balance')</script>
</body></html>`)
	})
	mux.HandleFunc("/api/balance", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"balance": 1}`)
	})
	mux.HandleFunc("/OnlinePayment/OnlinePaymentSearch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><form action="Account"><input name="AccountNumber"></form></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	shots := t.TempDir()
	b := New(
		WithExecPath(execPath),
		WithSettleDelay(200*time.Millisecond),
		WithTimeout(time.Minute),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	result, err := b.Discover(context.Background(), srv.URL+"/", srv.URL+"/OnlinePayment/OnlinePaymentSearch", shots)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if result.FormCount < 2 {
		t.Errorf("expected form and input to be counted, got %d", result.FormCount)
	}
	if len(result.NavLinks) != 1 {
		t.Errorf("expected one navigation link, got %+v", result.NavLinks)
	}
	found := false
	for _, e := range result.Endpoints {
		if e.URL == srv.URL+"/api/balance" {
			found = true
		}
	}
	if !found {
		t.Errorf("fetch to /api/balance was not flagged: %+v", result.Endpoints)
	}
	for _, name := range []string{MainPageScreenshot, SearchPageScreenshot} {
		if _, err := os.Stat(filepath.Join(shots, name)); err != nil {
			t.Errorf("missing screenshot %s: %v", name, err)
		}
	}
}
