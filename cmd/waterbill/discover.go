package main

import (
	"fmt"
	"path/filepath"

	"github.com/bluedeer/waterbill/internal/browser"
	"github.com/spf13/cobra"
)

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Record the portal's network requests with a headless browser",
		Long: `Discover opens the municipality page and the utility search page in
headless Chrome, records every network request, and writes:

  discovery_results/all_requests.json   every request
  discovery_results/api_endpoints.json  requests that look like API calls
  discovery_results/unique_paths.txt    distinct host and path pairs
  screenshots/01_main_page.png
  screenshots/02_utility_search.png

Use it to see how the portal loads bill data after a site change.`,
		RunE: runDiscoverCmd,
	}

	cmd.Flags().Bool("show-browser", false, "Run Chrome with a window")

	return cmd
}

func runDiscoverCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cmd, false)

	showBrowser, err := cmd.Flags().GetBool("show-browser")
	if err != nil {
		return err
	}

	execPath, err := browser.Locate(cfg.BrowserPath, nil)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	b := browser.New(
		browser.WithExecPath(execPath),
		browser.WithHeadless(cfg.HeadlessBrowser && !showBrowser),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithProxy(cfg.PortalProxy),
		browser.WithTimeout(cfg.Timeout),
		browser.WithLogger(logger),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Opening %s\n", cfg.MunicipalityURL())

	result, err := b.Discover(ctx, cfg.MunicipalityURL(), cfg.UtilitySearchURL(), cfg.ScreenshotDir)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if err := result.Save(cfg.DiscoveryDir); err != nil {
		return err
	}

	fmt.Fprintf(out, "Requests captured: %d\n", len(result.Requests))
	fmt.Fprintf(out, "API endpoints:     %d\n", len(result.Endpoints))
	fmt.Fprintf(out, "Forms found:       %d\n", result.FormCount)
	for _, ep := range result.Endpoints {
		fmt.Fprintf(out, "  %s %s\n", ep.Method, ep.URL)
	}
	fmt.Fprintf(out, "Results saved to %s\n", filepath.Clean(cfg.DiscoveryDir))
	return nil
}
