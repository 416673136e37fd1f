package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrBrowserNotFound is returned when no Chrome or Chromium executable exists.
var ErrBrowserNotFound = errors.New("headless browser not found")

// Candidates are the executable names searched in PATH, in order.
var Candidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// LookPathFunc resolves an executable name; exec.LookPath in production.
type LookPathFunc func(file string) (string, error)

// Locate returns the browser executable. An explicit path must exist;
// otherwise the candidates are searched with lookPath.
func Locate(explicit string, lookPath LookPathFunc) (string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		if p, err := lookPath(explicit); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBrowserNotFound, explicit)
	}
	for _, name := range Candidates {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v (set BROWSER_PATH)", ErrBrowserNotFound, Candidates)
}
