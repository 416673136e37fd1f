// Package browser drives a headless Chrome through chromedp.
//
// It locates the browser executable for the setup command, takes full page
// screenshots, and runs the portal discovery: load the municipality page
// and the utility search page, record every network request, and flag the
// ones that look like data endpoints. The bill lookups themselves use plain
// HTTP (see package portal); the browser is only needed to study the portal
// when its pages change.
package browser
