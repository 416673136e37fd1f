// Package refresh scrapes the current bill of every tracked property.
//
// Each property goes through a Pipeline of steps: look the account up on the
// portal, copy the address and owner it reports onto the property, then
// record a bill snapshot. A BatchProcessor runs the pipelines with a
// concurrency limit and a politeness delay, and the Refresher ties a batch
// to a scrape log so every run is recorded, including failed ones.
package refresh
