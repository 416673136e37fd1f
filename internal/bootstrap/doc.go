// Package bootstrap prepares a working environment for the bot: it checks
// prerequisites, creates the data directory, applies the database schema,
// locates the headless browser, writes .env from its template and creates
// the output directories.
//
// Every step is idempotent. A second run reports each step as skipped or
// done and never overwrites an existing .env.
package bootstrap
