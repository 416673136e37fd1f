// Package database stores properties, water bills, scrape runs, Telegram
// users and tenants.
//
// One SQL implementation serves two backends selected by the DSN:
//   - SQLite (modernc.org/sqlite, CGO-free) for a bare path or sqlite:// URL.
//     This is the default, a single file under the XDG data directory.
//   - PostgreSQL (jackc/pgx/v5 pool) for postgres:// and postgresql:// URLs.
//
// Queries are written once with "?" placeholders and rebound for PostgreSQL.
// Money is stored as integer cents, calendar dates as ISO dates and
// timestamps as fixed-width UTC strings so they sort correctly in SQLite.
package database
