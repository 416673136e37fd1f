package database

import (
	"fmt"
	"strings"
)

// Driver identifies a database backend.
type Driver string

const (
	// DriverSQLite is the embedded SQLite backend.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres is the PostgreSQL backend.
	DriverPostgres Driver = "postgres"
)

// DSN is a parsed DATABASE_URL.
type DSN struct {
	Driver Driver
	// Target is the SQLite file path or the PostgreSQL connection URL.
	Target string
}

// ParseDSN classifies a DATABASE_URL. SQLAlchemy style driver suffixes such as
// "postgresql+asyncpg://" and "sqlite+aiosqlite:///" are accepted so an
// existing .env keeps working.
//
//	postgres://u:p@host/db        -> postgres
//	sqlite:///bills.db            -> sqlite, "bills.db"
//	sqlite:////var/lib/bills.db   -> sqlite, "/var/lib/bills.db"
//	file:bills.db, ./bills.db     -> sqlite
func ParseDSN(raw string) (DSN, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DSN{}, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	}

	scheme, rest, hasScheme := strings.Cut(raw, "://")
	if !hasScheme {
		return DSN{Driver: DriverSQLite, Target: strings.TrimPrefix(raw, "file:")}, nil
	}

	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	switch base {
	case "postgres", "postgresql":
		return DSN{Driver: DriverPostgres, Target: "postgres://" + rest}, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return DSN{}, fmt.Errorf("%w: missing sqlite path", ErrUnsupportedDSN)
		}
		return DSN{Driver: DriverSQLite, Target: path}, nil
	default:
		return DSN{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedDSN, scheme)
	}
}
