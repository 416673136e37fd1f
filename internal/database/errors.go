package database

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAccount is returned when an active property already tracks the account number.
	ErrDuplicateAccount = errors.New("account is already being tracked")

	// ErrDatabaseNotFound is returned when a SQLite file is missing and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrUnsupportedDSN is returned for a DATABASE_URL with an unknown scheme.
	ErrUnsupportedDSN = errors.New("unsupported database URL")
)
