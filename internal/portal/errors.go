package portal

import "errors"

// Portal errors. ErrNoRecords is the normal outcome for an unknown account;
// the others mean the portal changed or is unavailable.
var (
	// ErrNoRecords is returned when the search reports "No records to display".
	ErrNoRecords = errors.New("no records found")

	// ErrFormNotFound is returned when the search page lacks the expected form.
	ErrFormNotFound = errors.New("search form not found")

	// ErrInputNotFound is returned when the search form lacks the expected input.
	ErrInputNotFound = errors.New("search input not found")

	// ErrNoResult is returned when the results table has no usable row.
	ErrNoResult = errors.New("no result link found")

	// ErrUnexpectedStatus is returned for a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxy is returned when the proxy address is not host:port.
	ErrInvalidProxy = errors.New("invalid proxy address")

	// ErrEmptyQuery is returned when the search term is blank.
	ErrEmptyQuery = errors.New("empty search term")
)
