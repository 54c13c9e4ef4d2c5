package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrEncoding indicates a text value that is valid under neither the
	// primary nor the fallback code page. The archive cannot be repaired.
	ErrEncoding = errors.New("undecodable text")

	// ErrMissingTable indicates a relation the pipeline needs is absent
	ErrMissingTable = errors.New("missing table")

	// ErrMissingColumn indicates a source column a derivation reads is absent
	ErrMissingColumn = errors.New("missing column")

	// ErrInvalidIdentifier indicates a table or column name that cannot be quoted safely
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUngrouped indicates leading events without a group id; statistics
	// cannot be computed until the events are regrouped
	ErrUngrouped = errors.New("leading events not grouped")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
