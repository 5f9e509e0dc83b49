package engine

import "errors"

var (
	// ErrInvalidColumn is returned when the target column is not declared by the table.
	ErrInvalidColumn = errors.New("invalid column")
	// ErrMalformedRow is returned when a row lacks a declared column.
	ErrMalformedRow = errors.New("malformed row")

	ErrNoHeader          = errors.New("csv has no header row")
	ErrDuplicateColumn   = errors.New("duplicate column name")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrRowOutOfRange     = errors.New("row index out of range")
)
