package model

import "errors"

var (
	// ErrInvalidWindow is returned for a malformed time range.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrInvalidBar is returned when a bar carries a non-finite price.
	ErrInvalidBar = errors.New("invalid bar")

	// ErrEmptySeries is returned when a ratio or average is taken over zero records.
	ErrEmptySeries = errors.New("empty series")
)
