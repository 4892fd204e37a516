package sqlite

import "errors"

var (
	// ErrEmptyKey indicates an empty option key.
	ErrEmptyKey = errors.New("option key cannot be empty")
	// ErrInvalidRecord indicates a delivery record missing required fields.
	ErrInvalidRecord = errors.New("invalid delivery record")
)
