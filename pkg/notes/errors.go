package notes

import "errors"

// Errors returned by Service operations. Anything else is an internal failure.
var (
	ErrNotFound     = errors.New("note not found")
	ErrTitleTaken   = errors.New("note with this title already exists")
	ErrInvalidInput = errors.New("invalid input")
)
