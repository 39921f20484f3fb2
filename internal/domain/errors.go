package domain

import "errors"

// Common domain errors
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrNoFilename = errors.New("url does not contain a filename")
)
