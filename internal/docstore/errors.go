package docstore

import "errors"

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid field path")
)
