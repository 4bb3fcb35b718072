package errors

import (
	"errors"
)

// Common error types
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmptyPhrase  = errors.New("empty phrase")
	ErrBadArgument  = errors.New("bad argument")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)
