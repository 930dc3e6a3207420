package service

import "errors"

var (
	// ErrInvalidInput wraps request validation failures; the message is safe to show.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLookupFailed indicates the user store could not be queried.
	ErrLookupFailed = errors.New("user lookup failed")
)
