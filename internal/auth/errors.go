package auth

import "errors"

// Authentication and authorization failures. Callers match them with errors.Is;
// the returned errors may wrap additional detail that must not reach clients.
var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidSignature covers malformed tokens, foreign secrets and unexpected algorithms.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpiredToken means the signature verified but exp is in the past.
	ErrExpiredToken = errors.New("expired token")
	// ErrUnknownSubject means the token names a user that no longer exists.
	ErrUnknownSubject = errors.New("unknown token subject")
	// ErrForbidden is the authorization gate's denial.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstreamLookup means the user store failed, timed out or was cancelled.
	ErrUpstreamLookup = errors.New("user lookup failed")
)
