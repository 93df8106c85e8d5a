package domain

import "errors"

var (
	// ErrNotFound indicates no log data matched the request.
	ErrNotFound = errors.New("not found")

	// ErrConfig indicates invalid chunking, index or provider parameters.
	// It is fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrValidation indicates a request field violates a record limit.
	ErrValidation = errors.New("validation failed")

	// ErrTransient indicates a network or provider hiccup. Callers may retry.
	ErrTransient = errors.New("transient provider error")

	// ErrAuth indicates rejected provider credentials. Not retryable.
	ErrAuth = errors.New("provider authentication failed")

	// ErrContent indicates the model returned an empty, flagged or unusable answer.
	ErrContent = errors.New("unusable model output")
)
