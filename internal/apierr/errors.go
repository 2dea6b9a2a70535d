// Package apierr defines the error taxonomy for the transcription service
// boundary and classifies raw API errors into it.
//
// Usage pattern: wrap sentinels with context at call site using fmt.Errorf:
//
//	return fmt.Errorf("chunk %d: %w", index, apierr.ErrRateLimit)
//
// This preserves errors.Is() compatibility while adding context.
package apierr

import "errors"

// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
var ErrRateLimit = errors.New("rate limit exceeded")

// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrTimeout indicates a request timed out or the server failed transiently (retryable).
var ErrTimeout = errors.New("request timeout")

// ErrAuthFailed indicates API authentication failed (invalid key, not retryable).
var ErrAuthFailed = errors.New("authentication failed")

// ErrBadRequest indicates the service rejected the request as invalid (not retryable).
var ErrBadRequest = errors.New("invalid request")
