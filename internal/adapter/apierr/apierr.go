// Package apierr maps failures of OpenAI-compatible HTTP APIs onto the
// domain error taxonomy.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"unicode/utf8"

	"qalog/internal/domain"
)

const maxBodyPreview = 200

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: request canceled: %w", provider, err)
	}
	if IsTimeout(err) {
		return fmt.Errorf("%s: request timed out: %w: %w", provider, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: request failed: %w: %w", provider, domain.ErrTransient, err)
}

// FromStatus classifies a non-200 response. message is the provider's error
// message if one could be decoded, otherwise a preview of the body.
func FromStatus(provider string, status int, message string) error {
	message = truncate(message, maxBodyPreview)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, message, domain.ErrAuth)
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, message, domain.ErrTransient)
	default:
		return fmt.Errorf("%s: status %d: %s", provider, status, message)
	}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
