// SPDX-License-Identifier: MIT
package avatar

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrSessionRejected     = errors.New("avatar provider: session rejected")
	ErrProviderUnavailable = errors.New("avatar provider: host unreachable or transport failure")
	ErrProviderError       = errors.New("avatar provider: internal error (5xx)")
	ErrBadResponse         = errors.New("avatar provider: invalid response format")
	ErrTimeout             = errors.New("avatar provider: request timed out")
)

// ProviderError wraps the sentinel errors with call context.
type ProviderError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("avatar: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Sentinel
}
