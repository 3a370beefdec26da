// SPDX-License-Identifier: MIT
package broadcast

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("broadcast platform: resource not found")
	ErrRejected            = errors.New("broadcast platform: request rejected")
	ErrPlatformUnavailable = errors.New("broadcast platform: host unreachable or transport failure")
	ErrPlatformError       = errors.New("broadcast platform: internal error (5xx)")
	ErrBadResponse         = errors.New("broadcast platform: invalid response format")
	ErrChatNotProvisioned  = errors.New("broadcast platform: chat channel not provisioned")
)

// PlatformError wraps the sentinel errors with call context.
type PlatformError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *PlatformError) Error() string {
	msg := fmt.Sprintf("broadcast: %s: %v", e.Operation, e.Sentinel)
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

func (e *PlatformError) Unwrap() error {
	return e.Sentinel
}
