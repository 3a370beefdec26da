// SPDX-License-Identifier: MIT

// Package types provides type-safe enumerations and constants for avocast.
//
// This package centralizes all typed constants, enums, and state types
// to prevent string-based bugs and improve code maintainability.
package types

import (
	"encoding/json"
	"fmt"
)

// SessionState represents the current state of a live broadcast session.
type SessionState string

// Session state constants define all possible states of a live session.
const (
	// SessionStateIdle indicates no session is active.
	SessionStateIdle SessionState = "idle"

	// SessionStateStarting indicates the start sequence is in progress.
	SessionStateStarting SessionState = "starting"

	// SessionStateLive indicates the session is broadcasting.
	SessionStateLive SessionState = "live"

	// SessionStateStopping indicates teardown is in progress.
	SessionStateStopping SessionState = "stopping"

	// SessionStateEnded indicates the session finished cleanly.
	SessionStateEnded SessionState = "ended"

	// SessionStateError indicates the start sequence failed and is rolling back.
	SessionStateError SessionState = "error"
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	return string(s)
}

// IsValid checks whether the session state is valid.
func (s SessionState) IsValid() bool {
	switch s {
	case SessionStateIdle, SessionStateStarting, SessionStateLive,
		SessionStateStopping, SessionStateEnded, SessionStateError:
		return true
	default:
		return false
	}
}

// IsActive checks whether the session holds live resources.
func (s SessionState) IsActive() bool {
	switch s {
	case SessionStateStarting, SessionStateLive, SessionStateStopping:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks whether this state can transition to the target state.
//
// Valid transitions:
//   - Idle → Starting
//   - Starting → Live, Stopping, Error
//   - Live → Stopping
//   - Stopping → Ended
//   - Ended → Idle
//   - Error → Idle (rollback complete)
//
// Live → Starting is deliberately absent: a new session must pass through Idle.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	switch s {
	case SessionStateIdle:
		return target == SessionStateStarting
	case SessionStateStarting:
		return target == SessionStateLive || target == SessionStateStopping || target == SessionStateError
	case SessionStateLive:
		return target == SessionStateStopping
	case SessionStateStopping:
		return target == SessionStateEnded
	case SessionStateEnded, SessionStateError:
		return target == SessionStateIdle
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SessionState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state := SessionState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid session state: %q", str)
	}

	*s = state
	return nil
}

// ParseSessionState parses a string into a SessionState.
func ParseSessionState(s string) (SessionState, error) {
	state := SessionState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid session state: %q", s)
	}
	return state, nil
}

// AllSessionStates returns all defined session states.
func AllSessionStates() []SessionState {
	return []SessionState{
		SessionStateIdle,
		SessionStateStarting,
		SessionStateLive,
		SessionStateStopping,
		SessionStateEnded,
		SessionStateError,
	}
}
