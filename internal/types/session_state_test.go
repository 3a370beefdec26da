// SPDX-License-Identifier: MIT
package types

import (
	"encoding/json"
	"testing"
)

func TestSessionStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  bool
	}{
		{"idle", SessionStateIdle, true},
		{"starting", SessionStateStarting, true},
		{"live", SessionStateLive, true},
		{"stopping", SessionStateStopping, true},
		{"ended", SessionStateEnded, true},
		{"error", SessionStateError, true},
		{"empty", SessionState(""), false},
		{"unknown", SessionState("paused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   SessionState
		to     SessionState
		want   bool
	}{
		{"idle to starting", SessionStateIdle, SessionStateStarting, true},
		{"starting to live", SessionStateStarting, SessionStateLive, true},
		{"starting to error", SessionStateStarting, SessionStateError, true},
		{"starting to stopping", SessionStateStarting, SessionStateStopping, true},
		{"live to stopping", SessionStateLive, SessionStateStopping, true},
		{"stopping to ended", SessionStateStopping, SessionStateEnded, true},
		{"ended to idle", SessionStateEnded, SessionStateIdle, true},
		{"error to idle", SessionStateError, SessionStateIdle, true},
		{"live to starting rejected", SessionStateLive, SessionStateStarting, false},
		{"idle to live rejected", SessionStateIdle, SessionStateLive, false},
		{"error to live rejected", SessionStateError, SessionStateLive, false},
		{"ended to starting rejected", SessionStateEnded, SessionStateStarting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSessionStateJSONRoundTrip(t *testing.T) {
	for _, state := range AllSessionStates() {
		data, err := json.Marshal(state)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", state, err)
		}
		var decoded SessionState
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if decoded != state {
			t.Errorf("round trip = %s, want %s", decoded, state)
		}
	}
}

func TestSessionStateUnmarshalRejectsUnknown(t *testing.T) {
	var s SessionState
	if err := json.Unmarshal([]byte(`"paused"`), &s); err == nil {
		t.Error("expected error for unknown state, got nil")
	}
}

func TestPlatformNeedsBroadcastResource(t *testing.T) {
	if !PlatformYouTube.NeedsBroadcastResource() {
		t.Error("youtube should need a broadcast resource")
	}
	for _, p := range []PlatformID{PlatformTikTok, PlatformInstagram, PlatformTwitch} {
		if p.NeedsBroadcastResource() {
			t.Errorf("%s should not need a broadcast resource", p)
		}
	}
}

func TestParsePlatformID(t *testing.T) {
	if _, err := ParsePlatformID("youtube"); err != nil {
		t.Errorf("ParsePlatformID(youtube): %v", err)
	}
	if _, err := ParsePlatformID("myspace"); err == nil {
		t.Error("expected error for unknown platform, got nil")
	}
}
