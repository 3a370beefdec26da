// SPDX-License-Identifier: MIT
package types

import (
	"encoding/json"
	"fmt"
)

// PlatformID identifies a distribution target for a live session.
type PlatformID string

// Known platform identifiers. PlatformYouTube is the only target that needs a
// provisioned broadcast resource before ingest; the others are reached through
// the multi-platform relay alone.
const (
	PlatformYouTube   PlatformID = "youtube"
	PlatformTikTok    PlatformID = "tiktok"
	PlatformInstagram PlatformID = "instagram"
	PlatformTwitch    PlatformID = "twitch"
)

// String implements fmt.Stringer.
func (p PlatformID) String() string {
	return string(p)
}

// IsValid checks whether the platform identifier is known.
func (p PlatformID) IsValid() bool {
	switch p {
	case PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformTwitch:
		return true
	default:
		return false
	}
}

// NeedsBroadcastResource reports whether the platform requires a remote
// broadcast resource to be provisioned before the stream reaches it.
func (p PlatformID) NeedsBroadcastResource() bool {
	return p == PlatformYouTube
}

// MarshalJSON implements json.Marshaler.
func (p PlatformID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PlatformID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	id := PlatformID(str)
	if !id.IsValid() {
		return fmt.Errorf("invalid platform id: %q", str)
	}
	*p = id
	return nil
}

// ParsePlatformID parses a string into a PlatformID.
func ParsePlatformID(s string) (PlatformID, error) {
	id := PlatformID(s)
	if !id.IsValid() {
		return "", fmt.Errorf("invalid platform id: %q", s)
	}
	return id, nil
}

// AllPlatformIDs returns all defined platform identifiers.
func AllPlatformIDs() []PlatformID {
	return []PlatformID{PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformTwitch}
}
