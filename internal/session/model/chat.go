// SPDX-License-Identifier: MIT
package model

import (
	"time"

	"github.com/avocast/avocast/internal/types"
)

// ChatMessage is one ingested chat entry. ID is platform-scoped and used for
// de-duplication; messages are held in memory for the session's lifetime only.
type ChatMessage struct {
	ID        string           `json:"id"`
	Author    string           `json:"author"`
	Text      string           `json:"text"`
	Platform  types.PlatformID `json:"platform"`
	Timestamp time.Time        `json:"timestamp"`
	Reply     string           `json:"reply,omitempty"`
}
