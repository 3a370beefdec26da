// SPDX-License-Identifier: MIT
package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID   = "session_id"
	FieldRequestID   = "request_id"
	FieldAvatarID    = "avatar_id"
	FieldBroadcastID = "broadcast_id"
	FieldChatID      = "chat_id"

	// Process fields
	FieldComponent = "component"
	FieldStep      = "step"
	FieldPlatform  = "platform"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Network fields
	FieldIngestURL = "ingest_url"
	FieldWatchURL  = "watch_url"
	FieldBaseURL   = "base_url"
)
