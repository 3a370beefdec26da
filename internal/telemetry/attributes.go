// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Session attributes
	SessionIDKey       = "session.id"
	SessionAvatarKey   = "session.avatar_id"
	SessionStateKey    = "session.state"
	SessionPlatformKey = "session.platforms"

	// Broadcast attributes
	BroadcastIDKey   = "broadcast.id"
	BroadcastChatKey = "broadcast.chat_channel_id"

	// Relay attributes
	RelayIngestKey = "relay.ingest_url"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SessionAttributes creates session-related span attributes.
func SessionAttributes(sessionID, avatarID, state string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if avatarID != "" {
		attrs = append(attrs, attribute.String(SessionAvatarKey, avatarID))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(SessionStateKey, state))
	}
	return attrs
}

// BroadcastAttributes creates broadcast-related span attributes.
func BroadcastAttributes(broadcastID, chatChannelID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if broadcastID != "" {
		attrs = append(attrs, attribute.String(BroadcastIDKey, broadcastID))
	}
	if chatChannelID != "" {
		attrs = append(attrs, attribute.String(BroadcastChatKey, chatChannelID))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
