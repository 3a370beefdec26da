// SPDX-License-Identifier: MIT

package manager

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/avocast/avocast/internal/avatar"
	"github.com/avocast/avocast/internal/session/model"
)

// AvatarSession drives the provider-side avatar session lifecycle.
// *avatar.Client satisfies it.
type AvatarSession interface {
	Start(ctx context.Context, avatarID, sessionID string) (*avatar.Credentials, error)
	Activate(ctx context.Context, providerSessionID string) error
	Speak(ctx context.Context, providerSessionID, text string) error
	Stop(ctx context.Context, providerSessionID string) error
}

// Catalog resolves avatar reference data. *catalog.Catalog satisfies it.
type Catalog interface {
	Get(ctx context.Context, id string) (*model.Avatar, error)
}

// Broadcaster provisions and controls remote broadcast resources.
// *broadcast.Client satisfies it.
type Broadcaster interface {
	Create(ctx context.Context, title, description, sessionID string) (*model.BroadcastResource, error)
	ChatChannelID(ctx context.Context, broadcastID string) (string, error)
	Transition(ctx context.Context, broadcastID, status string) error
}

// MediaReceiver joins the provider's media room. *receiver.Receiver
// satisfies it. Connect returns false without an error when the room
// connection dropped before media became usable.
type MediaReceiver interface {
	Connect(ctx context.Context, url, token string) (bool, error)
	Disconnect()
}

// OutboundMedia is a combined stream ready for relay publication.
type OutboundMedia interface {
	Tracks() []webrtc.TrackLocal
	Close()
}

// Capturer snapshots the receiver's tracks into an outbound stream.
type Capturer interface {
	Capture() (OutboundMedia, error)
}

// RelayHandle owns an established relay peer.
type RelayHandle interface {
	Close() error
}

// RelayNegotiator performs the WHIP exchange against an ingest endpoint.
type RelayNegotiator interface {
	Negotiate(ctx context.Context, tracks []webrtc.TrackLocal, ingestURL string) (RelayHandle, error)
}

// ChatSource delivers deduplicated chat messages. *chat.Poller satisfies
// it.
type ChatSource interface {
	Start(chatChannelID, sessionID string)
	Stop()
	Messages() <-chan model.ChatMessage
}
