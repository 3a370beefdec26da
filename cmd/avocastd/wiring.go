// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/avocast/avocast/internal/media/capture"
	"github.com/avocast/avocast/internal/session/manager"
	"github.com/avocast/avocast/internal/whip"
)

// captureSource adapts *capture.Adapter to the orchestrator's Capturer
// port. The indirection exists because the adapter returns its concrete
// stream type.
type captureSource struct {
	adapter *capture.Adapter
}

func (c captureSource) Capture() (manager.OutboundMedia, error) {
	stream, err := c.adapter.Capture()
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// relaySource adapts *whip.Negotiator to the orchestrator's
// RelayNegotiator port.
type relaySource struct {
	negotiator *whip.Negotiator
}

func (r relaySource) Negotiate(ctx context.Context, tracks []webrtc.TrackLocal, ingestURL string) (manager.RelayHandle, error) {
	handle, err := r.negotiator.Negotiate(ctx, tracks, ingestURL)
	if err != nil {
		return nil, err
	}
	return handle, nil
}
