// SPDX-License-Identifier: MIT

// Package media holds the small shared abstractions between the real-time
// receiver and the capture pipeline.
package media

import (
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Track is a readable RTP media track. It narrows *webrtc.TrackRemote to
// what the capture pipeline needs, so tests can substitute scripted tracks.
type Track interface {
	ID() string
	Codec() webrtc.RTPCodecParameters
	Kind() webrtc.RTPCodecType
	ReadRTP() (*rtp.Packet, error)
	// SetReadDeadline interrupts a blocked ReadRTP.
	SetReadDeadline(t time.Time) error
}

type remoteTrack struct {
	t *webrtc.TrackRemote
}

// WrapRemote adapts a subscribed remote track to the Track interface.
func WrapRemote(t *webrtc.TrackRemote) Track {
	if t == nil {
		return nil
	}
	return &remoteTrack{t: t}
}

func (r *remoteTrack) ID() string                       { return r.t.ID() }
func (r *remoteTrack) Codec() webrtc.RTPCodecParameters { return r.t.Codec() }
func (r *remoteTrack) Kind() webrtc.RTPCodecType        { return r.t.Kind() }

func (r *remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := r.t.ReadRTP()
	return pkt, err
}

func (r *remoteTrack) SetReadDeadline(t time.Time) error {
	return r.t.SetReadDeadline(t)
}
