// SPDX-License-Identifier: MIT

// Package receiver joins the avatar provider's media room and exposes the
// subscribed tracks to the capture pipeline.
package receiver

import (
	"context"
	"errors"
	"sync"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/media"
	"github.com/avocast/avocast/internal/metrics"
)

// ErrAlreadyConnected is returned when Connect is called on a receiver that
// still holds a room connection.
var ErrAlreadyConnected = errors.New("receiver: already connected")

// DefaultTrackTimeout bounds how long Connect waits for both track types
// before proceeding with whatever arrived.
const DefaultTrackTimeout = 10 * time.Second

// Sink renders a subscribed track for local monitoring. Implementations
// must tolerate Detach for tracks that were never attached.
type Sink interface {
	Attach(track *webrtc.TrackRemote) error
	Detach(kind webrtc.RTPCodecType)
}

// NopSink discards everything. It is the default when no monitor is wired.
type NopSink struct{}

func (NopSink) Attach(*webrtc.TrackRemote) error { return nil }
func (NopSink) Detach(webrtc.RTPCodecType)       {}

// Option configures a Receiver.
type Option func(*Receiver)

// WithTrackTimeout overrides the readiness timeout.
func WithTrackTimeout(d time.Duration) Option {
	return func(r *Receiver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSink attaches a local monitoring sink.
func WithSink(s Sink) Option {
	return func(r *Receiver) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithNotice registers a callback for operator-facing notices, such as a
// monitoring sink that refuses playback.
func WithNotice(fn func(msg string)) Option {
	return func(r *Receiver) { r.notice = fn }
}

// connector abstracts the room join so tests can run without a server.
type connector func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error)

type roomHandle interface {
	Disconnect()
}

func livekitConnect(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
	return lksdk.ConnectToRoomWithToken(url, token, cb, lksdk.WithAutoSubscribe(true))
}

// Receiver manages a single room connection at a time.
type Receiver struct {
	timeout time.Duration
	sink    Sink
	notice  func(string)
	connect connector
	logger  zerolog.Logger

	mu         sync.Mutex
	room       roomHandle
	gate       *readinessGate
	video      media.Track
	audio      media.Track
	sinkWarned bool
}

func New(opts ...Option) *Receiver {
	r := &Receiver{
		timeout: DefaultTrackTimeout,
		sink:    NopSink{},
		connect: livekitConnect,
		logger:  log.WithComponent("media.receiver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect joins the room and waits for media to arrive. It returns true
// when the session can proceed, which includes the degraded case where only
// one track type showed up within the timeout. It returns false without an
// error when the connection dropped before any media was usable.
func (r *Receiver) Connect(ctx context.Context, url, token string) (bool, error) {
	r.mu.Lock()
	if r.room != nil {
		r.mu.Unlock()
		return false, ErrAlreadyConnected
	}
	gate := newReadinessGate()
	r.gate = gate
	r.sinkWarned = false
	r.mu.Unlock()

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   r.onTrackSubscribed,
			OnTrackUnsubscribed: r.onTrackUnsubscribed,
		},
		OnDisconnected: func() {
			r.logger.Warn().Msg("room connection lost")
			gate.fail()
		},
	}

	start := time.Now()
	room, err := r.connect(url, token, cb)
	if err != nil {
		r.clear()
		return false, err
	}
	r.mu.Lock()
	r.room = room
	r.mu.Unlock()

	ok, complete := gate.wait(ctx, r.timeout)
	metrics.ObserveTrackReady(complete, time.Since(start))
	if !ok {
		r.Disconnect()
		return false, nil
	}
	v, a := gate.ready()
	r.logger.Info().
		Bool("video", v).
		Bool("audio", a).
		Dur("elapsed", time.Since(start)).
		Msg("media ready")
	return true, nil
}

func (r *Receiver) onTrackSubscribed(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, _ *lksdk.RemoteParticipant) {
	r.mu.Lock()
	gate := r.gate
	switch track.Kind() {
	case webrtc.RTPCodecTypeVideo:
		r.video = media.WrapRemote(track)
	case webrtc.RTPCodecTypeAudio:
		r.audio = media.WrapRemote(track)
	}
	warned := r.sinkWarned
	r.mu.Unlock()

	r.logger.Debug().Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("track subscribed")

	if err := r.sink.Attach(track); err != nil && !warned {
		r.mu.Lock()
		r.sinkWarned = true
		r.mu.Unlock()
		r.logger.Warn().Err(err).Msg("local monitor rejected track")
		if r.notice != nil {
			r.notice("local monitoring unavailable, broadcast is unaffected")
		}
	}

	if gate != nil {
		switch track.Kind() {
		case webrtc.RTPCodecTypeVideo:
			gate.markVideo()
		case webrtc.RTPCodecTypeAudio:
			gate.markAudio()
		}
	}
}

func (r *Receiver) onTrackUnsubscribed(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, _ *lksdk.RemoteParticipant) {
	r.mu.Lock()
	switch track.Kind() {
	case webrtc.RTPCodecTypeVideo:
		r.video = nil
	case webrtc.RTPCodecTypeAudio:
		r.audio = nil
	}
	r.mu.Unlock()

	r.sink.Detach(track.Kind())
	r.logger.Debug().Str("kind", track.Kind().String()).Msg("track unsubscribed")
}

// VideoTrack returns the current remote video track, or nil.
func (r *Receiver) VideoTrack() media.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.video
}

// AudioTrack returns the current remote audio track, or nil.
func (r *Receiver) AudioTrack() media.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.audio
}

// Connected reports whether a room connection is held.
func (r *Receiver) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room != nil
}

// Disconnect leaves the room. Safe to call when not connected.
func (r *Receiver) Disconnect() {
	r.mu.Lock()
	room := r.room
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		gate.fail()
	}
	if room != nil {
		room.Disconnect()
	}
	r.clear()
}

func (r *Receiver) clear() {
	r.mu.Lock()
	r.room = nil
	r.gate = nil
	r.video = nil
	r.audio = nil
	r.mu.Unlock()
}
