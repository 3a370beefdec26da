// SPDX-License-Identifier: MIT

// Package whip publishes an outbound stream to a WHIP ingest endpoint
// (RFC 9725 style offer/answer over HTTP).
package whip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/metrics"
)

// ErrRelayRejected is returned when the ingest endpoint answers with a
// non-success status. Callers treat this as a degraded broadcast, not a
// fatal session error.
var ErrRelayRejected = errors.New("whip: ingest rejected offer")

// ErrNoTracks is returned when negotiation is attempted with nothing to
// publish.
var ErrNoTracks = errors.New("whip: no tracks to publish")

// DefaultGatherTimeout bounds ICE candidate gathering before the offer is
// sent with whatever candidates were collected.
const DefaultGatherTimeout = 5 * time.Second

const defaultSTUNServer = "stun:stun.l.google.com:19302"

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithHTTPClient overrides the HTTP client used for signaling.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Negotiator) {
		if c != nil {
			n.http = c
		}
	}
}

// WithICEServers replaces the default STUN configuration.
func WithICEServers(servers []webrtc.ICEServer) Option {
	return func(n *Negotiator) { n.iceServers = servers }
}

// WithGatherTimeout overrides the ICE gathering bound.
func WithGatherTimeout(d time.Duration) Option {
	return func(n *Negotiator) {
		if d > 0 {
			n.gatherTimeout = d
		}
	}
}

// WithBearerToken sends an Authorization header with the offer.
func WithBearerToken(token string) Option {
	return func(n *Negotiator) { n.token = token }
}

// Negotiator performs WHIP offer/answer exchanges.
type Negotiator struct {
	http          *http.Client
	iceServers    []webrtc.ICEServer
	gatherTimeout time.Duration
	token         string
	logger        zerolog.Logger
}

func New(opts ...Option) *Negotiator {
	n := &Negotiator{
		http:          &http.Client{Timeout: 15 * time.Second},
		iceServers:    []webrtc.ICEServer{{URLs: []string{defaultSTUNServer}}},
		gatherTimeout: DefaultGatherTimeout,
		logger:        log.WithComponent("whip"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Negotiate builds a sendonly peer connection for the given tracks, runs
// the offer/answer exchange against ingestURL and returns a handle that
// tears the peer down. Any failure leaves no peer connection behind.
func (n *Negotiator) Negotiate(ctx context.Context, tracks []webrtc.TrackLocal, ingestURL string) (*PeerHandle, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	if _, err := url.ParseRequestURI(ingestURL); err != nil {
		return nil, fmt.Errorf("whip: invalid ingest url: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: n.iceServers})
	if err != nil {
		return nil, fmt.Errorf("whip: create peer connection: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = pc.Close()
		}
	}()

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			return nil, fmt.Errorf("whip: add %s track: %w", track.Kind(), err)
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("whip: create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("whip: set local description: %w", err)
	}

	// Bounded gathering: a slow TURN/STUN path must not stall the start
	// sequence, the offer goes out with the candidates collected so far.
	select {
	case <-gathered:
	case <-time.After(n.gatherTimeout):
		n.logger.Debug().Dur("timeout", n.gatherTimeout).Msg("ice gathering cut short")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	local := pc.LocalDescription()
	if local == nil {
		return nil, errors.New("whip: no local description after gathering")
	}

	answer, resource, err := n.exchange(ctx, ingestURL, local.SDP)
	if err != nil {
		metrics.IncRelayNegotiation(false)
		return nil, err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		metrics.IncRelayNegotiation(false)
		return nil, fmt.Errorf("whip: set remote description: %w", err)
	}

	metrics.IncRelayNegotiation(true)
	n.logger.Info().Str(log.FieldIngestURL, ingestURL).Msg("relay negotiated")
	ok = true
	return &PeerHandle{pc: pc, resource: resource, http: n.http, token: n.token, logger: n.logger}, nil
}

// exchange POSTs the offer SDP and returns the answer SDP plus the WHIP
// resource URL from the Location header, when the server provides one.
func (n *Negotiator) exchange(ctx context.Context, ingestURL, offerSDP string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ingestURL, strings.NewReader(offerSDP))
	if err != nil {
		return "", "", fmt.Errorf("whip: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("whip: post offer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("whip: read answer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn().Int("status", resp.StatusCode).Str(log.FieldIngestURL, ingestURL).Msg("ingest rejected offer")
		return "", "", fmt.Errorf("%w: status %d", ErrRelayRejected, resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", "", errors.New("whip: empty answer")
	}

	resource := ""
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := req.URL.Parse(loc); err == nil {
			resource = u.String()
		}
	}
	return string(body), resource, nil
}

// PeerHandle owns a negotiated peer connection.
type PeerHandle struct {
	pc       *webrtc.PeerConnection
	resource string
	http     *http.Client
	token    string
	logger   zerolog.Logger
}

// Resource returns the WHIP resource URL, or empty when the server did not
// provide one.
func (h *PeerHandle) Resource() string { return h.resource }

// Close deletes the WHIP resource when known and closes the peer
// connection.
func (h *PeerHandle) Close() error {
	if h == nil || h.pc == nil {
		return nil
	}
	if h.resource != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.resource, nil)
		if err == nil {
			if h.token != "" {
				req.Header.Set("Authorization", "Bearer "+h.token)
			}
			if resp, err := h.http.Do(req); err == nil {
				resp.Body.Close()
			} else {
				h.logger.Debug().Err(err).Msg("whip resource delete failed")
			}
		}
	}
	return h.pc.Close()
}
