// SPDX-License-Identifier: MIT

// Package capture turns the receiver's subscribed tracks into a combined
// outbound stream that relay peers can publish.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/media"
)

// ErrVideoNotReady is returned when capture is attempted before a video
// track was subscribed.
var ErrVideoNotReady = errors.New("capture: video track not available")

const trackStreamID = "avocast"

// Source provides the tracks to capture. *receiver.Receiver satisfies it.
type Source interface {
	VideoTrack() media.Track
	AudioTrack() media.Track
	Connected() bool
}

// Adapter builds outbound streams from a single source.
type Adapter struct {
	source Source
	logger zerolog.Logger
}

func New(source Source) *Adapter {
	return &Adapter{
		source: source,
		logger: log.WithComponent("media.capture"),
	}
}

// Capture snapshots the source's current tracks into an OutboundStream and
// starts the packet pumps. Video is mandatory, audio is forwarded when
// present. The caller owns the returned stream and must Close it.
func (a *Adapter) Capture() (*OutboundStream, error) {
	video := a.source.VideoTrack()
	if video == nil {
		return nil, ErrVideoNotReady
	}
	audio := a.source.AudioTrack()

	s := &OutboundStream{
		logger: a.logger,
		done:   make(chan struct{}),
	}

	local, err := newLocalTrack(video, "video")
	if err != nil {
		return nil, err
	}
	s.video = local
	s.pump(video, local)

	if audio != nil {
		local, err := newLocalTrack(audio, "audio")
		if err != nil {
			s.Close()
			return nil, err
		}
		s.audio = local
		s.pump(audio, local)
	} else {
		a.logger.Warn().Msg("capturing without audio")
	}

	return s, nil
}

func newLocalTrack(src media.Track, id string) (*webrtc.TrackLocalStaticRTP, error) {
	local, err := webrtc.NewTrackLocalStaticRTP(src.Codec().RTPCodecCapability, id, trackStreamID)
	if err != nil {
		return nil, fmt.Errorf("capture: create %s track: %w", id, err)
	}
	return local, nil
}

// OutboundStream is a combined audio/video stream backed by forwarding
// pumps. Tracks stay valid until Close.
type OutboundStream struct {
	logger  zerolog.Logger
	video   *webrtc.TrackLocalStaticRTP
	audio   *webrtc.TrackLocalStaticRTP
	sources []media.Track

	mu     sync.Mutex
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// Tracks returns the local tracks in publish order, video first.
func (s *OutboundStream) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, 2)
	if s.video != nil {
		tracks = append(tracks, s.video)
	}
	if s.audio != nil {
		tracks = append(tracks, s.audio)
	}
	return tracks
}

// HasAudio reports whether the stream carries an audio track.
func (s *OutboundStream) HasAudio() bool { return s.audio != nil }

func (s *OutboundStream) pump(src media.Track, dst *webrtc.TrackLocalStaticRTP) {
	s.sources = append(s.sources, src)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		kind := src.Kind().String()
		for {
			select {
			case <-s.done:
				return
			default:
			}
			pkt, err := src.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.Debug().Err(err).Str("kind", kind).Msg("track read ended")
				}
				return
			}
			if err := dst.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				s.logger.Debug().Err(err).Str("kind", kind).Msg("track write failed")
				return
			}
		}
	}()
}

// Close stops the pumps and waits for them to drain. Idempotent.
func (s *OutboundStream) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.done != nil {
		close(s.done)
	}
	s.mu.Unlock()
	for _, src := range s.sources {
		_ = src.SetReadDeadline(time.Now())
	}
	s.wg.Wait()
}
