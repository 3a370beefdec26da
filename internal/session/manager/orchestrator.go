// SPDX-License-Identifier: MIT

// Package manager orchestrates the live session lifecycle: provider
// session, media room, relay publication, broadcast provisioning and chat
// consumption, driven by a strict state machine.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avocast/avocast/internal/broadcast"
	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/metrics"
	"github.com/avocast/avocast/internal/session/fsm"
	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/session/store"
	"github.com/avocast/avocast/internal/telemetry"
	"github.com/avocast/avocast/internal/types"
)

var (
	// ErrSessionActive is returned by Start while another session is not
	// yet fully torn down.
	ErrSessionActive = errors.New("manager: a session is already active")

	// ErrNoActiveSession is returned by operations that need a live
	// session.
	ErrNoActiveSession = errors.New("manager: no active session")

	// ErrAvatarRequired is returned when Start is called without an
	// avatar.
	ErrAvatarRequired = errors.New("manager: avatar id required")

	// ErrNoPlatforms is returned when Start is called with an empty
	// platform list.
	ErrNoPlatforms = errors.New("manager: at least one platform required")
)

// Defaults for the tunable settle delays.
const (
	// DefaultCaptureSettleDelay gives the decoder a moment to produce
	// stable frames before the outbound stream is snapshotted.
	DefaultCaptureSettleDelay = 3 * time.Second

	// DefaultOpeningLineDelay is how long after go-live the avatar speaks
	// its opening line.
	DefaultOpeningLineDelay = 2 * time.Second
)

const commentRingSize = 200

// Orchestrator drives one live session at a time. Fill the exported
// fields, then call Init once before use.
type Orchestrator struct {
	Store    store.Store
	Avatars  Catalog
	Provider AvatarSession
	Receiver MediaReceiver
	Capture  Capturer
	Relay    RelayNegotiator

	// Broadcast and Chat are optional; without them, platforms that need
	// a provisioned broadcast resource degrade to relay-only output.
	Broadcast Broadcaster
	Chat      ChatSource

	// IngestURL is the relay ingest used when no platform-issued ingest
	// is available.
	IngestURL string

	CaptureSettleDelay time.Duration
	OpeningLineDelay   time.Duration

	machine  *fsm.Machine[types.SessionState, lifecycleEvent]
	logger   zerolog.Logger
	tracer   trace.Tracer
	noticeCh chan Notice

	// opMu serializes Start and Stop. mu guards the snapshot state below
	// and is never held across a collaborator call.
	opMu      sync.Mutex
	mu        sync.Mutex
	current   *activeSession
	noticeLog []Notice
}

// activeSession is the in-flight resource set of one session. Fields are
// populated in start order so rollback can sweep whatever exists.
type activeSession struct {
	record            *model.LiveSession
	avatar            *model.Avatar
	providerSessionID string
	broadcast         *model.BroadcastResource
	media             OutboundMedia
	relay             RelayHandle
	chatStarted       bool

	stop        chan struct{}
	consumeDone chan struct{}
	wg          sync.WaitGroup

	mu       sync.Mutex
	comments []model.ChatMessage
}

// Init validates the wiring, applies defaults and prepares the lifecycle
// machine. Must be called once before Start or Stop.
func (o *Orchestrator) Init() error {
	if o.Store == nil {
		return errors.New("manager: Store must be set")
	}
	if o.Provider == nil {
		return errors.New("manager: Provider must be set")
	}
	if o.Receiver == nil {
		return errors.New("manager: Receiver must be set")
	}
	if o.Capture == nil {
		return errors.New("manager: Capture must be set")
	}
	if o.Relay == nil {
		return errors.New("manager: Relay must be set")
	}
	if o.CaptureSettleDelay <= 0 {
		o.CaptureSettleDelay = DefaultCaptureSettleDelay
	}
	if o.OpeningLineDelay <= 0 {
		o.OpeningLineDelay = DefaultOpeningLineDelay
	}

	m, err := newLifecycleMachine()
	if err != nil {
		return err
	}
	o.machine = m
	o.logger = log.WithComponent("session.manager")
	o.tracer = telemetry.Tracer("avocast/session")
	o.noticeCh = make(chan Notice, noticeRingSize)
	return nil
}

// startError tags a fatal start failure with the step it failed on.
type startError struct {
	step string
	err  error
}

func (e *startError) Error() string { return e.step + ": " + e.err.Error() }
func (e *startError) Unwrap() error { return e.err }

// StartResult is the outcome of a successful start, possibly degraded.
type StartResult struct {
	Session  *model.LiveSession `json:"session"`
	WatchURL string             `json:"watch_url,omitempty"`
}

// Start runs the full start sequence and blocks until the session is live
// or the sequence failed. On a fatal failure every resource provisioned so
// far is rolled back and the session record is deleted; the caller sees a
// single error. Degraded capabilities (no broadcast resource, no relay)
// do not fail the start, they surface as notices and capability flags.
func (o *Orchestrator) Start(ctx context.Context, avatarID string, platforms []types.PlatformID) (*StartResult, error) {
	if avatarID == "" {
		return nil, ErrAvatarRequired
	}
	if len(platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for _, p := range platforms {
		if !p.IsValid() {
			return nil, fmt.Errorf("manager: unknown platform %q", p)
		}
	}

	ctx, span := o.tracer.Start(ctx, "session.start",
		trace.WithAttributes(attribute.String(telemetry.SessionAvatarKey, avatarID)))
	defer span.End()

	o.opMu.Lock()
	defer o.opMu.Unlock()

	if _, err := o.machine.Fire(ctx, eventStart); err != nil {
		span.RecordError(ErrSessionActive)
		return nil, ErrSessionActive
	}

	began := time.Now()
	s := &activeSession{stop: make(chan struct{})}

	// Notices describe the current session only.
	o.mu.Lock()
	o.noticeLog = nil
	o.current = s
	o.mu.Unlock()

	if err := o.runStart(ctx, s, avatarID, platforms); err != nil {
		var se *startError
		reason := "start"
		if errors.As(err, &se) {
			reason = se.step
		}
		o.logger.Error().Err(err).
			Str(log.FieldAvatarID, avatarID).
			Str(log.FieldStep, reason).
			Msg("start sequence failed, rolling back")
		o.rollback(s)
		_, _ = o.machine.Fire(ctx, eventFail)
		_, _ = o.machine.Fire(ctx, eventReset)
		o.setCurrent(nil)
		metrics.IncSessionStart(false, reason)
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(reason)...)
		return nil, err
	}

	if _, err := o.machine.Fire(ctx, eventGoLive); err != nil {
		// Unreachable while opMu is held; treat like any fatal failure.
		o.rollback(s)
		o.setCurrent(nil)
		return nil, err
	}

	metrics.IncSessionStart(true, "ok")
	metrics.ObserveSessionStartDuration(time.Since(began))
	o.logger.Info().
		Str(log.FieldSessionID, s.record.ID).
		Str(log.FieldAvatarID, avatarID).
		Dur("elapsed", time.Since(began)).
		Msg("session live")

	o.afterLive(s)

	span.SetAttributes(telemetry.SessionAttributes(s.record.ID, avatarID, string(types.SessionStateLive))...)
	if bid, cid := s.broadcastIDs(); bid != "" {
		span.SetAttributes(telemetry.BroadcastAttributes(bid, cid)...)
	}

	return &StartResult{Session: s.snapshotRecord(), WatchURL: s.watchURL()}, nil
}

// runStart executes the fatal part of the start sequence. Degraded steps
// handle their own errors and never return one.
func (o *Orchestrator) runStart(ctx context.Context, s *activeSession, avatarID string, platforms []types.PlatformID) error {
	av, err := o.lookupAvatar(ctx, avatarID)
	if err != nil {
		return &startError{step: "catalog", err: err}
	}
	s.avatar = av

	record := &model.LiveSession{
		ID:        uuid.NewString(),
		AvatarID:  avatarID,
		Platforms: platforms,
		Status:    types.SessionStateStarting,
		StartedAt: time.Now(),
	}
	if err := o.Store.Create(ctx, record); err != nil {
		return &startError{step: "store", err: err}
	}
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()

	o.provisionBroadcast(ctx, s)

	creds, err := o.Provider.Start(ctx, avatarID, record.ID)
	if err != nil {
		return &startError{step: "provider_start", err: err}
	}
	s.mu.Lock()
	s.providerSessionID = creds.ProviderSessionID
	s.mu.Unlock()

	if err := o.Provider.Activate(ctx, creds.ProviderSessionID); err != nil {
		return &startError{step: "provider_activate", err: err}
	}

	ok, err := o.Receiver.Connect(ctx, creds.LivekitURL, creds.AccessToken)
	if err != nil {
		return &startError{step: "media_join", err: err}
	}
	if !ok {
		return &startError{step: "media_join", err: errors.New("media connection lost before tracks arrived")}
	}

	o.establishRelay(ctx, s)

	if err := o.Store.MarkLive(ctx, record.ID, time.Now()); err != nil {
		o.logger.Warn().Err(err).Str(log.FieldSessionID, record.ID).Msg("failed to persist live status")
	}
	s.mu.Lock()
	record.Status = types.SessionStateLive
	s.mu.Unlock()

	return nil
}

func (o *Orchestrator) lookupAvatar(ctx context.Context, avatarID string) (*model.Avatar, error) {
	if o.Avatars == nil {
		return &model.Avatar{ID: avatarID}, nil
	}
	return o.Avatars.Get(ctx, avatarID)
}

// provisionBroadcast creates the remote broadcast resource when any target
// platform needs one. Failure degrades the session instead of aborting it.
func (o *Orchestrator) provisionBroadcast(ctx context.Context, s *activeSession) {
	needed := false
	for _, p := range s.record.Platforms {
		if p.NeedsBroadcastResource() {
			needed = true
			break
		}
	}
	if !needed {
		return
	}
	if o.Broadcast == nil {
		o.publishNotice(NoticeWarn, "broadcast platform not configured, continuing relay-only")
		return
	}

	title := s.avatar.DisplayName
	if title == "" {
		title = s.record.AvatarID
	}
	res, err := o.Broadcast.Create(ctx, title+" live", "Live session "+s.record.ID, s.record.ID)
	if err != nil {
		o.logger.Warn().Err(err).Str(log.FieldSessionID, s.record.ID).Msg("broadcast provisioning failed")
		o.publishNotice(NoticeWarn, "broadcast provisioning failed, continuing relay-only")
		return
	}
	s.mu.Lock()
	s.broadcast = res
	s.record.BroadcastActive = true
	s.mu.Unlock()
	o.logger.Info().
		Str(log.FieldSessionID, s.record.ID).
		Str(log.FieldBroadcastID, res.BroadcastID).
		Str(log.FieldWatchURL, res.WatchURL).
		Msg("broadcast provisioned")
}

// establishRelay captures the outbound stream and negotiates the relay
// peer. Any failure leaves the session live without relay output.
func (o *Orchestrator) establishRelay(ctx context.Context, s *activeSession) {
	select {
	case <-time.After(o.CaptureSettleDelay):
	case <-ctx.Done():
		return
	}

	media, err := o.Capture.Capture()
	if err != nil {
		o.logger.Warn().Err(err).Str(log.FieldSessionID, s.record.ID).Msg("media capture failed")
		o.publishNotice(NoticeWarn, "media capture unavailable, session continues without relay")
		return
	}

	ingest := o.IngestURL
	if s.broadcast != nil && s.broadcast.IngestURL != "" {
		ingest = s.broadcast.IngestURL
	}
	if ingest == "" {
		media.Close()
		o.publishNotice(NoticeWarn, "no ingest endpoint configured, session continues without relay")
		return
	}

	relay, err := o.Relay.Negotiate(ctx, media.Tracks(), ingest)
	if err != nil {
		media.Close()
		o.logger.Warn().Err(err).
			Str(log.FieldSessionID, s.record.ID).
			Str(log.FieldIngestURL, ingest).
			Msg("relay negotiation failed")
		o.publishNotice(NoticeWarn, "relay negotiation failed, session continues without relay")
		return
	}

	s.media = media
	s.relay = relay
	s.mu.Lock()
	s.record.RelayActive = true
	s.mu.Unlock()
}

// afterLive runs the post-live steps: broadcast transition, chat polling
// and the opening line. All degraded, none can fail the session.
func (o *Orchestrator) afterLive(s *activeSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.broadcast != nil && o.Broadcast != nil {
		if err := o.Broadcast.Transition(ctx, s.broadcast.BroadcastID, broadcast.StatusLive); err != nil {
			o.logger.Warn().Err(err).Str(log.FieldBroadcastID, s.broadcast.BroadcastID).Msg("broadcast transition to live failed")
		}

		if o.Chat != nil {
			chatID, err := o.Broadcast.ChatChannelID(ctx, s.broadcast.BroadcastID)
			if err != nil {
				o.logger.Warn().Err(err).Str(log.FieldBroadcastID, s.broadcast.BroadcastID).Msg("chat channel unavailable")
				o.publishNotice(NoticeWarn, "chat unavailable for this session")
			} else {
				s.mu.Lock()
				s.broadcast.ChatChannelID = chatID
				s.mu.Unlock()
				o.Chat.Start(chatID, s.record.ID)
				s.chatStarted = true
				s.consumeDone = make(chan struct{})
				go o.consumeChat(s)
			}
		}
	}

	if line := s.avatar.OpeningLine; line != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-time.After(o.OpeningLineDelay):
				o.speak(s, line)
			case <-s.stop:
			}
		}()
	}
}

func (o *Orchestrator) speak(s *activeSession, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.Provider.Speak(ctx, s.providerSessionID, text); err != nil {
		o.logger.Warn().Err(err).Str(log.FieldSessionID, s.record.ID).Msg("avatar speak failed")
	}
}

// consumeChat drains the chat source into the session's comment ring.
func (o *Orchestrator) consumeChat(s *activeSession) {
	defer close(s.consumeDone)
	for {
		select {
		case msg, ok := <-o.Chat.Messages():
			if !ok {
				return
			}
			s.mu.Lock()
			s.comments = append(s.comments, msg)
			if len(s.comments) > commentRingSize {
				s.comments = s.comments[len(s.comments)-commentRingSize:]
			}
			s.record.CommentCount++
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Stop tears the current session down. It is idempotent and safe to call
// in any state; every teardown step runs even when earlier ones fail.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	s := o.currentSession()
	if s == nil || !o.machine.Can(eventStop) {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "session.stop",
		trace.WithAttributes(telemetry.SessionAttributes(s.record.ID, s.record.AvatarID, string(o.machine.State()))...))
	defer span.End()

	if _, err := o.machine.Fire(ctx, eventStop); err != nil {
		return nil
	}

	o.logger.Info().Str(log.FieldSessionID, s.record.ID).Msg("stopping session")
	o.teardown(s, true)

	_, _ = o.machine.Fire(ctx, eventStopped)
	_, _ = o.machine.Fire(ctx, eventReset)
	o.setCurrent(nil)
	o.logger.Info().Str(log.FieldSessionID, s.record.ID).Msg("session ended")
	return nil
}

// teardown is the shared sweep for Stop and rollback. markEnded selects
// whether the record is finalized or deleted.
func (o *Orchestrator) teardown(s *activeSession, markEnded bool) {
	close(s.stop)
	s.wg.Wait()
	if s.chatStarted {
		o.runStep("chat_stop", func() error {
			o.Chat.Stop()
			return nil
		})
		<-s.consumeDone
	}

	if markEnded && s.providerSessionID != "" && s.avatar != nil {
		if line := s.avatar.ClosingLine; line != "" {
			o.speak(s, line)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if s.broadcast != nil && o.Broadcast != nil {
		o.runStep("broadcast_complete", func() error {
			return o.Broadcast.Transition(ctx, s.broadcast.BroadcastID, broadcast.StatusComplete)
		})
	}
	if s.relay != nil {
		o.runStep("relay_close", s.relay.Close)
	}
	if s.media != nil {
		o.runStep("capture_close", func() error {
			s.media.Close()
			return nil
		})
	}
	o.runStep("media_disconnect", func() error {
		o.Receiver.Disconnect()
		return nil
	})
	if s.providerSessionID != "" {
		o.runStep("provider_stop", func() error {
			return o.Provider.Stop(ctx, s.providerSessionID)
		})
	}

	if s.record != nil {
		if markEnded {
			// Persist final counters first, then the terminal status.
			o.runStep("store_update", func() error {
				s.mu.Lock()
				rec := *s.record
				s.mu.Unlock()
				return o.Store.Update(ctx, &rec)
			})
			o.runStep("store_mark_ended", func() error {
				now := time.Now()
				s.mu.Lock()
				s.record.Status = types.SessionStateEnded
				s.record.EndedAt = &now
				s.mu.Unlock()
				return o.Store.MarkEnded(ctx, s.record.ID, now)
			})
		} else {
			// A session that never went live leaves no record behind.
			o.runStep("store_delete", func() error {
				return o.Store.Delete(ctx, s.record.ID)
			})
		}
	}
}

// rollback unwinds a failed start, including an already-provisioned
// broadcast resource, and deletes the session record.
func (o *Orchestrator) rollback(s *activeSession) {
	o.teardown(s, false)
}

func (o *Orchestrator) runStep(step string, fn func() error) {
	if err := fn(); err != nil {
		o.logger.Warn().Err(err).Str(log.FieldStep, step).Msg("teardown step failed")
		metrics.IncTeardownFailure(step)
	}
}

// Speak makes the live avatar speak the given text.
func (o *Orchestrator) Speak(ctx context.Context, text string) error {
	o.mu.Lock()
	s := o.current
	o.mu.Unlock()
	if s == nil || o.machine.State() != types.SessionStateLive {
		return ErrNoActiveSession
	}
	s.mu.Lock()
	psid := s.providerSessionID
	s.mu.Unlock()
	return o.Provider.Speak(ctx, psid, text)
}

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	State    types.SessionState  `json:"state"`
	Session  *model.LiveSession  `json:"session,omitempty"`
	WatchURL string              `json:"watch_url,omitempty"`
	Notices  []Notice            `json:"notices,omitempty"`
	Comments []model.ChatMessage `json:"comments,omitempty"`
}

// Status reports the current state without blocking on an in-flight start
// or stop.
func (o *Orchestrator) Status() Status {
	st := Status{State: o.machine.State()}

	o.mu.Lock()
	s := o.current
	st.Notices = append(st.Notices, o.noticeLog...)
	o.mu.Unlock()

	if s != nil {
		st.Session = s.snapshotRecord()
		st.Comments = s.snapshotComments()
		st.WatchURL = s.watchURL()
	}
	return st
}

func (o *Orchestrator) setCurrent(s *activeSession) {
	o.mu.Lock()
	o.current = s
	o.mu.Unlock()
}

func (o *Orchestrator) currentSession() *activeSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (s *activeSession) snapshotRecord() *model.LiveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	rec := *s.record
	rec.Platforms = append([]types.PlatformID(nil), s.record.Platforms...)
	if s.record.EndedAt != nil {
		t := *s.record.EndedAt
		rec.EndedAt = &t
	}
	return &rec
}

func (s *activeSession) broadcastIDs() (broadcastID, chatChannelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broadcast == nil {
		return "", ""
	}
	return s.broadcast.BroadcastID, s.broadcast.ChatChannelID
}

func (s *activeSession) watchURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broadcast == nil {
		return ""
	}
	return s.broadcast.WatchURL
}

func (s *activeSession) snapshotComments() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.comments...)
}
