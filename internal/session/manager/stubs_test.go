// SPDX-License-Identifier: MIT

package manager

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/avocast/avocast/internal/avatar"
	"github.com/avocast/avocast/internal/session/model"
)

type stubCatalog struct {
	avatars map[string]*model.Avatar
	err     error
}

func (c *stubCatalog) Get(_ context.Context, id string) (*model.Avatar, error) {
	if c.err != nil {
		return nil, c.err
	}
	if av, ok := c.avatars[id]; ok {
		return av, nil
	}
	return &model.Avatar{ID: id, DisplayName: "Ava"}, nil
}

type stubProvider struct {
	mu          sync.Mutex
	startErr    error
	activateErr error
	speakErr    error
	stopErr     error

	started   int
	activated int
	stopped   int
	spoken    []string
}

func (p *stubProvider) Start(_ context.Context, _, _ string) (*avatar.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	if p.startErr != nil {
		return nil, p.startErr
	}
	return &avatar.Credentials{
		AccessToken:       "tok",
		LivekitURL:        "wss://media.test",
		ProviderSessionID: "prov-1",
	}, nil
}

func (p *stubProvider) Activate(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activated++
	return p.activateErr
}

func (p *stubProvider) Speak(_ context.Context, _, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.speakErr != nil {
		return p.speakErr
	}
	p.spoken = append(p.spoken, text)
	return nil
}

func (p *stubProvider) Stop(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	return p.stopErr
}

func (p *stubProvider) spokenLines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.spoken...)
}

func (p *stubProvider) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type stubReceiver struct {
	mu            sync.Mutex
	connectOK     bool
	connectErr    error
	connects      int
	disconnects   int
	lastURL       string
	lastToken     string
}

func (r *stubReceiver) Connect(_ context.Context, url, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	r.lastURL = url
	r.lastToken = token
	if r.connectErr != nil {
		return false, r.connectErr
	}
	return r.connectOK, nil
}

func (r *stubReceiver) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
}

type stubMedia struct {
	mu     sync.Mutex
	closed int
}

func (m *stubMedia) Tracks() []webrtc.TrackLocal { return nil }

func (m *stubMedia) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *stubMedia) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type stubCapturer struct {
	err   error
	media *stubMedia
}

func (c *stubCapturer) Capture() (OutboundMedia, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.media, nil
}

type stubRelayHandle struct {
	mu       sync.Mutex
	closed   int
	closeErr error
}

func (h *stubRelayHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return h.closeErr
}

type stubNegotiator struct {
	mu         sync.Mutex
	err        error
	handle     *stubRelayHandle
	lastIngest string
	calls      int
}

func (n *stubNegotiator) Negotiate(_ context.Context, _ []webrtc.TrackLocal, ingestURL string) (RelayHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.lastIngest = ingestURL
	if n.err != nil {
		return nil, n.err
	}
	return n.handle, nil
}

type stubBroadcaster struct {
	mu          sync.Mutex
	createErr   error
	chatErr     error
	chatID      string
	resource    *model.BroadcastResource
	created     int
	transitions []string
	transErr    error
}

func (b *stubBroadcaster) Create(_ context.Context, _, _, _ string) (*model.BroadcastResource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created++
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.resource, nil
}

func (b *stubBroadcaster) ChatChannelID(_ context.Context, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chatErr != nil {
		return "", b.chatErr
	}
	return b.chatID, nil
}

func (b *stubBroadcaster) Transition(_ context.Context, _ string, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, status)
	return b.transErr
}

func (b *stubBroadcaster) transitioned() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.transitions...)
}

type stubChat struct {
	mu      sync.Mutex
	ch      chan model.ChatMessage
	started []string
	stops   int
}

func newStubChat() *stubChat {
	return &stubChat{ch: make(chan model.ChatMessage, 16)}
}

func (c *stubChat) Start(chatChannelID, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, chatChannelID)
}

func (c *stubChat) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *stubChat) Messages() <-chan model.ChatMessage { return c.ch }

func (c *stubChat) startedWith() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.started...)
}
