// SPDX-License-Identifier: MIT

// Package chat ingests live chat messages for an active broadcast.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avocast/avocast/internal/broadcast"
	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/metrics"
	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/types"
)

const (
	// DefaultInterval is used when the platform does not suggest one.
	DefaultInterval = 5 * time.Second

	// ErrorRetryInterval spaces out retries after a failed fetch.
	ErrorRetryInterval = 15 * time.Second

	fetchTimeout = 10 * time.Second
	bufferSize   = 256
)

// Fetcher is the slice of the platform client the poller needs.
type Fetcher interface {
	Chat(ctx context.Context, chatChannelID, pageToken string) (*broadcast.ChatPage, error)
}

// Poller incrementally fetches new chat messages for an active broadcast,
// deduplicating by message ID. The feed may redeliver messages across pages.
type Poller struct {
	fetcher  Fetcher
	platform types.PlatformID
	logger   zerolog.Logger

	defaultInterval time.Duration
	errorInterval   time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	running   bool
	seen      map[string]struct{}
	pageToken string
	chatID    string
	sessionID string
	cancel    context.CancelFunc

	out chan model.ChatMessage
}

// Option configures a Poller.
type Option func(*Poller)

// WithIntervals overrides the default and error-retry intervals.
func WithIntervals(normal, onError time.Duration) Option {
	return func(p *Poller) {
		p.defaultInterval = normal
		p.errorInterval = onError
	}
}

// New creates a poller over the given fetcher.
func New(fetcher Fetcher, platform types.PlatformID, opts ...Option) *Poller {
	p := &Poller{
		fetcher:         fetcher,
		platform:        platform,
		logger:          log.WithComponent("chat-poller"),
		defaultInterval: DefaultInterval,
		errorInterval:   ErrorRetryInterval,
		out:             make(chan model.ChatMessage, bufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Messages is the poller's output stream. Messages are emitted at-most-once
// per platform-scoped ID for the lifetime of one Start/Stop cycle.
func (p *Poller) Messages() <-chan model.ChatMessage {
	return p.out
}

// Start begins polling the given chat channel. Calling Start on a running
// poller restarts it against the new channel.
func (p *Poller) Start(chatChannelID, sessionID string) {
	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.running = true
	p.seen = make(map[string]struct{})
	p.pageToken = ""
	p.chatID = chatChannelID
	p.sessionID = sessionID
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info().
		Str(log.FieldChatID, chatChannelID).
		Str(log.FieldSessionID, sessionID).
		Msg("chat polling started")

	go p.tick(ctx)
}

// Stop cancels polling and any pending scheduled tick. Idempotent; after Stop
// returns no further tick will fire.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.logger.Info().Str(log.FieldChatID, p.chatID).Msg("chat polling stopped")
}

func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	chatID := p.chatID
	token := p.pageToken
	p.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	page, err := p.fetcher.Chat(fetchCtx, chatID, token)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncChatFetch(false)
		p.logger.Warn().Err(err).Str(log.FieldChatID, chatID).Msg("chat fetch failed, backing off")
		p.schedule(ctx, p.errorInterval)
		return
	}

	metrics.IncChatFetch(true)
	p.deliver(page)

	interval := p.defaultInterval
	if page.PollingIntervalMillis > 0 {
		interval = time.Duration(page.PollingIntervalMillis) * time.Millisecond
	}

	p.mu.Lock()
	if page.NextPageToken != "" {
		p.pageToken = page.NextPageToken
	}
	p.mu.Unlock()

	p.schedule(ctx, interval)
}

func (p *Poller) deliver(page *broadcast.ChatPage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	for _, item := range page.Items {
		if _, dup := p.seen[item.ID]; dup {
			metrics.IncChatDuplicate()
			continue
		}
		p.seen[item.ID] = struct{}{}

		msg := model.ChatMessage{
			ID:        item.ID,
			Author:    item.Author,
			Text:      item.Text,
			Platform:  p.platform,
			Timestamp: item.PublishedAt,
		}
		select {
		case p.out <- msg:
			metrics.IncChatMessage(string(p.platform))
		default:
			// Consumer stalled; dropping beats blocking the poll loop.
			p.logger.Warn().Str("message_id", item.ID).Msg("chat buffer full, dropping message")
		}
	}
}

func (p *Poller) schedule(ctx context.Context, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || ctx.Err() != nil {
		return
	}
	p.timer = time.AfterFunc(d, func() { p.tick(ctx) })
}
