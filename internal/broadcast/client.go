// SPDX-License-Identifier: MIT

// Package broadcast manages the transient broadcast resource on the one
// platform that requires provisioning before ingest, and exposes its live
// chat feed.
package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avocast/avocast/internal/session/model"
)

// Status values accepted by Transition.
const (
	StatusLive     = "live"
	StatusComplete = "complete"
)

// Chat channel provisioning can lag broadcast creation on the remote side.
// Attempts are capped so a platform that never provisions one cannot spin
// the start sequence forever.
const (
	chatIDMaxAttempts = 5
	chatIDBaseBackoff = 500 * time.Millisecond
)

// ChatItem is one raw chat message as returned by the platform.
type ChatItem struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

// ChatPage is one page of the chat feed.
type ChatPage struct {
	Items                 []ChatItem `json:"items"`
	NextPageToken         string     `json:"next_page_token,omitempty"`
	PollingIntervalMillis int64      `json:"polling_interval_millis,omitempty"`
}

// Client is a thin, idempotent wrapper around the platform control-plane API.
type Client struct {
	base        string
	apiKey      string
	http        *http.Client
	limiter     *rate.Limiter
	chatBackoff time.Duration
}

// New creates a platform client. Outbound calls are rate limited to stay
// inside the platform's API quota.
func New(base, apiKey string) *Client {
	return &Client{
		base:        strings.TrimRight(base, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
		chatBackoff: chatIDBaseBackoff,
	}
}

// Create provisions a broadcast resource for the session. The caller treats
// failure as non-fatal: the rest of the stream proceeds without this platform.
func (c *Client) Create(ctx context.Context, title, description, sessionID string) (*model.BroadcastResource, error) {
	var out struct {
		Error string `json:"error,omitempty"`
		model.BroadcastResource
	}
	err := c.call(ctx, http.MethodPost, "broadcast.create", "/broadcasts", map[string]string{
		"title":       title,
		"description": description,
		"session_id":  sessionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &PlatformError{Sentinel: ErrRejected, Operation: "broadcast.create", Body: out.Error}
	}
	if out.BroadcastID == "" || out.IngestURL == "" {
		return nil, &PlatformError{Sentinel: ErrBadResponse, Operation: "broadcast.create", Body: "missing broadcast identifiers"}
	}
	res := out.BroadcastResource
	return &res, nil
}

// ChatChannelID fetches the chat channel for a broadcast, retrying with
// backoff while the platform is still provisioning it. Attempts are capped.
func (c *Client) ChatChannelID(ctx context.Context, broadcastID string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= chatIDMaxAttempts; attempt++ {
		id, err := c.chatChannelIDOnce(ctx, broadcastID)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = &PlatformError{Sentinel: ErrChatNotProvisioned, Operation: "broadcast.details"}
		}

		select {
		case <-time.After(time.Duration(attempt) * c.chatBackoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *Client) chatChannelIDOnce(ctx context.Context, broadcastID string) (string, error) {
	var out struct {
		Error         string `json:"error,omitempty"`
		ChatChannelID string `json:"chat_channel_id,omitempty"`
	}
	err := c.call(ctx, http.MethodGet, "broadcast.details", "/broadcasts/"+broadcastID, nil, &out)
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", &PlatformError{Sentinel: ErrRejected, Operation: "broadcast.details", Body: out.Error}
	}
	return out.ChatChannelID, nil
}

// Chat fetches one page of the live chat feed.
func (c *Client) Chat(ctx context.Context, chatChannelID, pageToken string) (*ChatPage, error) {
	path := "/chats/" + chatChannelID + "/messages"
	if pageToken != "" {
		path += "?page_token=" + pageToken
	}
	var out struct {
		Error string `json:"error,omitempty"`
		ChatPage
	}
	if err := c.call(ctx, http.MethodGet, "chat.fetch", path, nil, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &PlatformError{Sentinel: ErrRejected, Operation: "chat.fetch", Body: out.Error}
	}
	page := out.ChatPage
	return &page, nil
}

// Transition moves the broadcast to the given lifecycle status. Idempotent:
// transitioning an already-complete broadcast is not an error.
func (c *Client) Transition(ctx context.Context, broadcastID, status string) error {
	var out struct {
		Error string `json:"error,omitempty"`
	}
	err := c.call(ctx, http.MethodPost, "broadcast.transition", "/broadcasts/"+broadcastID+"/transition", map[string]string{
		"status": status,
	}, &out)
	if err != nil {
		return err
	}
	if out.Error != "" && !strings.Contains(out.Error, "already") {
		return &PlatformError{Sentinel: ErrRejected, Operation: "broadcast.transition", Body: out.Error}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, op, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &PlatformError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return &PlatformError{Sentinel: ErrPlatformUnavailable, Operation: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &PlatformError{Sentinel: ErrPlatformUnavailable, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return &PlatformError{Sentinel: ErrNotFound, Operation: op, Status: res.StatusCode}
	case res.StatusCode >= 500:
		return &PlatformError{Sentinel: ErrPlatformError, Operation: op, Status: res.StatusCode, Body: readSnippet(res.Body)}
	case res.StatusCode >= 400:
		return &PlatformError{Sentinel: ErrRejected, Operation: op, Status: res.StatusCode, Body: readSnippet(res.Body)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &PlatformError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	return nil
}

func readSnippet(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
