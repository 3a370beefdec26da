// SPDX-License-Identifier: MIT

// Package avatar wraps the avatar-rendering provider's control API.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Credentials are the real-time media connection parameters returned when a
// provider-side session is created.
type Credentials struct {
	AccessToken       string `json:"access_token"`
	LivekitURL        string `json:"livekit_url"`
	ProviderSessionID string `json:"provider_session_id"`
}

// Client is a thin RPC wrapper around the avatar provider.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// New creates a provider client for the given base URL.
func New(base, apiKey string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Start creates a provider-side session for the avatar and returns real-time
// media credentials. Failures here are fatal to the start sequence.
func (c *Client) Start(ctx context.Context, avatarID, sessionID string) (*Credentials, error) {
	var out struct {
		Error string `json:"error,omitempty"`
		Credentials
	}
	if err := c.post(ctx, "session.start", "/v1/sessions", map[string]string{
		"avatar_id":  avatarID,
		"session_id": sessionID,
	}, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ProviderError{Sentinel: ErrSessionRejected, Operation: "session.start", Body: out.Error}
	}
	if out.AccessToken == "" || out.LivekitURL == "" {
		return nil, &ProviderError{Sentinel: ErrBadResponse, Operation: "session.start", Body: "missing media credentials"}
	}
	return &out.Credentials, nil
}

// Activate switches the provider session into its producing state. Must be
// called before joining the media room; a room joined pre-activation never
// publishes tracks.
func (c *Client) Activate(ctx context.Context, sessionID string) error {
	return c.simpleCall(ctx, "session.activate", "/v1/sessions/"+sessionID+"/activate", nil)
}

// Speak instructs the rendered avatar to speak the given text.
func (c *Client) Speak(ctx context.Context, sessionID, text string) error {
	return c.simpleCall(ctx, "session.speak", "/v1/sessions/"+sessionID+"/speak", map[string]string{
		"text": text,
	})
}

// Stop terminates the provider session. Safe to call on an already-terminated
// session; the provider treats it as a no-op.
func (c *Client) Stop(ctx context.Context, sessionID string) error {
	return c.simpleCall(ctx, "session.stop", "/v1/sessions/"+sessionID+"/stop", nil)
}

func (c *Client) simpleCall(ctx context.Context, op, path string, body map[string]string) error {
	var out struct {
		Error string `json:"error,omitempty"`
	}
	if err := c.post(ctx, op, path, body, &out); err != nil {
		return err
	}
	if out.Error != "" {
		return &ProviderError{Sentinel: ErrSessionRejected, Operation: op, Body: out.Error}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &ProviderError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, payload)
	if err != nil {
		return &ProviderError{Sentinel: ErrProviderUnavailable, Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &ProviderError{Sentinel: ErrTimeout, Operation: op, Err: err}
		}
		return &ProviderError{Sentinel: ErrProviderUnavailable, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= 500 {
		return &ProviderError{Sentinel: ErrProviderError, Operation: op, Status: res.StatusCode, Body: readSnippet(res.Body)}
	}
	if res.StatusCode >= 400 {
		return &ProviderError{Sentinel: ErrSessionRejected, Operation: op, Status: res.StatusCode, Body: readSnippet(res.Body)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &ProviderError{Sentinel: ErrBadResponse, Operation: op, Err: err}
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
