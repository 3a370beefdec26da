// SPDX-License-Identifier: MIT
package avatar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartReturnsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/sessions", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "avatar-1", body["avatar_id"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":        "tok",
			"livekit_url":         "wss://media.example.com",
			"provider_session_id": "prov-1",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	creds, err := c.Start(context.Background(), "avatar-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.AccessToken)
	assert.Equal(t, "wss://media.example.com", creds.LivekitURL)
	assert.Equal(t, "prov-1", creds.ProviderSessionID)
}

func TestStartErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "avatar busy"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Start(context.Background(), "avatar-1", "sess-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionRejected)
	assert.Contains(t, err.Error(), "avatar busy")
}

func TestStartMissingCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"provider_session_id": "prov-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Start(context.Background(), "avatar-1", "sess-1")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"client error", http.StatusUnprocessableEntity, ErrSessionRejected},
		{"server error", http.StatusBadGateway, ErrProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := New(srv.URL, "")
			err := c.Activate(context.Background(), "sess-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSpeakPostsText(t *testing.T) {
	var gotPath, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body["text"]
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	require.NoError(t, c.Speak(context.Background(), "sess-1", "hello chat"))
	assert.Equal(t, "/v1/sessions/sess-1/speak", gotPath)
	assert.Equal(t, "hello chat", gotText)
}

func TestTransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	err := c.Stop(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
