// SPDX-License-Identifier: MIT

package receiver

import (
	"context"
	"errors"
	"testing"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeRoom struct {
	disconnected chan struct{}
}

func (f *fakeRoom) Disconnect() {
	select {
	case <-f.disconnected:
	default:
		close(f.disconnected)
	}
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{disconnected: make(chan struct{})}
}

func TestConnectResolvesWhenBothTracksArrive(t *testing.T) {
	defer goleak.VerifyNone(t)

	room := newFakeRoom()
	r := New(WithTrackTimeout(5 * time.Second))
	r.connect = func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
		require.Equal(t, "wss://media.example", url)
		require.Equal(t, "tok", token)
		g := r.gate
		go func() {
			time.Sleep(10 * time.Millisecond)
			g.markVideo()
			g.markAudio()
		}()
		return room, nil
	}

	ok, err := r.Connect(context.Background(), "wss://media.example", "tok")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, r.Connected())

	r.Disconnect()
	require.False(t, r.Connected())
	select {
	case <-room.disconnected:
	default:
		t.Fatal("room was not disconnected")
	}
}

func TestConnectDegradedOnTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	room := newFakeRoom()
	r := New(WithTrackTimeout(30 * time.Millisecond))
	r.connect = func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
		r.gate.markVideo()
		return room, nil
	}

	ok, err := r.Connect(context.Background(), "wss://media.example", "tok")
	require.NoError(t, err)
	require.True(t, ok, "video-only join must still proceed")

	r.Disconnect()
}

func TestConnectFailsWhenJoinErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New()
	r.connect = func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
		return nil, errors.New("dial refused")
	}

	ok, err := r.Connect(context.Background(), "wss://media.example", "tok")
	require.Error(t, err)
	require.False(t, ok)
	require.False(t, r.Connected())
}

func TestConnectFalseWhenDisconnectedBeforeReady(t *testing.T) {
	defer goleak.VerifyNone(t)

	room := newFakeRoom()
	r := New(WithTrackTimeout(5 * time.Second))
	r.connect = func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			cb.OnDisconnected()
		}()
		return room, nil
	}

	ok, err := r.Connect(context.Background(), "wss://media.example", "tok")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, r.Connected())
}

func TestConnectRejectsSecondJoin(t *testing.T) {
	defer goleak.VerifyNone(t)

	room := newFakeRoom()
	r := New(WithTrackTimeout(time.Second))
	r.connect = func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
		r.gate.markVideo()
		r.gate.markAudio()
		return room, nil
	}

	ok, err := r.Connect(context.Background(), "wss://a", "t")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.Connect(context.Background(), "wss://b", "t")
	require.ErrorIs(t, err, ErrAlreadyConnected)

	r.Disconnect()
}

func TestDisconnectIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New()
	r.Disconnect()
	r.Disconnect()
}
