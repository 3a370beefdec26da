// SPDX-License-Identifier: MIT

package receiver

import (
	"context"
	"sync"
	"time"
)

// readinessGate tracks the arrival of the audio and video tracks after a
// room join. Wait resolves as soon as both flags are set, or when the
// timeout elapses with whatever subset arrived. A slow track type therefore
// degrades the result, it never fails the join. Only an explicit failure
// (connection lost before readiness) makes Wait return ok=false.
type readinessGate struct {
	mu     sync.Mutex
	video  bool
	audio  bool
	both   chan struct{}
	failed chan struct{}
	once   sync.Once
	fonce  sync.Once
}

func newReadinessGate() *readinessGate {
	return &readinessGate{
		both:   make(chan struct{}),
		failed: make(chan struct{}),
	}
}

func (g *readinessGate) markVideo() { g.mark(func() { g.video = true }) }
func (g *readinessGate) markAudio() { g.mark(func() { g.audio = true }) }

func (g *readinessGate) mark(set func()) {
	g.mu.Lock()
	set()
	done := g.video && g.audio
	g.mu.Unlock()
	if done {
		g.once.Do(func() { close(g.both) })
	}
}

// fail aborts the wait. Safe to call multiple times.
func (g *readinessGate) fail() {
	g.fonce.Do(func() { close(g.failed) })
}

func (g *readinessGate) ready() (video, audio bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.video, g.audio
}

// wait blocks until both tracks arrived, the timeout elapsed, the gate
// failed, or the context was cancelled. ok reports whether the join should
// proceed, complete whether both track types arrived in time.
func (g *readinessGate) wait(ctx context.Context, timeout time.Duration) (ok, complete bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.both:
		return true, true
	case <-timer.C:
		v, a := g.ready()
		return true, v && a
	case <-g.failed:
		return false, false
	case <-ctx.Done():
		return false, false
	}
}
