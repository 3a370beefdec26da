// SPDX-License-Identifier: MIT

package manager

import "time"

// NoticeLevel classifies operator-facing notices.
type NoticeLevel string

const (
	NoticeInfo NoticeLevel = "info"
	NoticeWarn NoticeLevel = "warn"
)

// Notice is a human-readable event surfaced to the operator, typically a
// degraded capability during an otherwise successful start.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

const noticeRingSize = 32

func (o *Orchestrator) publishNotice(level NoticeLevel, msg string) {
	n := Notice{Level: level, Message: msg, At: time.Now()}

	o.mu.Lock()
	o.noticeLog = append(o.noticeLog, n)
	if len(o.noticeLog) > noticeRingSize {
		o.noticeLog = o.noticeLog[len(o.noticeLog)-noticeRingSize:]
	}
	o.mu.Unlock()

	select {
	case o.noticeCh <- n:
	default:
	}
}

// Notices returns the stream of operator notices. Slow consumers miss
// notices rather than blocking the orchestrator; the recent history stays
// available through Status.
func (o *Orchestrator) Notices() <-chan Notice {
	return o.noticeCh
}
