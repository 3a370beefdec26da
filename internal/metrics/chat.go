// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatFetchTotal tracks chat feed fetch outcomes.
	ChatFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avocast_chat_fetch_total",
		Help: "Total number of chat feed fetches by result",
	}, []string{"result"})

	// ChatMessagesTotal counts emitted chat messages by platform.
	ChatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avocast_chat_messages_total",
		Help: "Total number of chat messages emitted by platform",
	}, []string{"platform"})

	// ChatDuplicatesTotal counts messages dropped by deduplication.
	ChatDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avocast_chat_duplicates_total",
		Help: "Total number of redelivered chat messages dropped",
	})
)

// IncChatFetch records a chat fetch outcome.
func IncChatFetch(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	ChatFetchTotal.WithLabelValues(result).Inc()
}

// IncChatMessage records one emitted chat message.
func IncChatMessage(platform string) {
	ChatMessagesTotal.WithLabelValues(platform).Inc()
}

// IncChatDuplicate records one deduplicated message.
func IncChatDuplicate() {
	ChatDuplicatesTotal.Inc()
}
