// Package observability holds the Prometheus instrumentation of the
// gateway. Collectors register on the default registry; the HTTP layer
// exposes them under /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts completed chat turns by provider and execution
	// strategy.
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aifoundry_chat_turns_total",
		Help: "Completed chat turns by provider and execution strategy.",
	}, []string{"provider", "strategy"})

	// ChatTurnFailures counts failed chat turns by provider and error type.
	ChatTurnFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aifoundry_chat_turn_failures_total",
		Help: "Failed chat turns by provider and error type.",
	}, []string{"provider", "error_type"})

	// ChatTurnDuration observes end-to-end turn latency per provider.
	ChatTurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aifoundry_chat_turn_duration_seconds",
		Help:    "End-to-end chat turn latency by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// ToolDispatches counts executed tool calls by tool name.
	ToolDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aifoundry_tool_dispatches_total",
		Help: "Executed tool calls by tool name.",
	}, []string{"tool"})
)
