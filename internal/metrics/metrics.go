// Package metrics exposes the Prometheus instrumentation of the chat
// engine. Collectors are scoped to a registerer so tests can use
// isolated registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the engine's collectors.
type Set struct {
	TurnsTotal      *prometheus.CounterVec
	ToolInvocations *prometheus.CounterVec
	FallbackRetries prometheus.Counter
	CompressionRuns *prometheus.CounterVec
	StreamChunks    prometheus.Counter
	TurnDuration    prometheus.Histogram
}

// New registers the collector set on reg. A nil registerer yields an
// inert set registered nowhere (still safe to increment).
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amrita_turns_total",
			Help: "Chat turns by outcome (completed, failed, cancelled).",
		}, []string{"outcome"}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amrita_tool_invocations_total",
			Help: "Tool invocations by tool name.",
		}, []string{"tool"}),
		FallbackRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amrita_fallback_retries_total",
			Help: "Adapter fallback retries.",
		}),
		CompressionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amrita_compression_runs_total",
			Help: "Memory compression runs by outcome (ok, error).",
		}, []string{"outcome"}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amrita_stream_chunks_total",
			Help: "Chunks delivered to turn consumers.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amrita_turn_duration_seconds",
			Help:    "Wall time of one chat turn.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(s.TurnsTotal, s.ToolInvocations, s.FallbackRetries,
			s.CompressionRuns, s.StreamChunks, s.TurnDuration)
	}
	return s
}
