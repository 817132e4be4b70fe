// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the service's Prometheus metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Routing metrics
	routingDecisionsTotal *prometheus.CounterVec
	handoffsTotal         *prometheus.CounterVec

	// Tool metrics
	toolInvocationsTotal   *prometheus.CounterVec
	toolInvocationDuration *prometheus.HistogramVec

	// Reasoning backend metrics
	reasoningRequestsTotal   *prometheus.CounterVec
	reasoningRequestDuration *prometheus.HistogramVec
	reasoningTokensUsed      *prometheus.CounterVec

	// Session store metrics
	turnsAppendedTotal  *prometheus.CounterVec
	activeConversations *prometheus.GaugeVec

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCollector creates a collector registering under namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP metrics
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Routing metrics
	c.routingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total number of triage routing decisions",
		},
		[]string{"team", "outcome"}, // outcome: routed, clarify, unavailable
	)

	c.handoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Total number of agent handoffs",
		},
		[]string{"team", "from_agent", "to_agent"},
	)

	// Tool metrics
	c.toolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"tool", "status"}, // status: ok, error, denied
	)

	c.toolInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_invocation_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	// Reasoning backend metrics
	c.reasoningRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_requests_total",
			Help:      "Total number of reasoning backend requests",
		},
		[]string{"model", "status"},
	)

	c.reasoningRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoning_request_duration_seconds",
			Help:      "Reasoning backend request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	c.reasoningTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"model", "type"}, // type: prompt, completion
	)

	// Session store metrics
	c.turnsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_appended_total",
			Help:      "Total number of turns appended to conversations",
		},
		[]string{"team", "role"},
	)

	c.activeConversations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of conversations currently held by the store",
		},
		[]string{"store"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordHTTPRequest records an HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordRoutingDecision records one triage routing outcome.
func (c *Collector) RecordRoutingDecision(team, outcome string) {
	c.routingDecisionsTotal.WithLabelValues(team, outcome).Inc()
}

// RecordHandoff records a completed agent handoff.
func (c *Collector) RecordHandoff(team, fromAgent, toAgent string) {
	c.handoffsTotal.WithLabelValues(team, fromAgent, toAgent).Inc()
}

// RecordToolInvocation records a tool dispatch outcome.
func (c *Collector) RecordToolInvocation(tool, status string, duration time.Duration) {
	c.toolInvocationsTotal.WithLabelValues(tool, status).Inc()
	c.toolInvocationDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordReasoningRequest records a reasoning backend call.
func (c *Collector) RecordReasoningRequest(model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.reasoningRequestsTotal.WithLabelValues(model, status).Inc()
	c.reasoningRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	c.reasoningTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	c.reasoningTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordTurnAppended records a turn persisted to a conversation.
func (c *Collector) RecordTurnAppended(team, role string) {
	c.turnsAppendedTotal.WithLabelValues(team, role).Inc()
}

// SetActiveConversations records the store's current conversation count.
func (c *Collector) SetActiveConversations(store string, count int) {
	c.activeConversations.WithLabelValues(store).Set(float64(count))
}

// statusCode buckets an HTTP status code.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
