// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the chat service.
//
// Metrics cover the message exchange pipeline: request counts, stream
// durations, emitted frames, model fallback hops, and quota rejections.
// Exposed via the /metrics endpoint; use with Prometheus + Grafana.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for chat exchange metrics
const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for message exchange operations.
//
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// RequestsTotal counts exchange requests by endpoint and status.
	// Labels: endpoint (send, send_stream), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by endpoint and wire error code.
	// Labels: endpoint, code (INVALID_INPUT, DAILY_MESSAGE_LIMIT, ...)
	ErrorsTotal *prometheus.CounterVec

	// QuotaRejectionsTotal counts sends rejected before any model call
	// because the daily limit was exhausted.
	QuotaRejectionsTotal prometheus.Counter

	// ModelFallbacksTotal counts rate-limit fallback hops by model that
	// was skipped.
	ModelFallbacksTotal *prometheus.CounterVec

	// FramesTotal counts SSE frames emitted by frame type.
	// Labels: type (token, done)
	FramesTotal *prometheus.CounterVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: status (success, error)
	StreamDurationSeconds *prometheus.HistogramVec

	// TimeToFirstFrameSeconds measures latency to the first token frame.
	TimeToFirstFrameSeconds prometheus.Histogram

	// ActiveStreams tracks currently open streaming responses.
	ActiveStreams prometheus.Gauge

	// ClientDisconnectsTotal counts clients that dropped mid-stream.
	ClientDisconnectsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of ChatMetrics.
// Initialized by InitMetrics(). Nil until then; callers nil-check.
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all Prometheus metrics.
//
// Call once at application startup. Panics if called twice (duplicate
// registration on the default registry).
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total exchange requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total exchange errors by endpoint and wire error code",
			},
			[]string{"endpoint", "code"},
		),

		QuotaRejectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "quota_rejections_total",
				Help:      "Sends rejected for daily quota before any model call",
			},
		),

		ModelFallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "model_fallbacks_total",
				Help:      "Rate-limit fallback hops by skipped model",
			},
			[]string{"model"},
		),

		FramesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "frames_total",
				Help:      "SSE frames emitted by frame type",
			},
			[]string{"type"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		TimeToFirstFrameSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "time_to_first_frame_seconds",
				Help:      "Time from request to first token frame in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open streaming responses",
			},
		),

		ClientDisconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Clients that dropped during streaming",
			},
		),
	}

	return DefaultMetrics
}

// Endpoint names for metrics labeling.
type Endpoint string

const (
	EndpointSend       Endpoint = "send"
	EndpointSendStream Endpoint = "send_stream"
	EndpointManage     Endpoint = "manage"
)

// RecordRequest records a completed exchange request.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records an exchange error by wire code.
func (m *ChatMetrics) RecordError(endpoint Endpoint, code string) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), code).Inc()
}

// RecordFrame records one emitted SSE frame.
func (m *ChatMetrics) RecordFrame(frameType string) {
	m.FramesTotal.WithLabelValues(frameType).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *ChatMetrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *ChatMetrics) StreamEnded() {
	m.ActiveStreams.Dec()
}

// RecordStreamDuration records the total stream duration.
func (m *ChatMetrics) RecordStreamDuration(seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(status).Observe(seconds)
}
