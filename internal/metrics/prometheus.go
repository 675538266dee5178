// Package metrics defines the Prometheus instrumentation for the ASR service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ASR service.
type Metrics struct {
	// Audio pipeline metrics
	OpusPacketsDecoded prometheus.Counter
	OpusDecodeErrors   prometheus.Counter
	ContainerDuration  prometheus.Histogram

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsSucceeded prometheus.Counter
	SessionsFailed    *prometheus.CounterVec
	SessionDuration   prometheus.Histogram

	// Streaming metrics
	ChunksSent prometheus.Counter
	ChunkSize  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		OpusPacketsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_opus_packets_decoded_total",
			Help: "Total number of Opus packets successfully decoded",
		}),
		OpusDecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_opus_decode_errors_total",
			Help: "Total number of Opus packets dropped due to decode errors",
		}),
		ContainerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_container_duration_seconds",
			Help:    "Duration of the audio containers submitted for recognition",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),

		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_sessions_started_total",
			Help: "Total number of recognition sessions started",
		}),
		SessionsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_sessions_succeeded_total",
			Help: "Total number of recognition sessions that completed successfully",
		}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_sessions_failed_total",
			Help: "Total number of failed recognition sessions",
		}, []string{"kind"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_session_duration_seconds",
			Help:    "Wall-clock duration of recognition sessions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		ChunksSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_audio_chunks_sent_total",
			Help: "Total number of audio chunks streamed to the service",
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_audio_chunk_size_bytes",
			Help:    "Size of streamed audio chunks before compression",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPacketsDecoded records the outcome of one packet-decoding pass.
func (m *Metrics) RecordPacketsDecoded(decoded, dropped int) {
	m.OpusPacketsDecoded.Add(float64(decoded))
	m.OpusDecodeErrors.Add(float64(dropped))
}

// RecordContainerDuration records the audio length of a session container.
func (m *Metrics) RecordContainerDuration(seconds float64) {
	m.ContainerDuration.Observe(seconds)
}

// RecordSessionStarted increments the sessions started counter.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordSessionSucceeded records a completed session and its duration.
func (m *Metrics) RecordSessionSucceeded(durationSeconds float64) {
	m.SessionsSucceeded.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionFailed records a failed session with its failure kind.
func (m *Metrics) RecordSessionFailed(kind string, durationSeconds float64) {
	m.SessionsFailed.WithLabelValues(kind).Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordChunkSent records one streamed audio chunk.
func (m *Metrics) RecordChunkSent(sizeBytes int) {
	m.ChunksSent.Inc()
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
