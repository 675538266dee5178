package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whoyao/xiaozhi-esp32-server/internal/asr"
	"github.com/whoyao/xiaozhi-esp32-server/internal/config"
	"github.com/whoyao/xiaozhi-esp32-server/internal/metrics"
)

// maxRequestBody bounds one recognition upload (compressed audio).
const maxRequestBody = 16 << 20

// Recognizer runs one recognition session over ordered compressed audio
// packets.
type Recognizer interface {
	Recognize(ctx context.Context, packets [][]byte) (*asr.Result, error)
	GetStats() asr.Stats
}

// HTTPServer provides the HTTP API for recognition and monitoring
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	recognizer Recognizer
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, recognizer Recognizer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		recognizer: recognizer,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Recognition submission endpoint
	mux.HandleFunc("/api/v1/recognize", h.withMetrics("/api/v1/recognize", h.handleRecognize))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		if h.metrics == nil {
			return
		}

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleRecognize implements the POST /api/v1/recognize endpoint. The request
// body is a sequence of length-prefixed compressed audio packets, each a
// 4-byte big-endian size followed by the packet bytes.
func (h *HTTPServer) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBody {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	packets, err := splitPackets(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(packets) == 0 {
		http.Error(w, "Request body contains no audio packets", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := h.recognizer.Recognize(r.Context(), packets)
	if err != nil {
		h.writeRecognitionError(w, err)
		return
	}

	response := map[string]interface{}{
		"request_id":  result.RequestID,
		"text":        result.Text,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// splitPackets parses the length-prefixed packet framing of an upload body.
func splitPackets(body []byte) ([][]byte, error) {
	var packets [][]byte
	offset := 0
	for offset < len(body) {
		if len(body)-offset < 4 {
			return nil, fmt.Errorf("truncated packet length prefix at offset %d", offset)
		}
		size := int(binary.BigEndian.Uint32(body[offset : offset+4]))
		offset += 4
		if size > len(body)-offset {
			return nil, fmt.Errorf("packet at offset %d declares %d bytes but only %d remain",
				offset-4, size, len(body)-offset)
		}
		packets = append(packets, body[offset:offset+size])
		offset += size
	}
	return packets, nil
}

// writeRecognitionError maps session failure kinds to HTTP status codes.
func (h *HTTPServer) writeRecognitionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch asr.KindOf(err) {
	case asr.ErrorKindRemote, asr.ErrorKindDecode:
		status = http.StatusBadGateway
	case asr.ErrorKindConnection, asr.ErrorKindTransport:
		status = http.StatusGatewayTimeout
	}

	response := map[string]interface{}{
		"error": err.Error(),
		"kind":  asr.KindOf(err).String(),
	}
	if code, ok := asr.RemoteCode(err); ok {
		response["remote_code"] = code
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	stats := h.recognizer.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "asr-gateway",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"asr_client": map[string]interface{}{
				"status":         "running",
				"total_sessions": stats.TotalSessions,
				"success_rate":   stats.SuccessRate,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"asr": map[string]interface{}{
			"cluster":          h.config.ASR.Cluster,
			"url":              h.config.ASR.URL,
			"language":         h.config.ASR.Language,
			"segment_duration": h.config.ASR.SegmentDuration,
			"connect_timeout":  h.config.ASR.ConnectTimeout,
			"receive_timeout":  h.config.ASR.ReceiveTimeout,
			// Note: app_id and access_token are intentionally omitted
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
		},
		"storage": map[string]interface{}{
			"enabled":    h.config.Storage.Enabled,
			"output_dir": h.config.Storage.OutputDir,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"sessions":  h.recognizer.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "ASR Gateway Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /api/v1/recognize": "Submit length-prefixed audio packets for recognition",
			"GET /":                  "API documentation",
			"GET /health":            "Service health check",
			"GET /config":            "Get service configuration",
			"GET /stats":             "Get session statistics",
			"GET /metrics":           "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
