package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whoyao/xiaozhi-esp32-server/internal/audio"
	"github.com/whoyao/xiaozhi-esp32-server/internal/metrics"
	"github.com/whoyao/xiaozhi-esp32-server/internal/protocol"
)

// Defaults for the fixed service constants.
const (
	DefaultURL             = "wss://openspeech.bytedance.com/api/v2/asr"
	DefaultLanguage        = "zh-CN"
	DefaultSuccessCode     = 1000
	DefaultSegmentDuration = 15 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultReceiveTimeout  = 30 * time.Second
)

// Config is the immutable per-client configuration. Zero values of the
// optional fields are replaced with the documented defaults by NewClient.
type Config struct {
	AppID       string
	Cluster     string
	AccessToken string

	URL      string
	Language string

	// SegmentDuration is the amount of audio carried by one streamed chunk.
	SegmentDuration time.Duration

	ConnectTimeout time.Duration
	ReceiveTimeout time.Duration

	// SuccessCode is the service status value indicating a non-error
	// response body.
	SuccessCode int
}

// withDefaults fills unset optional fields.
func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.SegmentDuration <= 0 {
		c.SegmentDuration = DefaultSegmentDuration
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.SuccessCode == 0 {
		c.SuccessCode = DefaultSuccessCode
	}
	return c
}

// AudioStore persists session audio. Implementations must tolerate being
// called once per session; failures are logged, never fatal.
type AudioStore interface {
	SaveWAV(sessionID string, wav []byte) (string, error)
}

// Result is the outcome of a successful session. An empty Text means the
// service detected no speech, which is not an error.
type Result struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

// Stats are cumulative session statistics for one Client.
type Stats struct {
	TotalSessions  uint64        `json:"total_sessions"`
	Succeeded      uint64        `json:"succeeded"`
	Failed         uint64        `json:"failed"`
	SuccessRate    float64       `json:"success_rate"`
	AvgSessionTime time.Duration `json:"avg_session_time"`
}

// Client runs recognition sessions. Concurrent Recognize calls are safe and
// fully independent: each owns its transport connection and decoder.
type Client struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics // optional
	store   AudioStore       // optional
	dialer  Dialer

	// newDecoder builds a fresh packet decoder per session; Opus decoder
	// state must not be shared across streams.
	newDecoder func() (*audio.Decoder, error)

	mu            sync.RWMutex
	totalSessions uint64
	succeeded     uint64
	failed        uint64
	totalTime     time.Duration
}

// NewClient validates the application credentials and creates a Client.
// m and store may be nil.
func NewClient(cfg Config, logger *slog.Logger, m *metrics.Metrics, store AudioStore) (*Client, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("app id cannot be empty")
	}
	if cfg.Cluster == "" {
		return nil, fmt.Errorf("cluster cannot be empty")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	cfg = cfg.withDefaults()

	return &Client{
		config:  cfg,
		logger:  logger,
		metrics: m,
		store:   store,
		dialer:  &WebsocketDialer{HandshakeTimeout: cfg.ConnectTimeout},
		newDecoder: func() (*audio.Decoder, error) {
			return audio.NewDecoder(logger)
		},
	}, nil
}

// sessionState names the stages of the recognition state machine.
type sessionState int

const (
	stateIdle sessionState = iota
	stateConnected
	stateConfigSent
	stateStreaming
	stateAwaitingResult
	stateDone
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnected:
		return "connected"
	case stateConfigSent:
		return "config_sent"
	case stateStreaming:
		return "streaming"
	case stateAwaitingResult:
		return "awaiting_result"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Recognize runs one complete recognition session over the given ordered
// compressed audio packets. It opens exactly one connection and closes it on
// every exit path. On success with no detected speech the returned Result
// has an empty Text and the error is nil.
func (c *Client) Recognize(ctx context.Context, packets [][]byte) (*Result, error) {
	start := time.Now()
	reqID := uuid.NewString()
	logger := c.logger.With(slog.String("reqid", reqID))

	if c.metrics != nil {
		c.metrics.RecordSessionStarted()
	}

	result, err := c.runSession(ctx, logger, reqID, packets)
	elapsed := time.Since(start)

	c.recordOutcome(err, elapsed)

	if err != nil {
		logger.Error("Recognition session failed",
			slog.String("kind", KindOf(err).String()),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		if c.metrics != nil {
			c.metrics.RecordSessionFailed(KindOf(err).String(), elapsed.Seconds())
		}
		return nil, err
	}

	logger.Info("Recognition session completed",
		slog.Duration("elapsed", elapsed),
		slog.Int("text_length", len(result.Text)),
	)
	if c.metrics != nil {
		c.metrics.RecordSessionSucceeded(elapsed.Seconds())
	}
	return result, nil
}

// session tracks the state machine of one Recognize call.
type session struct {
	client    *Client
	logger    *slog.Logger
	reqID     string
	state     sessionState
	transport Transport
}

// fail wraps err with the session's current state and the failure kind.
func (s *session) fail(kind ErrorKind, err error) *SessionError {
	return &SessionError{Kind: kind, State: s.state.String(), Err: err}
}

// failRemote builds a remote failure carrying the service's status code.
func (s *session) failRemote(code uint32, message string) *SessionError {
	var err error
	if message != "" {
		err = fmt.Errorf("%s", message)
	}
	return &SessionError{Kind: ErrorKindRemote, State: s.state.String(), Code: code, Err: err}
}

func (c *Client) runSession(ctx context.Context, logger *slog.Logger, reqID string, packets [][]byte) (*Result, error) {
	s := &session{client: c, logger: logger, reqID: reqID, state: stateIdle}

	// Audio preparation happens before any network activity. Individual
	// packet decode failures are skipped, never fatal.
	container, err := c.prepareContainer(logger, reqID, packets)
	if err != nil {
		return nil, s.fail(ErrorKindUnknown, err)
	}

	info, err := audio.Info(container)
	if err != nil {
		return nil, s.fail(ErrorKindUnknown, fmt.Errorf("invalid audio container: %w", err))
	}
	segmentSize := audio.SegmentSize(info.SampleRate, info.Channels, audio.BytesPerSample, c.config.SegmentDuration)

	if c.metrics != nil && info.SampleRate > 0 {
		c.metrics.RecordContainerDuration(float64(info.NumSamples) / float64(info.SampleRate*info.Channels))
	}

	// Idle -> Connected
	header := http.Header{}
	header.Set("Authorization", "Bearer; "+c.config.AccessToken)

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	transport, err := c.dialer.Dial(dialCtx, c.config.URL, header)
	if err != nil {
		return nil, s.fail(ErrorKindConnection, err)
	}
	s.transport = transport
	defer s.transport.Close()
	s.state = stateConnected

	// Connected -> ConfigSent
	payload, err := json.Marshal(newSessionRequest(c.config, reqID))
	if err != nil {
		return nil, s.fail(ErrorKindUnknown, fmt.Errorf("failed to marshal session request: %w", err))
	}
	frame, err := protocol.EncodeRequest(protocol.MessageTypeFullClientRequest, protocol.NoSequence, payload)
	if err != nil {
		return nil, s.fail(ErrorKindUnknown, err)
	}
	if err := s.transport.Send(ctx, frame); err != nil {
		return nil, s.fail(ErrorKindTransport, err)
	}
	s.state = stateConfigSent

	// ConfigSent -> Streaming: the service acknowledges the configuration
	// with a status frame before accepting audio.
	doc, serr := s.receiveStatus(ctx)
	if serr != nil {
		return nil, serr
	}
	if doc != nil && doc.Code != c.config.SuccessCode {
		return nil, s.failRemote(uint32(doc.Code), doc.Message)
	}
	s.state = stateStreaming

	// Streaming: ordered chunks, final flag on the last one only.
	splitter, err := audio.NewSplitter(container, segmentSize)
	if err != nil {
		return nil, s.fail(ErrorKindUnknown, err)
	}

	sent := 0
	for {
		chunk, ok := splitter.Next()
		if !ok {
			break
		}
		flags := protocol.NoSequence
		if chunk.Last {
			flags = protocol.LastAudioPacket
		}
		frame, err := protocol.EncodeRequest(protocol.MessageTypeAudioOnlyRequest, flags, chunk.Data)
		if err != nil {
			return nil, s.fail(ErrorKindUnknown, err)
		}
		if err := s.transport.Send(ctx, frame); err != nil {
			return nil, s.fail(ErrorKindTransport, err)
		}
		if c.metrics != nil {
			c.metrics.RecordChunkSent(len(chunk.Data))
		}
		sent++
	}
	logger.Debug("Audio streamed",
		slog.Int("chunks", sent),
		slog.Int("segment_bytes", segmentSize),
		slog.Int("container_bytes", len(container)),
	)
	s.state = stateAwaitingResult

	// AwaitingResult -> Done: one consolidated result frame.
	doc, serr = s.receiveStatus(ctx)
	if serr != nil {
		return nil, serr
	}
	if doc == nil {
		return nil, s.fail(ErrorKindDecode, fmt.Errorf("result frame carried no JSON payload"))
	}
	if doc.Code != c.config.SuccessCode {
		return nil, s.failRemote(uint32(doc.Code), doc.Message)
	}
	s.state = stateDone

	result := &Result{RequestID: reqID}
	if len(doc.Result) > 0 {
		result.Text = doc.Result[0].Text
	}
	return result, nil
}

// prepareContainer decodes the compressed packets and builds the session's
// WAV container, persisting it when a store is configured.
func (c *Client) prepareContainer(logger *slog.Logger, reqID string, packets [][]byte) ([]byte, error) {
	dec, err := c.newDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create audio decoder: %w", err)
	}

	frames, dropped := dec.DecodePackets(packets)
	if c.metrics != nil {
		c.metrics.RecordPacketsDecoded(len(frames), dropped)
	}
	if dropped > 0 {
		logger.Warn("Some audio packets failed to decode",
			slog.Int("dropped", dropped),
			slog.Int("total", len(packets)),
		)
	}

	container := audio.BuildContainer(frames)

	if c.store != nil {
		path, err := c.store.SaveWAV(reqID, container)
		if err != nil {
			logger.Warn("Failed to persist session audio", slog.String("error", err.Error()))
		} else {
			logger.Debug("Session audio persisted", slog.String("path", path))
		}
	}

	return container, nil
}

// receiveStatus reads one frame within the receive timeout and extracts its
// JSON status document. Error frames become remote failures; a frame without
// a JSON payload yields a nil document.
func (s *session) receiveStatus(ctx context.Context) (*serverResponse, *SessionError) {
	rctx, cancel := context.WithTimeout(ctx, s.client.config.ReceiveTimeout)
	defer cancel()

	raw, err := s.transport.Receive(rctx)
	if err != nil {
		return nil, s.fail(ErrorKindTransport, err)
	}

	resp, err := protocol.ParseResponse(raw)
	if err != nil {
		return nil, s.fail(ErrorKindDecode, err)
	}

	if resp.Type == protocol.MessageTypeServerError {
		return nil, s.failRemote(resp.ErrorCode, errorFrameMessage(resp.Payload))
	}
	if resp.Payload.Kind != protocol.PayloadJSON {
		return nil, nil
	}

	var doc serverResponse
	if err := json.Unmarshal(resp.Payload.JSON, &doc); err != nil {
		return nil, s.fail(ErrorKindDecode, fmt.Errorf("unexpected response document: %w", err))
	}
	return &doc, nil
}

// errorFrameMessage extracts a human-readable message from an error frame's
// payload, whatever its serialization.
func errorFrameMessage(p protocol.Payload) string {
	switch p.Kind {
	case protocol.PayloadJSON:
		return string(p.JSON)
	case protocol.PayloadText:
		return p.Text
	default:
		return ""
	}
}

// recordOutcome updates the client's cumulative statistics.
func (c *Client) recordOutcome(err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalSessions++
	c.totalTime += elapsed
	if err != nil {
		c.failed++
	} else {
		c.succeeded++
	}
}

// GetStats returns the client's cumulative session statistics.
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		TotalSessions: c.totalSessions,
		Succeeded:     c.succeeded,
		Failed:        c.failed,
	}
	if c.totalSessions > 0 {
		stats.SuccessRate = float64(c.succeeded) / float64(c.totalSessions) * 100
		stats.AvgSessionTime = c.totalTime / time.Duration(c.totalSessions)
	}
	return stats
}
