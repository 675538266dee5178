package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Writer saves session audio under a single output directory. File names
// carry the session identifier plus a random suffix so repeated sessions
// never collide.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// SaveWAV writes one session's audio container and returns the file path.
func (w *Writer) SaveWAV(sessionID string, wav []byte) (string, error) {
	name := fmt.Sprintf("asr_%s_%s.wav", sessionID, uuid.NewString())
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	w.logger.Debug("Saved session audio",
		slog.String("session_id", sessionID),
		slog.String("path", path),
		slog.Int("size_bytes", len(wav)),
	)
	return path, nil
}
