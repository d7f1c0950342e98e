// Package observability holds the run metrics and the failure log.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Failure stages recorded in the failure log.
const (
	StageDiscovery = "discovery"
	StageResults   = "results_page"
	StageListing   = "listing"
	StageNormalize = "normalize"
)

// FailureRecorder receives every URL or row that a run gave up on.
type FailureRecorder interface {
	Record(stage, target string, err error)
}

// FailureLog is an append-only JSON-lines record of (stage, url, error)
// entries.
type FailureLog struct {
	logger *slog.Logger
	closer io.Closer
}

// OpenFailureLog opens path for appending, creating it if needed.
func OpenFailureLog(path string) (*FailureLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open failure log: %w", err)
	}
	fl := NewFailureLog(f)
	fl.closer = f
	return fl, nil
}

// NewFailureLog writes entries to w.
func NewFailureLog(w io.Writer) *FailureLog {
	return &FailureLog{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

// Record appends one failure entry.
func (fl *FailureLog) Record(stage, target string, err error) {
	fl.logger.Error("failure", "stage", stage, "url", target, "error", errString(err))
}

// Close closes the underlying file, if any.
func (fl *FailureLog) Close() error {
	if fl.closer == nil {
		return nil
	}
	return fl.closer.Close()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Discard is a FailureRecorder that drops every entry.
type Discard struct{}

// Record implements FailureRecorder.
func (Discard) Record(string, string, error) {}
