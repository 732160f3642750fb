package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogFileName is the log file created under the configured log dir.
const LogFileName = "savekeep.log"

// skHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Every record goes to w. Records at echoLevel or above are also copied to
// echo, so the terminal only sees problems.
type skHandler struct {
	w         io.Writer
	echo      io.Writer
	echoLevel slog.Level
	opID      string
	attrs     []slog.Attr
}

func (h *skHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *skHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	if _, err := h.w.Write(buf.Bytes()); err != nil {
		return err
	}
	if h.echo != nil && r.Level >= h.echoLevel {
		_, err := h.echo.Write(buf.Bytes())
		return err
	}
	return nil
}

func (h *skHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &skHandler{
		w:         h.w,
		echo:      h.echo,
		echoLevel: h.echoLevel,
		opID:      h.opID,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *skHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to logDir/savekeep.log
// and echoes warnings and errors to stderr.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir string, opID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &skHandler{w: f, echo: os.Stderr, echoLevel: slog.LevelWarn, opID: opID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the sk.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
