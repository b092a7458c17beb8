package greq

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewLogger builds the run logger: concise messages on terminal (info,
// or debug with verbose) and a detailed debug log appended to a file in
// the per-user cache directory. The returned closer flushes the file.
func NewLogger(terminal io.Writer, verbose bool) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: level}),
	}

	closer := func() error { return nil }
	if logFile, err := openLogFile(); err == nil {
		handlers = append(handlers,
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = logFile.Close
	}

	return slog.New(multiHandler(handlers)), closer
}

func openLogFile() (*os.File, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(cacheDir, "greq")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "greq.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// multiHandler fans records out to every wrapped handler.
type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
