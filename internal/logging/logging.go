// Package logging provides the structured run log of the lwg tools on top
// of log/slog. Events carry the ID of the publishing run they belong to.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level is a logging threshold.
type Level = slog.Level

// Thresholds accepted by ParseLevel.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler that renders records.
type Format int

const (
	// FormatText writes key=value lines.
	FormatText Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

type runIDKey struct{}

var logger *slog.Logger

func init() {
	InitLogger(LevelInfo, FormatText)
}

// ParseLevel maps a level name such as "debug" or "warn" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat maps "json" or "text" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// InitLogger sends the run log to stderr, keeping stdout for command output.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo is InitLogger with an explicit destination.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: secondsTimestamp,
	}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// secondsTimestamp renders record times as RFC 3339 without fractions.
func secondsTimestamp(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
	}
	return a
}

// WithRunID returns a context whose log records carry runID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run ID carried by ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the run logger, tagged with the run ID of ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RunID(ctx); id != "" {
		return logger.With("run_id", id)
	}
	return logger
}

// InfoContext logs an informational event of the run in ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning of the run in ctx.
func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// RunStarted logs the start of a publishing run over the repository root.
func RunStarted(ctx context.Context, root string, args ...any) {
	InfoContext(ctx, "run_started", append([]any{"root", root}, args...)...)
}

// IssueSkipped logs an issue left out of a run because it failed to parse
// or transform. num is 0 when the record never yielded a number.
func IssueSkipped(ctx context.Context, num int, err error, args ...any) {
	WarnContext(ctx, "issue_skipped", append([]any{"issue", num, "error", err.Error()}, args...)...)
}

// DocumentWritten logs a generated document and how many issues it covers.
func DocumentWritten(ctx context.Context, path string, issues int, args ...any) {
	InfoContext(ctx, "document_written", append([]any{"path", path, "issues", issues}, args...)...)
}

// SectionsRegistered logs section tags that were cited but missing from the
// reference table.
func SectionsRegistered(ctx context.Context, tags []string, args ...any) {
	WarnContext(ctx, "unknown_sections", append([]any{"count", len(tags), "tags", tags}, args...)...)
}
