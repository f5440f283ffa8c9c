package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// Logger defines the interface for logging in the Vigil system.
// It provides standard logging levels and a mechanism to add structured context.
type Logger interface {
	// Debug logs a message at the debug level.
	Debug(msg string, args ...any)
	// Info logs a message at the info level.
	Info(msg string, args ...any)
	// Warn logs a message at the warning level.
	Warn(msg string, args ...any)
	// Error logs a message at the error level.
	Error(msg string, args ...any)
	// With returns a new Logger with the given structured context added.
	With(args ...any) Logger
}

// Log is the global logger instance used throughout the application.
// It is initialized with a default JSON handler pointing to stdout.
var Log Logger = &wrapper{l: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}))}

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatJournal = "journal"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else maps to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger initializes the global Log instance with the specified level and format.
// The journal format falls back to JSON on stdout when no journal socket is available.
func InitLogger(level, format string) {
	Log = New(os.Stdout, level, format)
}

// New builds a Logger writing to w. The journal format ignores w.
func New(w io.Writer, level, format string) Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		// Add source file info for better debugging
		AddSource: true,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJournal:
		if journal.Enabled() {
			handler = &journalHandler{level: lvl}
			break
		}
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return &wrapper{l: slog.New(handler)}
}

type wrapper struct {
	l *slog.Logger
}

func (w *wrapper) Debug(msg string, args ...any) { w.l.Debug(msg, args...) }
func (w *wrapper) Info(msg string, args ...any)  { w.l.Info(msg, args...) }
func (w *wrapper) Warn(msg string, args ...any)  { w.l.Warn(msg, args...) }
func (w *wrapper) Error(msg string, args ...any) { w.l.Error(msg, args...) }
func (w *wrapper) With(args ...any) Logger       { return &wrapper{l: w.l.With(args...)} }

// journalHandler sends records to the systemd journal with attributes as fields.
type journalHandler struct {
	level slog.Level
	attrs []slog.Attr
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]string{"SYSLOG_IDENTIFIER": "vigil"}
	for _, a := range h.attrs {
		fields[journalKey(a.Key)] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[journalKey(a.Key)] = a.Value.String()
		return true
	})
	if err := journal.Send(r.Message, journalPriority(r.Level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal send failed: %v\n", err)
		return err
	}
	return nil
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &journalHandler{level: h.level, attrs: merged}
}

// Groups are flattened; the journal has no nesting.
func (h *journalHandler) WithGroup(string) slog.Handler { return h }

// journalKey converts an attribute key to a valid journal field name.
func journalKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(k) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	key := strings.TrimLeft(b.String(), "_")
	if key == "" {
		return "ATTR"
	}
	return key
}

func journalPriority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// Personal.AI order the ending
