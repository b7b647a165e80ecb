package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/config"
)

// Attribute keys attached by this package.
const (
	serviceKey   = "service"
	versionKey   = "version"
	componentKey = "component"
)

// serviceName is the value of the service attribute on every entry.
const serviceName = "mqtt-publisher"

// Logger wraps slog.Logger with publisher-specific defaults.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to the destination named by cfg.Output.
//
// Every entry carries the service name and version. Durations such as a
// retry interval render as "10s" rather than nanoseconds.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, outputFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination, ignoring cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	handler := newHandler(cfg.Format, w, parseLevel(cfg.Level)).WithAttrs([]slog.Attr{
		slog.String(serviceKey, serviceName),
		slog.String(versionKey, version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// outputFor maps a configured output name to a writer. Unknown names
// fall back to stdout.
func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}

// newHandler returns a text handler for format "text" and JSON otherwise.
func newHandler(format string, w io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
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

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child Logger whose entries carry component=name.
//
// Example:
//
//	pubLog := logger.Component("publisher")
//	pubLog.Warn("delivery attempt failed") // Includes component=publisher
func (l *Logger) Component(name string) *Logger {
	return l.With(componentKey, name)
}

// Default creates a logger for use before configuration is loaded:
// JSON on stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return NewWithWriter(config.LoggingConfig{}, "test", io.Discard)
}
