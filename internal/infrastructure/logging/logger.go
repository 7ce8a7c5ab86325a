package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "downlink"

// levels maps logging.level values to slog levels. Anything else is info.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is the service logger. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the logger described by the logging section, writing to
// logging.output.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, writerFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
// Every entry carries service and version.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler).With(
		"service", serviceName,
		"version", version,
	)}
}

// writerFor resolves logging.output; unknown values fall back to stdout.
func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// Component returns a child logger tagged with component=name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// Default is the logger used until the configuration has loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
