package sparse

import (
	"context"
	"log/slog"
	"time"
)

// Operation names reported in LogEvent.Op.
const (
	OpLoad     = "load"
	OpResolve  = "resolve"
	OpReplace  = "replace"
	OpSave     = "save"
	OpFlush    = "flush"
	OpReload   = "reload"
	OpExport   = "export"
	OpEvaluate = "evaluate"
)

// LogEvent describes a state or resolution operation for logging.
type LogEvent struct {
	Op       string
	Path     string
	Pointer  string
	Version  uint64
	Depth    uint32
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records engine events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// MultiLogger forwards events to every non-nil logger.
func MultiLogger(loggers ...Logger) Logger {
	out := make([]Logger, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			out = append(out, logger)
		}
	}
	return LoggerFunc(func(event LogEvent) {
		for _, logger := range out {
			logger.Log(event)
		}
	})
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger reports successful events at debug level and failures at
// warn level.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

func (l slogLogger) Log(event LogEvent) {
	attrs := []slog.Attr{
		slog.String("op", event.Op),
		slog.String("path", event.Path),
	}
	if event.Pointer != "" {
		attrs = append(attrs, slog.String("pointer", event.Pointer))
	}
	if event.Version != 0 {
		attrs = append(attrs, slog.Uint64("version", event.Version))
	}
	if event.Op == OpResolve {
		attrs = append(attrs, slog.Int("depth", int(event.Depth)))
	}
	if event.Engine != "" {
		attrs = append(attrs, slog.String("engine", event.Engine), slog.String("expr", event.Expr))
	}
	attrs = append(attrs, slog.Duration("duration", event.Duration))

	level := slog.LevelDebug
	msg := "sparse " + event.Op
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
		msg += " failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// WithLogger attaches a logger to the state configuration.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
