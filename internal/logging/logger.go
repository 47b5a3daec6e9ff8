package logging

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with context-aware methods: every call site passes
// its context.Context, and the correlation fields stored there
// (workspace, repository, request_id, active trace) land on the entry
// automatically.
type Logger struct {
	zap *zap.Logger
	cfg *Config
}

// NewLogger builds a Logger from cfg. otelProvider may be nil; the
// OTEL sink is then skipped even if enabled.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	core, err := buildCore(cfg, otelProvider)
	if err != nil {
		return nil, err
	}

	return &Logger{
		zap: zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)),
		cfg: cfg,
	}, nil
}

func buildCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout || cfg.Output.Stderr {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		var enc zapcore.Encoder
		if cfg.Format == "console" {
			enc = zapcore.NewConsoleEncoder(encCfg)
		} else {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		redacting, err := newRedactingEncoder(enc, cfg)
		if err != nil {
			return nil, err
		}

		sink := zapcore.AddSync(os.Stdout)
		if cfg.Output.Stderr {
			sink = zapcore.AddSync(os.Stderr)
		}
		cores = append(cores, zapcore.NewCore(redacting, sink, cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore("rune", otelzap.WithLoggerProvider(otelProvider)))
	}

	core := zapcore.NewTee(cores...)
	if cfg.Sampling.Enabled {
		// The sampler wraps the whole tee, so repeated entries are
		// sampled at every level, warnings and errors included.
		core = zapcore.NewSamplerWithOptions(core, time.Second,
			cfg.Sampling.Initial, cfg.Sampling.Thereafter)
	}
	return core, nil
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

// Trace logs wire-level detail, below Debug.
func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, TraceLevel, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, append(ContextFields(ctx), fields...)...)
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), cfg: l.cfg}
}

// Named returns a child logger with name appended to the logger name,
// one per subsystem ("engine", "engine.watcher", ...).
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), cfg: l.cfg}
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries. Sync errors on a closed stderr are
// expected at process exit and safe to ignore.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Underlying exposes the wrapped *zap.Logger for libraries that take
// one directly.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}
