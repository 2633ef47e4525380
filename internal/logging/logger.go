package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines a minimal, printf-style logging contract shared across the
// client packages so they can depend on this package without caring about
// the backing implementation.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

type zapPrintfLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapPrintfLogger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapPrintfLogger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapPrintfLogger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapPrintfLogger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// NewComponentLogger returns the default application logger scoped to a
// component. Output goes to stderr so it never interleaves with chat output
// on stdout.
func NewComponentLogger(component string) Logger {
	return NewComponentLoggerAt(component, zapcore.InfoLevel)
}

// NewComponentLoggerAt is NewComponentLogger with an explicit minimum level.
func NewComponentLoggerAt(component string, level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	base, err := cfg.Build()
	if err != nil {
		return Nop()
	}
	return &zapPrintfLogger{sugar: base.Sugar().Named(component)}
}

// FromZap adapts an existing zap logger to the Logger interface.
func FromZap(base *zap.Logger, component string) Logger {
	if base == nil {
		return Nop()
	}
	if component != "" {
		base = base.Named(component)
	}
	return &zapPrintfLogger{sugar: base.Sugar()}
}
