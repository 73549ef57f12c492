package monitoring

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured session logger. It is a no-op until Init is
// called.
var Logger = zap.NewNop()

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or Init. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Init builds Logger at the given level ("debug", "info", "warn", "error").
// Format "json" selects the production encoder, anything else the console
// development encoder. Logf is routed through the new logger.
func Init(level, format string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(l)
	return nil
}

// Use installs l as Logger and routes Logf through it at info level.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
	Logf = l.Sugar().Infof
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}

// ErrorField wraps err as a zap field.
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}
