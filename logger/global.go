package logger

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// global backs the package-level helpers. New replaces it; until then a
// default info-level JSON logger is built on first use.
var global atomic.Pointer[zap.Logger]

func setGlobal(l *zap.Logger) {
	global.Store(l)
}

func current() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, buildDefault())
	return global.Load()
}

// buildDefault degrades to a nop logger when the default sinks cannot be opened
func buildDefault() *zap.Logger {
	cfg := DefaultConfig()
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	l, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig(loc),
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.DPanicLevel))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetGlobalLogger replaces the logger behind the package-level helpers.
// Build it with zap.AddCallerSkip(1) to keep caller information accurate.
func SetGlobalLogger(l *zap.Logger) {
	setGlobal(l)
}

// GetGlobalLogger returns the logger behind the package-level helpers
func GetGlobalLogger() *zap.Logger {
	return current()
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { current().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { current().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

// Sync flushes the global logger
func Sync() error {
	return current().Sync()
}
