package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

// openSink resolves outputs into a single write syncer, falling back to stdout.
func openSink(outputs []string) zapcore.WriteSyncer {
	if len(outputs) == 0 {
		return zapcore.Lock(os.Stdout)
	}
	ws, _, err := zap.Open(outputs...)
	if err != nil {
		return zapcore.Lock(os.Stdout)
	}
	return ws
}

// newConsoleCore builds a zapcore.Core with a console encoder.
func newConsoleCore(level zapcore.Level, ws zapcore.WriteSyncer) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	return zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(level))
}

// newZapLogger constructs a sugared zap logger with the provided level string.
func newZapLogger(levelStr string, outputs []string) *Logger {
	core := newConsoleCore(toZapLevel(levelStr), openSink(outputs))
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
	}
}
