package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON for production, console otherwise
func New(production, debug bool) (*zap.Logger, error) {
	if production {
		return NewProductionLogger(debug)
	}
	return NewDevelopmentLogger(debug)
}

// NewProductionLogger creates a logger with JSON encoding
func NewProductionLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = level(debug)
	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return config.Build()
}

// NewDevelopmentLogger creates a logger with console encoding for local runs
func NewDevelopmentLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = level(debug)
	return config.Build()
}

// NewStderrLogger logs to stderr only. Used by the MCP stdio server, whose
// stdout carries the protocol.
func NewStderrLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = level(debug)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config.Build()
}

// Sync flushes buffered entries. Safe to call with a nil logger.
func Sync(log *zap.Logger) error {
	if log == nil {
		return nil
	}
	return log.Sync()
}

func level(debug bool) zap.AtomicLevel {
	if debug {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}
