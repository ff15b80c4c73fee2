package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var L *zap.Logger

func init() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	var err error
	L, err = config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// SetLevel changes the level of the global logger, e.g. from LOG_LEVEL.
func SetLevel(level string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		L.Warn("invalid log level, keeping info", zap.String("level", level))
		return
	}
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(lvl)
	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		L.Warn("rebuild logger failed", zap.Error(err))
		return
	}
	L = l
}

// WithComponent returns a logger tagged with a component field (service, handler, mq, worker ...).
func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}
