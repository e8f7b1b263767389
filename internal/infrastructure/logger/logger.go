package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"comanda/internal/config"
)

// New builds the logger for one binary. Every entry carries the service
// name. Unknown levels fall back to info and unknown encodings to JSON.
func New(cfg config.LogConfig, service string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Encoding == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.InitialFields = map[string]interface{}{"service": service}

	return zc.Build()
}
