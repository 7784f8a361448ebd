package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the shared zap logger. STATE=prod switches to the
// production JSON encoder, anything else gets the development console
// encoder.
func InitLogger() (*zap.Logger, error) {
	if os.Getenv("STATE") == "prod" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	return zap.NewDevelopment()
}
