// Package logger builds the zap logger shared by the retina commands.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger on stderr so log lines never mix
// with command output. Debug mode lowers the level and annotates each
// entry with its call site.
func NewLogger(debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	level := zap.InfoLevel
	var opts []zap.Option
	if debug {
		level = zap.DebugLevel
		opts = append(opts, zap.AddCaller())
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	return zap.New(core, opts...)
}
