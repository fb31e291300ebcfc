// Package logger builds the zap logger the engine services share. The
// host application can inject its own *zap.Logger through the facade;
// this package only provides sensible defaults.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Options controls optional file output with rotation. An empty
// FilePath logs to stdout only.
type Options struct {
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a logger. Mode "debug" uses a console encoder at debug
// level; anything else is production JSON at info level.
func New(mode string, options Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if debug {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writeSyncer := zapcore.AddSync(os.Stdout)
	if options.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   options.FilePath,
			MaxSize:    normalize(options.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: normalize(options.MaxBackups, defaultMaxBackups),
			MaxAge:     normalize(options.MaxAgeDays, defaultMaxAgeDays),
			Compress:   options.Compress,
		}
		writeSyncer = zapcore.AddSync(writer)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	return zap.New(core, zap.AddCaller())
}

func normalize(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
