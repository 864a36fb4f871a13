// Package logging builds the zap logger used across a run: a console core
// for humans and, when a log file is configured, a rotated JSON core.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/waftester/contractfuzz/pkg/config"
	"github.com/waftester/contractfuzz/pkg/defaults"
)

// Options controls where console output goes.
type Options struct {
	// Console defaults to a locked stderr.
	Console zapcore.WriteSyncer
	// Color colorizes console levels.
	Color bool
}

// New returns a logger for cfg. The returned close function flushes the
// logger and closes the rotated file, if any.
func New(cfg config.LoggerConfig, opts Options) (*zap.Logger, func() error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	console := opts.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(cfg.Format, opts.Color), console, level)}
	var rotated *lumberjack.Logger
	if cfg.File != "" {
		rotated = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		// Files are always JSON.
		cores = append(cores, zapcore.NewCore(encoder("json", false), zapcore.AddSync(rotated), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named(defaults.ToolName)
	return logger, func() error {
		_ = logger.Sync()
		if rotated != nil {
			return rotated.Close()
		}
		return nil
	}
}

func encoder(format string, color bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if strings.EqualFold(format, "json") {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}
