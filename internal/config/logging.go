package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrz1836/idealink/internal/fileutil"
)

// LevelOff disables logging.
const LevelOff = "off"

// ParseLogLevel parses a log level string. ok is false for "off" and
// "none". Unknown values fall back to error.
func ParseLogLevel(s string) (level zapcore.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case LevelOff, "none":
		return zapcore.ErrorLevel, false
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	default:
		return zapcore.ErrorLevel, true
	}
}

// NewLogger builds a JSON file logger from cfg. verbose forces debug level.
// The returned close function flushes and closes the file and is never nil.
func NewLogger(cfg LoggingConfig, verbose bool) (*zap.Logger, func(), error) {
	level, enabled := ParseLogLevel(cfg.Level)
	if verbose {
		level, enabled = zapcore.DebugLevel, true
	}
	if !enabled || cfg.File == "" {
		return zap.NewNop(), func() {}, nil
	}

	path := ExpandHome(cfg.File)
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirPermissions); err != nil {
		return zap.NewNop(), func() {}, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return zap.NewNop(), func() {}, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), level)
	logger := zap.New(core, zap.AddCaller()).Named("idealink")

	return logger, func() {
		_ = logger.Sync()
		_ = f.Close()
	}, nil
}
