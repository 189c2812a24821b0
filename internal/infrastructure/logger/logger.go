package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DefaultConfig returns the development configuration
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "stdout"}
}

// New creates a zap logger for cfg. A file output that cannot be opened
// is an error rather than a silent fallback.
func New(cfg Config) (*zap.Logger, error) {
	writer, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), writer, ParseLevel(cfg.Level))
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// NewForEnvironment returns a JSON logger in production and a console
// logger elsewhere
func NewForEnvironment(env string) (*zap.Logger, error) {
	cfg := DefaultConfig()
	if env == "production" {
		cfg.Format = "json"
	}
	return New(cfg)
}

// ParseLevel converts a level name to zapcore.Level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openWriter(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
