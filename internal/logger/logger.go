package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how log lines are rendered and where they go.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string

	// Format is "text" (human readable console lines) or "json"
	Format string

	// Output is "stdout", "stderr" or a file path
	Output string
}

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base    *zap.Logger
	sugared *zap.SugaredLogger
)

func init() {
	l, err := build(Config{Format: "text", Output: "stderr"})
	if err != nil {
		l = zap.NewNop()
	}
	base = l
	sugared = l.Sugar()
}

// Configure replaces the global logger.
//
// The level is kept in an atomic level shared by every logger built here, so
// SetLevel keeps working after Configure.
func Configure(cfg Config) error {
	if cfg.Level != "" {
		if err := parseLevel(cfg.Level); err != nil {
			return err
		}
	}

	l, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	old := base
	base = l
	sugared = l.Sugar()
	mu.Unlock()

	_ = old.Sync()
	return nil
}

func build(cfg Config) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	encoding := "console"
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	output := cfg.Output
	if output == "" {
		output = "stderr"
	}

	zc := zap.Config{
		Level:            level,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zc.Build(zap.AddCallerSkip(1), zap.WithCaller(false))
}

func parseLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	level.SetLevel(l)
	return nil
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	_ = parseLevel(name)
}

// Enabled reports whether messages at the named level are emitted.
func Enabled(name string) bool {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return false
	}
	return level.Enabled(l)
}

// L returns the structured logger for callers that want typed fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}

func sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Debug(format string, v ...any) {
	sugar().Debugf(format, v...)
}

func Info(format string, v ...any) {
	sugar().Infof(format, v...)
}

func Warn(format string, v ...any) {
	sugar().Warnf(format, v...)
}

func Error(format string, v ...any) {
	sugar().Errorf(format, v...)
}
