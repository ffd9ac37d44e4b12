// Package logger is the process-wide structured logger, backed by zap.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures Init.
type Options struct {
	Format string // console | json
	Level  string // debug | info | warn | error
	File   string // optional log file, in addition to stderr
}

// OptionsFromEnv reads LOG_FORMAT and LOG_LEVEL.
func OptionsFromEnv() Options {
	return Options{
		Format: envOrDefault("LOG_FORMAT", "console"),
		Level:  envOrDefault("LOG_LEVEL", "info"),
	}
}

var (
	mu      sync.Mutex
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	logFile *os.File
)

// Init builds the global logger. It replaces any previous logger and
// closes a previously opened log file.
func Init(opts Options) error {
	l, f, err := build(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	base = l
	sugar = l.Sugar()
	logFile = f
	return nil
}

func build(opts Options) (*zap.Logger, *os.File, error) {
	var zapCfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	l, err := zapCfg.Build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "build zap logger")
	}
	if opts.File == "" {
		return l, nil, nil
	}

	f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create log file %s", opts.File)
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(f),
		zapCfg.Level,
	)
	l = zap.New(zapcore.NewTee(l.Core(), fileCore), zap.AddCaller())
	return l, f, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Set replaces the global logger. Tests use it with zaptest.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	base = l
	sugar = l.Sugar()
}

// L returns the global logger, building one from the environment on first use.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	ensureLocked()
	return base
}

func ensureLocked() {
	if base != nil {
		return
	}
	l, _, err := build(OptionsFromEnv())
	if err != nil {
		l = zap.NewNop()
	}
	base = l
	sugar = l.Sugar()
}

func s() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	ensureLocked()
	return sugar.WithOptions(zap.AddCallerSkip(1))
}

// Close flushes the logger and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if base != nil {
		_ = base.Sync()
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) { s().Infof(format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { s().Debugf(format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { s().Warnf(format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { s().Errorf(format, v...) }

// GetWriter returns the log file for driver service output, or io.Discard.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
