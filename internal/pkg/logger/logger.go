// Package logger wraps logrus with key/value style helpers used across the
// pipeline services.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"profiler-pipeline/internal/config"
)

type Fields map[string]interface{}

type Logger struct {
	base *logrus.Logger
}

type Entry struct {
	entry *logrus.Entry
}

func New(cfg config.LogConfig) (*Logger, error) {
	base := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	base.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	base.SetOutput(resolveOutput(cfg.Output))

	return &Logger{base: base}, nil
}

func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		// Anything else is a file path; rotate it.
		return &lumberjack.Logger{
			Filename:   output,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
	}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.base.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.base.WithFields(kvFields(keysAndValues)).Info(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.base.WithFields(kvFields(keysAndValues)).Warn(msg)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.base.WithFields(kvFields(keysAndValues)).Error(msg)
}

func (l *Logger) WithError(err error) *Entry {
	return &Entry{entry: l.base.WithError(err)}
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{entry: l.base.WithFields(logrus.Fields(fields))}
}

func (e *Entry) Debug(msg string, keysAndValues ...interface{}) {
	e.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (e *Entry) Info(msg string, keysAndValues ...interface{}) {
	e.entry.WithFields(kvFields(keysAndValues)).Info(msg)
}

func (e *Entry) Warn(msg string, keysAndValues ...interface{}) {
	e.entry.WithFields(kvFields(keysAndValues)).Warn(msg)
}

func (e *Entry) Error(msg string, keysAndValues ...interface{}) {
	e.entry.WithFields(kvFields(keysAndValues)).Error(msg)
}

// LogService records one service operation with its duration and outcome.
func (l *Logger) LogService(service, operation string, duration time.Duration, fields map[string]interface{}, err error) {
	entry := l.base.WithFields(logrus.Fields{
		"service":     service,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})

	if fields != nil {
		entry = entry.WithFields(logrus.Fields(fields))
	}

	if err != nil {
		entry.WithError(err).Error("service operation failed")
		return
	}
	entry.Info("service operation completed")
}

// LogTool records one agent tool invocation.
func (l *Logger) LogTool(tool string, duration time.Duration, fields map[string]interface{}, err error) {
	entry := l.base.WithFields(logrus.Fields{
		"tool":        tool,
		"duration_ms": duration.Milliseconds(),
	})

	if fields != nil {
		entry = entry.WithFields(logrus.Fields(fields))
	}

	if err != nil {
		entry.WithError(err).Error("tool invocation failed")
		return
	}
	entry.Info("tool invocation completed")
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
