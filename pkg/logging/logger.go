/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for the Akaylee replay harness. Wraps logrus with validated
configuration, text/JSON/custom formats and an optional size-rotated log file. Console
output goes to stderr so replay results on stdout stay machine readable.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level      LogLevel  `json:"level"`
	Format     LogFormat `json:"format"`
	File       string    `json:"file"`         // Optional rotated log file
	MaxSizeMB  int       `json:"max_size_mb"`  // Rotate after this many megabytes
	MaxBackups int       `json:"max_backups"`  // Rotated files to keep
	MaxAgeDays int       `json:"max_age_days"` // Days to keep rotated files (0 = forever)
	Compress   bool      `json:"compress"`
	Timestamp  bool      `json:"timestamp"`
	Caller     bool      `json:"caller"`
	Colors     bool      `json:"colors"`

	// Console receives console output; stderr when nil
	Console io.Writer `json:"-"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatCustom,
		MaxSizeMB:  100,
		MaxBackups: 10,
		Timestamp:  true,
		Colors:     true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values
func (c *LoggerConfig) Validate() error {
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
		// ok
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		// ok
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive")
	}
	if c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("max_backups and max_age_days must not be negative")
	}
	return nil
}

// Logger provides structured logging for a replay session
type Logger struct {
	config    *LoggerConfig
	logger    *logrus.Logger
	file      *lumberjack.Logger
	startTime time.Time
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// setup configures level, formatter and outputs
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	l.setFormatter()

	console := l.config.Console
	if console == nil {
		console = os.Stderr
	}

	if l.config.File == "" {
		l.logger.SetOutput(console)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.config.File), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	l.file = &lumberjack.Logger{
		Filename:   l.config.File,
		MaxSize:    l.config.MaxSizeMB,
		MaxBackups: l.config.MaxBackups,
		MaxAge:     l.config.MaxAgeDays,
		Compress:   l.config.Compress,
	}
	l.logger.SetOutput(io.MultiWriter(console, l.file))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   l.config.File,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("Logging initialized")

	return nil
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})
	default:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})
	}
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// LogRun logs the outcome of one replayed input
func (l *Logger) LogRun(input string, result string, duration time.Duration, cause error) {
	entry := l.logger.WithFields(logrus.Fields{
		"input":    input,
		"result":   result,
		"duration": duration,
	})
	if cause != nil {
		entry = entry.WithField("cause", cause.Error())
	}
	entry.Info("Input replayed")
}

// LogSummary logs the end of a replay session
func (l *Logger) LogSummary(inputs int, sites int, uniqueBranches int, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["inputs"] = inputs
	fields["covered_sites"] = sites
	fields["unique_branches"] = uniqueBranches
	fields["uptime"] = time.Since(l.startTime)

	l.logger.WithFields(fields).Info("Replay session finished")
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
