// Package log wraps logrus behind a small Logger interface so the rest of
// the proxy never imports a logging library directly.
package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

// Config configures the global logger. Zero value is usable: info level,
// console appender, default pattern.
type Config struct {
	Level     string           `mapstructure:"level" yaml:"level"`
	Pattern   string           `mapstructure:"pattern" yaml:"pattern,omitempty"`
	Time      string           `mapstructure:"time" yaml:"time,omitempty"`
	Appenders []AppenderConfig `mapstructure:"appenders" yaml:"appenders,omitempty"`
}

// AppenderConfig selects an output target. Type is "console" or "file";
// file options are decoded per FileAppenderOpt.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type" yaml:"type"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

const (
	defaultPattern = "%time [%level] %field %msg%n"
	defaultTime    = "2006-01-02 15:04:05.000"
)

var (
	mu     sync.Mutex
	root          = logrus.New()
	logger Logger = &logrusAdapter{entry: logrus.NewEntry(root)}
)

func GetLogger() Logger {
	return logger
}

// Init reconfigures the global logger. Safe to call again on reload.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = defaultPattern
	}
	timeLayout := cfg.Time
	if timeLayout == "" {
		timeLayout = defaultTime
	}

	out := NewMultiWriter()
	if len(cfg.Appenders) == 0 {
		out.Add(os.Stdout)
	}
	for _, ac := range cfg.Appenders {
		switch ac.Type {
		case "console", "":
			out.Add(os.Stdout)
		case "file":
			if err := out.AddFile(ac.Options); err != nil {
				return fmt.Errorf("file appender: %w", err)
			}
		default:
			return fmt.Errorf("unknown appender type %q", ac.Type)
		}
	}

	root.SetFormatter(&formatter{pattern: pattern, time: timeLayout})
	root.SetOutput(out)
	return SetLevel(cfg.Level)
}

// SetLevel changes only the log level, for hot reload.
func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	root.SetLevel(parsed)
	return nil
}

type logrusAdapter struct {
	entry *logrus.Entry
}

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}

func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
