package log

import (
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(w io.Writer) *MultiWriter {
	m.writers = append(m.writers, w)
	return m
}

// FileAppenderOpt configures the rotating file appender.
type FileAppenderOpt struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AddFile attaches a lumberjack-rotated file writer decoded from the raw
// appender option map.
func (m *MultiWriter) AddFile(options map[string]interface{}) error {
	var opt FileAppenderOpt
	if err := mapstructure.Decode(options, &opt); err != nil {
		return fmt.Errorf("decode file appender options: %w", err)
	}
	if opt.Filename == "" {
		return fmt.Errorf("file appender requires a filename")
	}
	m.writers = append(m.writers, &lumberjack.Logger{
		Filename:   opt.Filename,
		MaxSize:    opt.MaxSize,    // megabytes
		MaxBackups: opt.MaxBackups, // number of rotated files kept
		MaxAge:     opt.MaxAge,     // days
		Compress:   opt.Compress,
	})
	return nil
}
