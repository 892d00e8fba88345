// Package logs builds the logrus logger used by the command line tool.
package logs

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options describes where and how to log.
type Options struct {
	// Debug enables debug level messages
	Debug bool

	// Format is FormatText or FormatJSON, empty means text
	Format string

	// File is a log file path, empty means stderr
	File string

	// MaxSize is the file size in megabytes before it is rotated
	MaxSize int

	// MaxBackups is the number of rotated files kept
	MaxBackups int
}

// New creates a logger from opts. The returned closer releases the log
// file and must be called when done.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	switch opts.Format {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q, use %q or %q", opts.Format, FormatText, FormatJSON)
	}

	if opts.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		maxSize := opts.MaxSize
		if maxSize <= 0 {
			maxSize = 20 // megabytes
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}

		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		logger.SetOutput(file)
		closer = file
	} else {
		logger.SetOutput(os.Stderr)
	}

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
