package logger

import (
	"errors"
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the diagnostic log file.
type FileOptions struct {
	Filename   string // path of the active log file
	MaxSizeMB  int    // rotate once the file reaches this size
	MaxBackups int    // number of rotated files to keep
	MaxAgeDays int    // days to keep rotated files
	Compress   bool   // gzip rotated files
}

// NewFileWriter returns an append-only writer for the diagnostic log.
//
// Existing content is never truncated; the file is rotated by size instead.
func NewFileWriter(opts FileOptions) (io.WriteCloser, error) {
	if opts.Filename == "" {
		return nil, errors.New("logger: log file name is empty")
	}

	return &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSizeMB,  // megabytes
		MaxBackups: opts.MaxBackups, // number of backups
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   opts.Compress,
	}, nil
}
