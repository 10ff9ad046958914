package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/arloliu/go-lxi/capture"
	"github.com/arloliu/go-lxi/config"
	"github.com/arloliu/go-lxi/logger"
)

// runCapture performs one capture with cfg and reports progress on out.
func runCapture(ctx context.Context, cfg config.Config, out io.Writer, opts ...capture.Option) error {
	log, closeLog, err := newRunLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	prev := logger.GetLogger()
	logger.SetLogger(log)
	defer logger.SetLogger(prev)

	log.Info("new run started",
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"goVersion", runtime.Version(),
		"host", cfg.Host,
		"port", cfg.Port,
		"format", cfg.Format,
		"savePath", cfg.SavePath,
	)

	opts = append([]capture.Option{
		capture.WithLogger(log),
		capture.WithEventHandler(func(ev capture.Event) { printEvent(out, ev) }),
	}, opts...)

	c, err := capture.New(cfg, opts...)
	if err != nil {
		log.Error("lxicapture: invalid configuration", "error", err)
		return err
	}

	if _, err := c.Run(ctx); err != nil {
		return err
	}

	return nil
}

// newRunLogger opens the diagnostic log described by lc. An empty file name
// logs to stderr instead.
func newRunLogger(lc config.LogConfig) (logger.Logger, func() error, error) {
	level, err := logger.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}

	if lc.File == "" {
		return logger.NewSlogWithWriter(level, false, os.Stderr), func() error { return nil }, nil
	}

	w, err := logger.NewFileWriter(logger.FileOptions{
		Filename:   lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
	})
	if err != nil {
		return nil, nil, err
	}

	return logger.NewSlogWithWriter(level, false, w), w.Close, nil
}

func printEvent(out io.Writer, ev capture.Event) {
	switch ev.Kind {
	case capture.EventPingFailed:
		fmt.Fprintf(out, "WARNING! No response pinging %s\n", ev.Host)
		fmt.Fprintln(out, "Check network cables and settings.")
		fmt.Fprintln(out, "You should be able to ping the oscilloscope.")
	case capture.EventIdentified:
		fmt.Fprintf(out, "Instrument ID: %s\n", ev.Identity)
	case capture.EventReceiving:
		fmt.Fprintln(out, "Receiving screen capture...")
	case capture.EventSaved:
		fmt.Fprintf(out, "Saved file: %s\n", ev.Path)
	}
}
