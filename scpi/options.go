package scpi

import (
	"errors"
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// Default timeouts of the command exchange.
const (
	DefaultPollTimeout  = time.Second // wait for each "*OPC?" reply
	DefaultReplyTimeout = time.Second // wait for a command reply
)

type channelConfig struct {
	pollTimeout  time.Duration
	replyTimeout time.Duration

	// readyAttemptLimit bounds readiness polls per command; 0 means unbounded.
	readyAttemptLimit int
	// readyDeadline bounds the wall-clock time of one readiness wait; 0 means unbounded.
	readyDeadline time.Duration

	logger logger.Logger

	// onPoll is called for every readiness poll sent. Used for metrics collection.
	onPoll func()
	// onCommand is called for every command sent after the gate opened.
	onCommand func(cmd string)
}

// Option is a functional option for NewChannel.
type Option interface {
	apply(*channelConfig) error
}

type optFunc func(*channelConfig) error

func (f optFunc) apply(cfg *channelConfig) error { return f(cfg) }

// WithPollTimeout sets how long each readiness poll waits for a reply.
func WithPollTimeout(d time.Duration) Option {
	return optFunc(func(cfg *channelConfig) error {
		if d <= 0 {
			return errors.New("scpi: poll timeout must be positive")
		}
		cfg.pollTimeout = d

		return nil
	})
}

// WithReplyTimeout sets how long a query waits for its reply.
func WithReplyTimeout(d time.Duration) Option {
	return optFunc(func(cfg *channelConfig) error {
		if d <= 0 {
			return errors.New("scpi: reply timeout must be positive")
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithReadyAttemptLimit bounds the number of readiness polls per command.
// Zero restores the default of unbounded polling.
func WithReadyAttemptLimit(n int) Option {
	return optFunc(func(cfg *channelConfig) error {
		if n < 0 {
			return errors.New("scpi: ready attempt limit must not be negative")
		}
		cfg.readyAttemptLimit = n

		return nil
	})
}

// WithReadyDeadline bounds the time spent waiting for readiness per command.
// Zero restores the default of waiting indefinitely. Each poll still waits the
// full poll timeout, so the gate may overrun the deadline by up to one poll.
func WithReadyDeadline(d time.Duration) Option {
	return optFunc(func(cfg *channelConfig) error {
		if d < 0 {
			return errors.New("scpi: ready deadline must not be negative")
		}
		cfg.readyDeadline = d

		return nil
	})
}

// WithLogger sets the logger for the command trace.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *channelConfig) error {
		if l == nil {
			return errors.New("scpi: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithPollHook registers fn to be called for every readiness poll.
func WithPollHook(fn func()) Option {
	return optFunc(func(cfg *channelConfig) error {
		cfg.onPoll = fn
		return nil
	})
}

// WithCommandHook registers fn to be called for every command sent.
func WithCommandHook(fn func(cmd string)) Option {
	return optFunc(func(cfg *channelConfig) error {
		cfg.onCommand = fn
		return nil
	})
}
