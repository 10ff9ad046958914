package capture

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-lxi/imaging"
	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/scpi"
	"github.com/arloliu/go-lxi/transport"
)

// Session is an open byte stream to the instrument.
// It is satisfied by *transport.Session.
type Session interface {
	scpi.Transport
	Close() error
}

// Dialer opens a Session to an endpoint.
type Dialer func(ctx context.Context, ep transport.Endpoint) (Session, error)

// Pinger probes whether a host answers on the network.
type Pinger interface {
	Ping(ctx context.Context, host string) error
}

// ImageSaver validates a screen payload and persists it in a format.
type ImageSaver interface {
	Save(path string, payload []byte, f imaging.Format) error
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventPingFailed EventKind = iota // the reachability probe got no reply
	EventIdentified                  // the instrument identity was validated
	EventReceiving                   // the screen query was sent
	EventSaved                       // the image file was written
)

// Event reports capture progress to a user interface.
type Event struct {
	Kind     EventKind
	Host     string
	Identity scpi.Identity
	Path     string
	Err      error
}

// Option is a functional option for New.
type Option interface {
	apply(*Capturer) error
}

type optFunc func(*Capturer) error

func (f optFunc) apply(c *Capturer) error { return f(c) }

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return optFunc(func(c *Capturer) error {
		if d == nil {
			return errors.New("capture: dialer must not be nil")
		}
		c.dial = d

		return nil
	})
}

// WithPinger replaces the reachability probe. A nil Pinger disables it.
func WithPinger(p Pinger) Option {
	return optFunc(func(c *Capturer) error {
		c.pinger = p
		return nil
	})
}

// WithImageSaver replaces the image encoder and writer.
func WithImageSaver(s ImageSaver) Option {
	return optFunc(func(c *Capturer) error {
		if s == nil {
			return errors.New("capture: image saver must not be nil")
		}
		c.saver = s

		return nil
	})
}

// WithClock replaces the time source used for file names.
func WithClock(now func() time.Time) Option {
	return optFunc(func(c *Capturer) error {
		if now == nil {
			return errors.New("capture: clock must not be nil")
		}
		c.now = now

		return nil
	})
}

// WithLogger sets the logger for the capture and its protocol layers.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Capturer) error {
		if l == nil {
			return errors.New("capture: logger must not be nil")
		}
		c.logger = l

		return nil
	})
}

// WithEventHandler registers fn to receive progress events.
func WithEventHandler(fn func(Event)) Option {
	return optFunc(func(c *Capturer) error {
		c.onEvent = fn
		return nil
	})
}

// WithChannelOptions appends options to the SCPI channel of each capture,
// e.g. scpi.WithReadyAttemptLimit.
func WithChannelOptions(opts ...scpi.Option) Option {
	return optFunc(func(c *Capturer) error {
		c.channelOpts = append(c.channelOpts, opts...)
		return nil
	})
}
