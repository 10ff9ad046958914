package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// DefaultPort is the raw SCPI socket port of Rigol LXI instruments.
const DefaultPort = 5555

// DefaultConnectTimeout is the TCP dial timeout.
const DefaultConnectTimeout = 3 * time.Second

// previewLen caps how many bytes of a frame are quoted in debug logs.
const previewLen = 64

// Endpoint identifies a remote instrument.
type Endpoint struct {
	Host string
	Port int
}

// Addr returns "host:port".
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.Addr() }

// Validate checks that the endpoint has a host and a port in range.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return errors.New("transport: empty host")
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("transport: port %d out of range [1, 65535]", e.Port)
	}

	return nil
}

type options struct {
	connectTimeout time.Duration
	logger         logger.Logger
}

// Option is a functional option for Dial.
type Option interface {
	apply(*options) error
}

type optFunc func(*options) error

func (f optFunc) apply(o *options) error { return f(o) }

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(o *options) error {
		if d <= 0 {
			return errors.New("transport: connect timeout must be positive")
		}
		o.connectTimeout = d

		return nil
	})
}

// WithLogger sets the logger used for wire tracing.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(o *options) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		o.logger = l

		return nil
	})
}
