package block

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// DefaultReadTimeout bounds each follow-up read while accumulating a block.
const DefaultReadTimeout = time.Second

// Reader is the byte source Accumulate pulls further data from.
// It is satisfied by *transport.Session.
type Reader interface {
	ReadUntil(delim byte, timeout time.Duration) ([]byte, error)
}

// State is the reassembly state of a block transfer.
type State int

const (
	StateStart      State = iota // initial reply received, header not yet checked
	StateAccumulate              // header valid, buffer shorter than the block
	StateComplete                // buffer holds the whole block
	StateIncomplete              // the stream went quiet before the block was complete
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAccumulate:
		return "accumulate"
	case StateComplete:
		return "complete"
	case StateIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type accumulateConfig struct {
	readTimeout time.Duration
	logger      logger.Logger
	onShortRead func(received, expected int)
	onChunk     func(n int)
}

// AccumulateOption is a functional option for Accumulate.
type AccumulateOption interface {
	apply(*accumulateConfig) error
}

type accOptFunc func(*accumulateConfig) error

func (f accOptFunc) apply(cfg *accumulateConfig) error { return f(cfg) }

// WithReadTimeout sets the timeout of each follow-up read.
func WithReadTimeout(d time.Duration) AccumulateOption {
	return accOptFunc(func(cfg *accumulateConfig) error {
		if d <= 0 {
			return errors.New("block: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithLogger sets the logger for short-read diagnostics.
func WithLogger(l logger.Logger) AccumulateOption {
	return accOptFunc(func(cfg *accumulateConfig) error {
		if l == nil {
			return errors.New("block: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithShortReadHook registers fn to be called each time the buffer is found
// shorter than the block. Used for metrics collection.
func WithShortReadHook(fn func(received, expected int)) AccumulateOption {
	return accOptFunc(func(cfg *accumulateConfig) error {
		cfg.onShortRead = fn
		return nil
	})
}

// WithChunkHook registers fn to be called with the size of every follow-up
// chunk appended to the buffer.
func WithChunkHook(fn func(n int)) AccumulateOption {
	return accOptFunc(func(cfg *accumulateConfig) error {
		cfg.onChunk = fn
		return nil
	})
}

// Accumulate completes a block whose first bytes are in initial and returns
// its payload.
//
// While the buffer is shorter than the block, Accumulate performs one bounded
// read on r and appends the result. The first read that yields no data ends the
// transfer: the block is then incomplete and ErrIncompleteTransfer is returned.
// A header that cannot be parsed from initial returns ErrMalformedHeader
// without reading.
//
// ctx is checked before each read.
func Accumulate(ctx context.Context, r Reader, initial []byte, opts ...AccumulateOption) ([]byte, error) {
	cfg := &accumulateConfig{
		readTimeout: DefaultReadTimeout,
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	buf := append([]byte(nil), initial...)
	state := StateStart

	for {
		expected, err := TotalLength(buf)
		if err != nil {
			cfg.logger.Error("block: cannot parse block header", "state", state, "bytes", len(buf), "error", err)
			return nil, err
		}

		if len(buf) >= expected {
			state = StateComplete
			break
		}

		if state == StateIncomplete {
			cfg.logger.Error("block: still shorter than expected after reading all data chunks",
				"received", len(buf),
				"expected", expected,
			)

			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrIncompleteTransfer, len(buf), expected)
		}

		state = StateAccumulate
		cfg.logger.Warn("block: received less data than expected",
			"received", len(buf),
			"expected", expected,
		)
		if cfg.onShortRead != nil {
			cfg.onShortRead(len(buf), expected)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunk, err := r.ReadUntil(Terminator, cfg.readTimeout)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("block: read after %d of %d bytes: %w", len(buf), expected, err)
		}

		if len(chunk) == 0 {
			state = StateIncomplete
			continue
		}

		buf = append(buf, chunk...)
		cfg.logger.Warn("block: leftover bytes added", "bytes", len(chunk), "received", len(buf))
		if cfg.onChunk != nil {
			cfg.onChunk(len(chunk))
		}
	}

	cfg.logger.Debug("block: transfer complete", "state", state, "bytes", len(buf))

	return Payload(buf)
}
