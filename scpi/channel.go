package scpi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// SCPI commands used by the capture.
const (
	CmdOperationComplete = "*OPC?"
	CmdIdentify          = "*IDN?"
	CmdDisplayData       = ":DISP:DATA?"
)

// readyReply is the only "*OPC?" reply that opens the gate.
const readyReply = "1\n"

// lineEnd terminates every command and text reply.
const lineEnd byte = '\n'

var (
	// ErrProtocol reports an unexpected or invalid reply from the instrument.
	ErrProtocol = errors.New("scpi: protocol error")
	// ErrTimeout reports that a bounded readiness wait expired.
	ErrTimeout = errors.New("scpi: timeout waiting for instrument ready")
)

// Transport is the byte stream a Channel talks over.
// It is satisfied by *transport.Session.
type Transport interface {
	Write(data []byte) error
	ReadUntil(delim byte, timeout time.Duration) ([]byte, error)
}

// Channel sends SCPI commands to one instrument, gating each command on
// instrument readiness.
//
// This type is NOT goroutine-safe.
type Channel struct {
	tr  Transport
	cfg *channelConfig
}

// NewChannel creates a Channel over tr.
func NewChannel(tr Transport, opts ...Option) (*Channel, error) {
	if tr == nil {
		return nil, errors.New("scpi: transport is nil")
	}

	cfg := &channelConfig{
		pollTimeout:  DefaultPollTimeout,
		replyTimeout: DefaultReplyTimeout,
		logger:       logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return &Channel{tr: tr, cfg: cfg}, nil
}

// AwaitReady blocks until the instrument answers "*OPC?" with "1\n".
//
// Without a configured attempt limit or deadline it polls until ctx is done.
func (c *Channel) AwaitReady(ctx context.Context) error {
	var deadline time.Time
	if c.cfg.readyDeadline > 0 {
		deadline = time.Now().Add(c.cfg.readyDeadline)
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.cfg.readyAttemptLimit > 0 && attempt > c.cfg.readyAttemptLimit {
			return fmt.Errorf("%w: no ready reply after %d polls", ErrTimeout, c.cfg.readyAttemptLimit)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w: no ready reply within %v", ErrTimeout, c.cfg.readyDeadline)
		}

		if err := c.tr.Write([]byte(CmdOperationComplete + string(lineEnd))); err != nil {
			return err
		}
		if c.cfg.onPoll != nil {
			c.cfg.onPoll()
		}
		c.cfg.logger.Info("scpi: command sent", "command", CmdOperationComplete, "attempt", attempt)

		reply, err := c.tr.ReadUntil(lineEnd, c.cfg.pollTimeout)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("scpi: connection closed while polling readiness: %w", err)
			}

			return err
		}
		c.cfg.logger.Info("scpi: reply received", "command", CmdOperationComplete, "reply", string(reply))

		if string(reply) == readyReply {
			return nil
		}
	}
}

// QueryText sends cmd once the instrument is ready and returns the reply as
// text. An instrument that stays silent for the reply timeout yields an empty
// string; callers decide whether that is acceptable.
func (c *Channel) QueryText(ctx context.Context, cmd string) (string, error) {
	reply, err := c.exchange(ctx, cmd)
	if err != nil {
		return "", err
	}
	c.cfg.logger.Info("scpi: reply received", "command", cmd, "reply", string(reply))

	return string(reply), nil
}

// QueryBinary sends cmd once the instrument is ready and returns the first
// reply window as raw bytes.
func (c *Channel) QueryBinary(ctx context.Context, cmd string) ([]byte, error) {
	reply, err := c.exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	c.cfg.logger.Info("scpi: reply received", "command", cmd, "bytes", len(reply), "head", fmt.Sprintf("%q", head(reply)))

	return reply, nil
}

// Reader returns the transport so a caller can continue reading a reply that
// spans several windows.
func (c *Channel) Reader() Transport { return c.tr }

func (c *Channel) exchange(ctx context.Context, cmd string) ([]byte, error) {
	c.cfg.logger.Info("scpi: command to be sent", "command", cmd)

	if err := c.AwaitReady(ctx); err != nil {
		return nil, err
	}

	if err := c.tr.Write([]byte(cmd + string(lineEnd))); err != nil {
		return nil, err
	}
	if c.cfg.onCommand != nil {
		c.cfg.onCommand(cmd)
	}
	c.cfg.logger.Info("scpi: command sent", "command", cmd)

	reply, err := c.tr.ReadUntil(lineEnd, c.cfg.replyTimeout)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return reply, nil
}

// head returns at most the first 16 bytes of b, enough to show a block header.
func head(b []byte) []byte {
	if len(b) > 16 {
		return b[:16]
	}

	return b
}
