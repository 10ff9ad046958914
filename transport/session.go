package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// ErrConnection reports that the instrument could not be reached, refused the
// connection, or the connection failed mid-exchange.
var ErrConnection = errors.New("transport: connection error")

// Session is an open byte stream bound to one Endpoint.
type Session struct {
	endpoint Endpoint
	conn     net.Conn
	reader   *bufio.Reader
	logger   logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial opens a Session to the endpoint.
//
// Failures to resolve, reach or connect wrap ErrConnection.
func Dial(ctx context.Context, ep Endpoint, opts ...Option) (*Session, error) {
	o := &options{
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(o); err != nil {
			return nil, err
		}
	}

	if err := ep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	dialer := net.Dialer{Timeout: o.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnection, ep.Addr(), err)
	}

	o.logger.Info("transport: connected", "addr", ep.Addr())

	return NewSession(conn, ep, o.logger), nil
}

// NewSession wraps an established connection.
//
// The Session takes ownership of conn and closes it on Close.
func NewSession(conn net.Conn, ep Endpoint, l logger.Logger) *Session {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Session{
		endpoint: ep,
		conn:     conn,
		reader:   bufio.NewReader(conn),
		logger:   l,
	}
}

// Endpoint returns the remote endpoint of the session.
func (s *Session) Endpoint() Endpoint { return s.endpoint }

// Write sends data verbatim.
func (s *Session) Write(data []byte) error {
	for written := 0; written < len(data); {
		n, err := s.conn.Write(data[written:])
		written += n

		if err != nil {
			return fmt.Errorf("%w: write: %w", ErrConnection, err)
		}
	}

	s.logger.Debug("transport: sent", "bytes", len(data), "data", preview(data))

	return nil
}

// ReadUntil reads for at most timeout and returns every byte received, stopping
// after delim has been read.
//
// An expired window returns the bytes read so far (possibly none) and a nil error.
// If the stream is closed before any byte arrives, io.EOF is returned.
func (s *Session) ReadUntil(delim byte, timeout time.Duration) ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		// net.Pipe rejects deadlines once either end is closed.
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("%w: set read deadline: %w", ErrConnection, err)
	}

	var out []byte
	for {
		chunk, err := s.reader.ReadSlice(delim)
		out = append(out, chunk...)

		switch {
		case err == nil:
			s.logRead(out, true)
			return out, nil

		case errors.Is(err, bufio.ErrBufferFull):
			continue

		case isTimeout(err):
			s.logRead(out, false)
			return out, nil

		case errors.Is(err, io.EOF):
			if len(out) == 0 {
				return out, io.EOF
			}
			s.logRead(out, false)

			return out, nil

		default:
			return out, fmt.Errorf("%w: read: %w", ErrConnection, err)
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := s.conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = fmt.Errorf("%w: close: %w", ErrConnection, err)
		}
		s.logger.Debug("transport: closed", "addr", s.endpoint.Addr())
	})

	return s.closeErr
}

func (s *Session) logRead(data []byte, delimited bool) {
	s.logger.Debug("transport: received",
		"bytes", len(data),
		"delimited", delimited,
		"data", preview(data),
	)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// preview quotes up to previewLen bytes for logging.
func preview(data []byte) string {
	if len(data) > previewLen {
		return fmt.Sprintf("%q...", data[:previewLen])
	}

	return fmt.Sprintf("%q", data)
}
