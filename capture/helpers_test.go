package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-lxi/config"
	"github.com/arloliu/go-lxi/internal/fakescope"
	"github.com/arloliu/go-lxi/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

var testTime = time.Date(2026, 10, 19, 14, 30, 5, 0, time.Local)

// screenBMP returns a BMP screen dump whose pixel data contains NUL and
// newline bytes.
func screenBMP(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: byte(x), G: 0x0A, B: byte(y * 12), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	require.True(t, bytes.IndexByte(buf.Bytes(), '\n') >= 0)
	require.True(t, bytes.IndexByte(buf.Bytes(), 0x00) >= 0)

	return buf.Bytes()
}

// startScope serves in on a loopback listener and returns a config pointing at it.
func startScope(t *testing.T, in *fakescope.Instrument) config.Config {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() { _ = in.Serve(ln) }()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Host = host
	cfg.Port = port
	cfg.SavePath = t.TempDir()
	cfg.Ping = false
	cfg.ReplyTimeout = 300 * time.Millisecond

	return cfg
}

// closeTracker counts Close calls on the wrapped session.
type closeTracker struct {
	Session
	closed atomic.Int32
}

func (c *closeTracker) Close() error {
	c.closed.Add(1)
	return c.Session.Close()
}

// trackingDialer dials over TCP and records the session for inspection.
func trackingDialer(tracked **closeTracker) Dialer {
	return func(ctx context.Context, ep transport.Endpoint) (Session, error) {
		s, err := transport.Dial(ctx, ep)
		if err != nil {
			return nil, err
		}
		*tracked = &closeTracker{Session: s}

		return *tracked, nil
	}
}

type fakePinger struct {
	err   error
	hosts []string
}

func (p *fakePinger) Ping(_ context.Context, host string) error {
	p.hosts = append(p.hosts, host)
	return p.err
}

var errUnreachable = errors.New("host unreachable")

func fixedClock() time.Time { return testTime }

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}
