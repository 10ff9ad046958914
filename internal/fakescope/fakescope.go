// Package fakescope simulates the SCPI socket of a Rigol DS2202E closely enough
// to exercise a full screen capture without hardware.
package fakescope

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-lxi/block"
	"github.com/arloliu/go-lxi/logger"
)

// DefaultIdentity is the "*IDN?" reply of the simulated instrument.
const DefaultIdentity = "RIGOL TECHNOLOGIES,DS2202E,DS2E000000001,00.03.05"

// Instrument is a simulated oscilloscope. Configure it before serving.
type Instrument struct {
	// Identity is returned for "*IDN?" without the trailing newline.
	Identity string
	// Screen is the payload returned for ":DISP:DATA?".
	Screen []byte
	// LengthDigits zero-pads the block length field, as the real instrument does with 9.
	LengthDigits int
	// BusyPolls is the number of "0" replies sent before each "1" to "*OPC?".
	BusyPolls int
	// ChunkSize splits the block into writes of this many bytes; 0 sends it at once.
	ChunkSize int
	// ChunkDelay is slept between chunks.
	ChunkDelay time.Duration
	// Truncate drops this many bytes from the end of the block.
	Truncate int
	// RemoteDisabled answers every query with "command error".
	RemoteDisabled bool

	Logger logger.Logger

	mu       sync.Mutex
	commands []string
	busyLeft int
}

// New returns an instrument serving screen with the default identity.
func New(screen []byte) *Instrument {
	return &Instrument{
		Identity:     DefaultIdentity,
		Screen:       screen,
		LengthDigits: block.MaxLengthDigits,
	}
}

// Commands returns the commands received so far, in order.
func (in *Instrument) Commands() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]string, len(in.commands))
	copy(out, in.commands)

	return out
}

// Serve accepts connections on ln and serves them one at a time until ln is closed.
func (in *Instrument) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		if err := in.ServeConn(conn); err != nil {
			in.log().Warn("fakescope: connection ended with error", "error", err)
		}
	}
}

// ServeConn answers commands on conn until the peer closes it.
func (in *Instrument) ServeConn(conn net.Conn) error {
	defer conn.Close()

	in.mu.Lock()
	in.busyLeft = in.BusyPolls
	in.mu.Unlock()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		cmd := strings.TrimSpace(line)
		in.mu.Lock()
		in.commands = append(in.commands, cmd)
		in.mu.Unlock()

		in.log().Debug("fakescope: command received", "command", cmd)

		if err := in.reply(conn, cmd); err != nil {
			return err
		}
	}
}

func (in *Instrument) reply(conn net.Conn, cmd string) error {
	switch strings.ToUpper(cmd) {
	case "*OPC?":
		in.mu.Lock()
		busy := in.busyLeft > 0
		if busy {
			in.busyLeft--
		} else {
			in.busyLeft = in.BusyPolls
		}
		in.mu.Unlock()

		if busy {
			return write(conn, []byte("0\n"))
		}

		return write(conn, []byte("1\n"))

	case "*IDN?":
		if in.RemoteDisabled {
			return write(conn, []byte("command error\n"))
		}

		return write(conn, []byte(in.Identity+"\n"))

	case ":DISP:DATA?", ":DISPLAY:DATA?":
		if in.RemoteDisabled {
			return write(conn, []byte("command error\n"))
		}

		return in.sendScreen(conn)
	}

	// Unknown commands get no reply, like the real instrument.
	return nil
}

func (in *Instrument) sendScreen(conn net.Conn) error {
	data := block.EncodeWidth(in.Screen, in.LengthDigits)
	if in.Truncate > 0 {
		data = data[:max(len(data)-in.Truncate, 0)]
	}

	if in.ChunkSize <= 0 {
		return write(conn, data)
	}

	for off := 0; off < len(data); off += in.ChunkSize {
		end := min(off+in.ChunkSize, len(data))
		if err := write(conn, data[off:end]); err != nil {
			return err
		}
		if in.ChunkDelay > 0 && end < len(data) {
			time.Sleep(in.ChunkDelay)
		}
	}

	return nil
}

func (in *Instrument) log() logger.Logger {
	if in.Logger != nil {
		return in.Logger
	}

	return logger.GetLogger()
}

func write(conn net.Conn, data []byte) error {
	_, err := conn.Write(data)
	return err
}
