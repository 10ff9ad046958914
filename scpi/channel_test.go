package scpi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/arloliu/go-lxi/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const opc = CmdOperationComplete + "\n"

func newTestChannel(t *testing.T, tr Transport, opts ...Option) *Channel {
	t.Helper()

	ch, err := NewChannel(tr, opts...)
	require.NoError(t, err)

	return ch
}

func TestAwaitReady_SecondPoll(t *testing.T) {
	f := newFakeInstrument("0\n", "1\n")
	ch := newTestChannel(t, f)

	require.NoError(t, ch.AwaitReady(context.Background()))
	assert.Equal(t, []string{opc, opc}, f.writes)
}

func TestAwaitReady_LogsPollsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewSlogWithWriter(logger.InfoLevel, false, &buf)

	f := newFakeInstrument("0\n", "1\n")
	ch := newTestChannel(t, f, WithLogger(l))
	require.NoError(t, ch.AwaitReady(context.Background()))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "scpi: command sent"))
	assert.Equal(t, 2, strings.Count(out, "scpi: reply received"))
	assert.Contains(t, out, CmdOperationComplete)
}

func TestAwaitReady_OnlyExactReplyOpensGate(t *testing.T) {
	f := newFakeInstrument("1", " 1\n", "1\r\n", "", "11\n", "1\n")
	ch := newTestChannel(t, f)

	require.NoError(t, ch.AwaitReady(context.Background()))
	assert.Equal(t, 6, f.count(opc))
}

func TestAwaitReady_SilentInstrumentNeverProceeds(t *testing.T) {
	f := newFakeInstrument()
	ch := newTestChannel(t, f, WithReadyAttemptLimit(25))

	err := ch.AwaitReady(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 25, f.count(opc))
	assert.Equal(t, 25, f.reads)
}

func TestAwaitReady_Deadline(t *testing.T) {
	f := newFakeInstrument()
	f.silentDelay = 5 * time.Millisecond
	ch := newTestChannel(t, f,
		WithPollTimeout(5*time.Millisecond),
		WithReadyDeadline(30*time.Millisecond),
	)

	start := time.Now()
	err := ch.AwaitReady(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Positive(t, f.count(opc))
}

func TestAwaitReady_ContextCancelled(t *testing.T) {
	f := newFakeInstrument()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestChannel(t, f).AwaitReady(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.writes)
}

func TestAwaitReady_ContextCancelledWhilePolling(t *testing.T) {
	f := newFakeInstrument()
	f.silentDelay = 2 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := newTestChannel(t, f, WithPollTimeout(2*time.Millisecond)).AwaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitReady_PeerClosed(t *testing.T) {
	f := newFakeInstrument("0\n")
	f.silentErr = io.EOF

	err := newTestChannel(t, f).AwaitReady(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, f.count(opc))
}

func TestAwaitReady_WriteError(t *testing.T) {
	f := newFakeInstrument("1\n")
	f.writeErr = errWire

	err := newTestChannel(t, f).AwaitReady(context.Background())
	assert.ErrorIs(t, err, errWire)
}

func TestQueryText(t *testing.T) {
	f := newFakeInstrument("0\n", "1\n", "RIGOL TECHNOLOGIES,DS2202E,DS2E1234567,00.01.02.03\n")

	var polls int
	var sent []string
	ch := newTestChannel(t, f,
		WithPollHook(func() { polls++ }),
		WithCommandHook(func(cmd string) { sent = append(sent, cmd) }),
	)

	reply, err := ch.QueryText(context.Background(), CmdIdentify)
	require.NoError(t, err)
	assert.Equal(t, "RIGOL TECHNOLOGIES,DS2202E,DS2E1234567,00.01.02.03\n", reply)
	assert.Equal(t, []string{opc, opc, "*IDN?\n"}, f.writes)
	assert.Equal(t, 2, polls)
	assert.Equal(t, []string{CmdIdentify}, sent)
}

func TestQueryText_EmptyReply(t *testing.T) {
	f := newFakeInstrument("1\n")

	reply, err := newTestChannel(t, f).QueryText(context.Background(), CmdIdentify)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestQueryBinary_RawBytes(t *testing.T) {
	raw := "#9000000004\x00\n"
	f := newFakeInstrument("1\n", raw)

	reply, err := newTestChannel(t, f).QueryBinary(context.Background(), CmdDisplayData)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), reply)
	assert.Equal(t, []string{opc, ":DISP:DATA?\n"}, f.writes)
}

func TestQueryBinary_PeerClosedAfterCommand(t *testing.T) {
	f := newFakeInstrument("1\n")
	f.silentErr = io.EOF

	reply, err := newTestChannel(t, f).QueryBinary(context.Background(), CmdDisplayData)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestNewChannel_InvalidArgs(t *testing.T) {
	_, err := NewChannel(nil)
	require.Error(t, err)

	tests := []struct {
		name string
		opt  Option
	}{
		{"zero poll timeout", WithPollTimeout(0)},
		{"zero reply timeout", WithReplyTimeout(0)},
		{"negative attempt limit", WithReadyAttemptLimit(-1)},
		{"negative deadline", WithReadyDeadline(-time.Second)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChannel(newFakeInstrument(), tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestChannel_Reader(t *testing.T) {
	f := newFakeInstrument()
	assert.Same(t, f, newTestChannel(t, f).Reader())
}
