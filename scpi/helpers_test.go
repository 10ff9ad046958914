package scpi

import (
	"errors"
	"time"
)

// fakeInstrument is a scripted Transport. Each ReadUntil returns the next
// queued reply; once the queue is empty it behaves like a silent instrument.
type fakeInstrument struct {
	writes  []string
	replies [][]byte
	reads   int

	// silentErr is returned by reads once the replies run out.
	silentErr error
	// silentDelay is slept on silent reads, capped by the read timeout.
	silentDelay time.Duration
	// writeErr fails every write when set.
	writeErr error
}

func newFakeInstrument(replies ...string) *fakeInstrument {
	f := &fakeInstrument{}
	for _, r := range replies {
		f.replies = append(f.replies, []byte(r))
	}

	return f
}

func (f *fakeInstrument) Write(data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, string(data))

	return nil
}

func (f *fakeInstrument) ReadUntil(_ byte, timeout time.Duration) ([]byte, error) {
	f.reads++
	if len(f.replies) == 0 {
		if f.silentDelay > 0 {
			time.Sleep(min(f.silentDelay, timeout))
		}

		return []byte{}, f.silentErr
	}
	r := f.replies[0]
	f.replies = f.replies[1:]

	return r, nil
}

func (f *fakeInstrument) count(cmd string) int {
	n := 0
	for _, w := range f.writes {
		if w == cmd {
			n++
		}
	}

	return n
}

var errWire = errors.New("wire cut")

