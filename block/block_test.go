package block

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePayload returns n bytes cycling through every byte value, so payloads
// contain NUL and newline bytes.
func makePayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)
	}

	return p
}

func TestHeader_RigolScreenDump(t *testing.T) {
	payload := makePayload(1024)
	buf := append([]byte("#800001024"), payload...)
	buf = append(buf, '\n')

	hdrLen, err := HeaderLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, hdrLen)

	payloadLen, err := PayloadLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 1024, payloadLen)

	total, err := TotalLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 1035, total)
	assert.Len(t, buf, total)

	got, err := Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestHeader_NineDigitLengthField(t *testing.T) {
	payload := makePayload(1024)
	buf := append([]byte("#9000001024"), payload...)
	buf = append(buf, '\n')

	hdrLen, err := HeaderLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 11, hdrLen)

	payloadLen, err := PayloadLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 1024, payloadLen)

	total, err := TotalLength(buf)
	require.NoError(t, err)
	assert.Equal(t, 1036, total)

	got, err := Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got, "payload is exactly the bytes following the header")
}

func TestTotalLength_Identity(t *testing.T) {
	for _, size := range []int{0, 1, 9, 10, 255, 1152054} {
		for _, width := range []int{0, 7, 9} {
			buf := EncodeWidth(makePayload(size), width)

			hdrLen, err := HeaderLength(buf)
			require.NoError(t, err)
			payloadLen, err := PayloadLength(buf)
			require.NoError(t, err)
			total, err := TotalLength(buf)
			require.NoError(t, err)

			assert.Equal(t, hdrLen+payloadLen+1, total, "size=%d width=%d", size, width)
			assert.Equal(t, size, payloadLen)

			got, err := Payload(buf[:total])
			require.NoError(t, err)
			assert.Len(t, got, payloadLen)
		}
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	payload := []byte("BM\x00\x00\n\r\nscreen\xff\x00")
	buf := Encode(payload)

	assert.Equal(t, Marker, buf[0])
	assert.Equal(t, Terminator, buf[len(buf)-1])

	got, err := Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Decoding the same complete buffer again yields the same payload.
	again, err := Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, Encode(payload), buf, "decoding does not modify the buffer")
}

func TestEncodeWidth(t *testing.T) {
	buf := EncodeWidth([]byte("abc"), 9)
	assert.True(t, bytes.HasPrefix(buf, []byte("#9000000003abc")))

	buf = EncodeWidth([]byte("abc"), 20)
	assert.True(t, bytes.HasPrefix(buf, []byte("#9000000003abc")), "width is capped at nine digits")

	buf = EncodeWidth(makePayload(12), 1)
	assert.True(t, bytes.HasPrefix(buf, []byte("#212")), "width below the minimal digit count is ignored")
}

func TestPayload_TrailingBytesDiscarded(t *testing.T) {
	buf := append(Encode([]byte("data")), "garbage"...)

	got, err := Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestPayload_Incomplete(t *testing.T) {
	buf := Encode(makePayload(100))

	_, err := Payload(buf[:len(buf)-1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteTransfer))
}

func TestHeader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte("#")},
		{"digit count not a digit", []byte("#A0001")},
		{"digit count is NUL", []byte{'#', 0x00, '1'}},
		{"zero length digits", []byte("#0\n")},
		{"length digits truncated", []byte("#9000")},
		{"length not decimal", []byte("#4 12x")},
		{"signed length", []byte("#3+12abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TotalLength(tt.buf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedHeader))

			_, err = Payload(tt.buf)
			assert.True(t, errors.Is(err, ErrMalformedHeader))
		})
	}
}

func TestHeaderLength_OneByteNeverZero(t *testing.T) {
	n, err := HeaderLength([]byte{'#'})
	require.ErrorIs(t, err, ErrMalformedHeader)
	assert.Zero(t, n)

	_, err = PayloadLength([]byte{'#'})
	require.ErrorIs(t, err, ErrMalformedHeader)
}
