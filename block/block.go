package block

import (
	"errors"
	"fmt"
	"strconv"
)

// Marker is the first byte of a definite-length block.
const Marker byte = '#'

// Terminator is the byte the instrument appends after the payload.
const Terminator byte = '\n'

// MaxLengthDigits is the largest digit count a single header digit can announce.
const MaxLengthDigits = 9

// minHeaderSize covers the marker and the digit-count byte.
const minHeaderSize = 2

// terminatorSize is the number of bytes following the payload.
const terminatorSize = 1

var (
	// ErrMalformedHeader reports a block header that cannot be parsed.
	ErrMalformedHeader = errors.New("block: malformed header")
	// ErrIncompleteTransfer reports a block that ended before the announced length.
	ErrIncompleteTransfer = errors.New("block: incomplete transfer")
)

// HeaderLength returns the size of the block header: the marker, the digit-count
// byte and the length digits.
func HeaderLength(buf []byte) (int, error) {
	if len(buf) < minHeaderSize {
		return 0, fmt.Errorf("%w: got %d bytes, need at least %d", ErrMalformedHeader, len(buf), minHeaderSize)
	}

	d := buf[1]
	if d < '0' || d > '9' {
		return 0, fmt.Errorf("%w: digit count byte 0x%02X is not an ASCII digit", ErrMalformedHeader, d)
	}

	return minHeaderSize + int(d-'0'), nil
}

// PayloadLength returns the payload size announced by the header.
func PayloadLength(buf []byte) (int, error) {
	hdrLen, err := HeaderLength(buf)
	if err != nil {
		return 0, err
	}

	if hdrLen == minHeaderSize {
		return 0, fmt.Errorf("%w: header announces zero length digits", ErrMalformedHeader)
	}

	if len(buf) < hdrLen {
		return 0, fmt.Errorf("%w: got %d bytes, header needs %d", ErrMalformedHeader, len(buf), hdrLen)
	}

	digits := buf[minHeaderSize:hdrLen]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: length field %q is not decimal", ErrMalformedHeader, digits)
		}
	}

	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, fmt.Errorf("%w: length field %q: %w", ErrMalformedHeader, digits, err)
	}

	return n, nil
}

// TotalLength returns the number of bytes a complete block occupies on the
// wire: header, payload and terminator.
func TotalLength(buf []byte) (int, error) {
	hdrLen, err := HeaderLength(buf)
	if err != nil {
		return 0, err
	}

	payloadLen, err := PayloadLength(buf)
	if err != nil {
		return 0, err
	}

	return hdrLen + payloadLen + terminatorSize, nil
}

// Payload returns a copy of the payload of a complete block.
//
// Bytes beyond the announced payload (the terminator and anything after it)
// are discarded. A buffer shorter than TotalLength returns ErrIncompleteTransfer.
func Payload(buf []byte) ([]byte, error) {
	total, err := TotalLength(buf)
	if err != nil {
		return nil, err
	}

	if len(buf) < total {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrIncompleteTransfer, len(buf), total)
	}

	// TotalLength already validated both lengths.
	hdrLen, _ := HeaderLength(buf)
	payloadLen, _ := PayloadLength(buf)

	out := make([]byte, payloadLen)
	copy(out, buf[hdrLen:hdrLen+payloadLen])

	return out, nil
}

// Encode wraps payload in a definite-length block followed by Terminator.
//
// The length field uses the minimal number of digits, so payloads larger than
// 999,999,999 bytes cannot be encoded and cause a panic.
func Encode(payload []byte) []byte {
	return EncodeWidth(payload, 0)
}

// EncodeWidth is like Encode but zero-pads the length field to width digits,
// the way Rigol instruments do ("#9000001152").
// A width smaller than the minimal digit count is ignored.
func EncodeWidth(payload []byte, width int) []byte {
	lenField := strconv.Itoa(len(payload))
	if width > MaxLengthDigits {
		width = MaxLengthDigits
	}
	if len(lenField) < width {
		lenField = fmt.Sprintf("%0*d", width, len(payload))
	}
	if len(lenField) > MaxLengthDigits {
		panic("block: payload too large for a definite-length header")
	}

	buf := make([]byte, 0, minHeaderSize+len(lenField)+len(payload)+terminatorSize)
	buf = append(buf, Marker, byte('0'+len(lenField)))
	buf = append(buf, lenField...)
	buf = append(buf, payload...)
	buf = append(buf, Terminator)

	return buf
}
