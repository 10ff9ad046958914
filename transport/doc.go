// Package transport provides the raw TCP byte stream used to talk to LXI
// instruments.
//
// The stream is binary-safe: every byte value 0x00-0xFF is delivered as received.
// Telnet-style readers are unsuitable because they treat NUL and IAC (0xFF)
// specially, and instrument screen dumps contain both.
//
// # Reading
//
// [Session.ReadUntil] opens a single read window bounded by a timeout and returns
// whatever arrived in that window, stopping early once the delimiter byte has
// been read. An empty result with a nil error means the window expired with no
// data; callers decide whether that is a failure.
//
// A Session is NOT goroutine-safe. Instruments honor one command at a time, so
// the owner issues one write/read exchange at a time.
package transport
