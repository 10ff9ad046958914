// Package block decodes IEEE 488.2 definite-length arbitrary blocks as sent by
// Rigol oscilloscopes in reply to binary queries such as ":DISP:DATA?".
//
// # Wire Format
//
//	#<n><len: n ASCII digits><payload: len bytes><terminator: 1 byte>
//
// For example "#9000001024" followed by 1024 payload bytes and a trailing "\n"
// has a header length of 11, a payload length of 1024 and a total length of 1036.
//
// # Reassembly
//
// The payload is arbitrary binary data and may contain 0x0A bytes, so a
// newline-delimited read usually returns only part of a block. [Accumulate]
// keeps reading until the buffer reaches the length announced by the header, or
// gives up on the first read that returns nothing.
package block
