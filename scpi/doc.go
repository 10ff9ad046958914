// Package scpi implements the host side of the SCPI command exchange used by
// Rigol LXI oscilloscopes over a raw socket.
//
// # Readiness Gate
//
// The instrument honors one command at a time. Before every command the
// [Channel] writes "*OPC?" and waits for the exact reply "1\n"; any other
// reply, including silence for the poll timeout, starts another poll. By
// default the gate retries forever. [WithReadyAttemptLimit] and
// [WithReadyDeadline] bound it, returning [ErrTimeout] when exhausted.
//
// # Queries
//
// [Channel.QueryText] returns the reply decoded as text and
// [Channel.QueryBinary] returns it as raw bytes for payload-bearing queries.
// Both read a single reply window; a binary reply that spans several windows is
// completed by the block package.
package scpi
