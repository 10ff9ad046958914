package capture

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Metrics counts capture activity. All counters are safe for concurrent reads.
// Counters can be used as the value of a prometheus CounterFunc.
type Metrics struct {
	// ReadyPollCount indicates the number of "*OPC?" polls sent.
	ReadyPollCount *xsync.Counter
	// CommandCount indicates the number of commands sent after the readiness gate opened.
	CommandCount *xsync.Counter
	// BytesReceived indicates the number of block bytes received.
	BytesReceived *xsync.Counter
	// ShortReadCount indicates how often a block was found shorter than announced.
	ShortReadCount *xsync.Counter
	// CaptureOKCount indicates the number of captures saved.
	CaptureOKCount *xsync.Counter
	// CaptureErrCount indicates the number of failed captures.
	CaptureErrCount *xsync.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadyPollCount:  xsync.NewCounter(),
		CommandCount:    xsync.NewCounter(),
		BytesReceived:   xsync.NewCounter(),
		ShortReadCount:  xsync.NewCounter(),
		CaptureOKCount:  xsync.NewCounter(),
		CaptureErrCount: xsync.NewCounter(),
	}
}

// logFields returns the counters as logger key/value pairs.
func (m *Metrics) logFields() []any {
	return []any{
		"readyPolls", m.ReadyPollCount.Value(),
		"commands", m.CommandCount.Value(),
		"bytesReceived", m.BytesReceived.Value(),
		"shortReads", m.ShortReadCount.Value(),
		"capturesOK", m.CaptureOKCount.Value(),
		"capturesFailed", m.CaptureErrCount.Value(),
	}
}
