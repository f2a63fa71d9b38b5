// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"eeg/internal/log"
)

// LoggingTransport writes a one-line description of every nth item to the
// debug log.
type LoggingTransport struct {
	every uint64
	seen  atomic.Uint64
}

// NewLoggingTransport logs one item in every. every <= 1 logs all of them.
func NewLoggingTransport(every int) *LoggingTransport {
	return &LoggingTransport{every: uint64(max(every, 1))}
}

func (lt *LoggingTransport) Send(data any) error {
	n := lt.seen.Add(1)
	if (n-1)%lt.every != 0 {
		return nil
	}
	switch v := data.(type) {
	case Frame:
		logFrame(&v)
	case *Frame:
		logFrame(v)
	default:
		log.Debugf("Transport: %T %+v", data, data)
	}
	return nil
}

func logFrame(f *Frame) {
	log.Debugf("Transport: Frame %d at %s (%d values)", f.Seq, f.Time.Format("15:04:05.000"), len(f.Values))
}

// Seen returns how many items were offered, logged or not.
func (lt *LoggingTransport) Seen() uint64 { return lt.seen.Load() }

func (lt *LoggingTransport) Close() error { return nil }

var _ Transport = (*LoggingTransport)(nil)
