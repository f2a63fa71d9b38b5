// SPDX-License-Identifier: MIT

// Package transport carries live session data (feature frames, analysis
// records) to observers outside the process.
package transport

import (
	"errors"
	"time"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block the caller for long.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one feature row as produced during acquisition.
type Frame struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Columns []string  `json:"columns,omitempty"`
	Values  []float64 `json:"values"`
}

// Multi fans every Send out to each transport in order.
type Multi []Transport

// Send delivers data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
