// SPDX-License-Identifier: MIT

// Package dsp holds the feature extraction contract used during acquisition
// and its default gonum-backed implementation.
package dsp

import (
	"fmt"

	"eeg/internal/band"
)

// Extractor reduces one epoch of multi-channel samples to one value per
// (band, channel). Values are ordered band-major, channel-minor, with bands
// in the order returned by Bands.
type Extractor interface {
	Bands() []band.Band
	Extract(window [][]float64, sampleRate float64) ([]float64, error)
}

// Filter is a stateful per-channel filter applied in place to incoming rows.
// State carries across calls and is never reset.
type Filter interface {
	Apply(rows [][]float64)
}

// ExtractionError marks an epoch that could not be reduced to features. It is
// recoverable: callers skip the epoch and keep going.
type ExtractionError struct {
	Reason  string
	Channel int // -1 when not tied to a channel
}

func (e *ExtractionError) Error() string {
	if e.Channel >= 0 {
		return fmt.Sprintf("feature extraction: channel %d: %s", e.Channel, e.Reason)
	}
	return "feature extraction: " + e.Reason
}

func extractionErr(channel int, format string, args ...any) *ExtractionError {
	return &ExtractionError{Reason: fmt.Sprintf(format, args...), Channel: channel}
}

// PassThrough is a Filter that leaves samples untouched.
type PassThrough struct{}

func (PassThrough) Apply([][]float64) {}

var _ Filter = PassThrough{}
