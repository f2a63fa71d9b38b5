// SPDX-License-Identifier: MIT

// Package buffer implements the fixed-capacity multi-channel window that
// acquisition pushes filtered samples into and reads epochs out of.
package buffer

import (
	"errors"
	"fmt"
	"math"

	"eeg/internal/dsp"
)

var (
	ErrInsufficientHistory = errors.New("buffer: requested more rows than capacity")
	ErrChannelMismatch     = errors.New("buffer: row width does not match channel count")
)

// Buffer stores exactly Capacity rows of Channels samples in a flat
// row-major slice, oldest row first. It starts zero-filled, so its length
// always equals its capacity. A Buffer is not safe for concurrent use.
type Buffer struct {
	data       []float64
	rows       int
	channels   int
	filled     int
	sampleRate float64
	filter     dsp.Filter
}

// RowsFor converts a duration in seconds to a row count at sampleRate.
func RowsFor(sampleRate, seconds float64) int {
	return int(math.Round(sampleRate * seconds))
}

// New allocates a buffer holding seconds of history at sampleRate. A nil
// filter is treated as dsp.PassThrough.
func New(sampleRate, seconds float64, channels int, filter dsp.Filter) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("buffer: sample rate must be positive, got %g", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("buffer: channel count must be positive, got %d", channels)
	}
	rows := RowsFor(sampleRate, seconds)
	if rows <= 0 {
		return nil, fmt.Errorf("buffer: %g s at %g Hz holds no rows", seconds, sampleRate)
	}
	if filter == nil {
		filter = dsp.PassThrough{}
	}
	return &Buffer{
		data:       make([]float64, rows*channels),
		rows:       rows,
		channels:   channels,
		sampleRate: sampleRate,
		filter:     filter,
	}, nil
}

// Push filters chunk in place and shift-appends it, dropping the oldest rows.
// A chunk larger than the capacity is filtered in full and only its newest
// rows are kept. On error nothing is pushed.
func (b *Buffer) Push(chunk [][]float64) error {
	for i, row := range chunk {
		if len(row) != b.channels {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrChannelMismatch, i, len(row), b.channels)
		}
	}
	if len(chunk) == 0 {
		return nil
	}

	b.filter.Apply(chunk)

	if len(chunk) > b.rows {
		chunk = chunk[len(chunk)-b.rows:]
	}
	n := len(chunk)
	copy(b.data, b.data[n*b.channels:])
	tail := b.data[(b.rows-n)*b.channels:]
	for i, row := range chunk {
		copy(tail[i*b.channels:], row)
	}
	b.filled = min(b.filled+n, b.rows)
	return nil
}

// Latest returns a copy of the newest rows.
func (b *Buffer) Latest(rows int) ([][]float64, error) {
	if rows > b.rows {
		return nil, fmt.Errorf("%w: %d > %d", ErrInsufficientHistory, rows, b.rows)
	}
	if rows <= 0 {
		return nil, fmt.Errorf("buffer: row count must be positive, got %d", rows)
	}
	out := make([][]float64, rows)
	start := (b.rows - rows) * b.channels
	for i := range out {
		out[i] = make([]float64, b.channels)
		copy(out[i], b.data[start+i*b.channels:])
	}
	return out, nil
}

// LatestWindow returns a copy of the newest seconds of samples.
func (b *Buffer) LatestWindow(seconds float64) ([][]float64, error) {
	return b.Latest(RowsFor(b.sampleRate, seconds))
}

// Len returns the number of stored rows, always equal to Capacity.
func (b *Buffer) Len() int { return len(b.data) / b.channels }

func (b *Buffer) Capacity() int { return b.rows }
func (b *Buffer) Channels() int { return b.channels }

func (b *Buffer) SampleRate() float64 { return b.sampleRate }

// Filled returns how many real rows have been pushed, capped at Capacity.
func (b *Buffer) Filled() int { return b.filled }

// Reset releases the sample storage. The buffer must not be used afterwards.
func (b *Buffer) Reset() {
	b.data = nil
	b.filled = 0
}
