// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
)

// biquad coefficients, normalised so a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// NotchFilter removes a narrow band around a centre frequency (mains
// interference) from every channel. Each channel keeps its own
// transposed direct form II state.
type NotchFilter struct {
	coeffs biquad
	z1, z2 []float64
}

var _ Filter = (*NotchFilter)(nil)

// NewNotchFilter builds a notch for the given channel count. The centre must
// lie strictly between 0 and Nyquist.
func NewNotchFilter(channels int, sampleRate, centre, q float64) (*NotchFilter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("notch filter needs at least one channel, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if centre <= 0 || centre >= sampleRate/2 {
		return nil, fmt.Errorf("notch centre %g Hz outside (0, %g) Hz", centre, sampleRate/2)
	}
	if q <= 0 {
		return nil, fmt.Errorf("notch quality must be positive, got %g", q)
	}

	w0 := 2 * math.Pi * centre / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cos := math.Cos(w0)
	a0 := 1 + alpha

	return &NotchFilter{
		coeffs: biquad{
			b0: 1 / a0,
			b1: -2 * cos / a0,
			b2: 1 / a0,
			a1: -2 * cos / a0,
			a2: (1 - alpha) / a0,
		},
		z1: make([]float64, channels),
		z2: make([]float64, channels),
	}, nil
}

// Apply filters rows in place. Columns beyond the configured channel count
// are left untouched.
func (f *NotchFilter) Apply(rows [][]float64) {
	c := f.coeffs
	for _, row := range rows {
		n := min(len(row), len(f.z1))
		for ch := range n {
			x := row[ch]
			y := c.b0*x + f.z1[ch]
			f.z1[ch] = c.b1*x - c.a1*y + f.z2[ch]
			f.z2[ch] = c.b2*x - c.a2*y
			row[ch] = y
		}
	}
}
