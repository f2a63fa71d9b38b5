// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"math/cmplx"
	"slices"

	"eeg/internal/band"
	"eeg/internal/log"
	"eeg/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// workspace holds buffers sized for one epoch length. Reused between calls
// while the epoch length stays the same.
type workspace struct {
	rows      int
	fft       *fourier.FFT
	window    []float64
	input     []float64
	coeffs    []complex128
	amplitude []float64
	column    []float64
}

// BandPowerExtractor computes log10 mean spectral amplitude per band and
// channel. Each channel is mean-centred, tapered, zero-padded to the next
// power of two and transformed with a real FFT.
//
// A BandPowerExtractor is not safe for concurrent use.
type BandPowerExtractor struct {
	bands      []band.Band
	windowType WindowFunc
	ws         workspace
}

var _ Extractor = (*BandPowerExtractor)(nil)

// NewBandPowerExtractor returns an extractor over bands (canonical bands when
// none are given) using the given taper.
func NewBandPowerExtractor(windowType WindowFunc, bands ...band.Band) *BandPowerExtractor {
	if len(bands) == 0 {
		bands = band.All()
	}
	log.Debugf("DSP: Initializing BandPowerExtractor (Bands: %v, Window: %v)", bands, windowType)
	return &BandPowerExtractor{
		bands:      slices.Clone(bands),
		windowType: windowType,
	}
}

// Bands returns a copy of the configured band order.
func (e *BandPowerExtractor) Bands() []band.Band {
	return slices.Clone(e.bands)
}

// Extract implements Extractor.
func (e *BandPowerExtractor) Extract(window [][]float64, sampleRate float64) ([]float64, error) {
	rows := len(window)
	if rows < 2 {
		return nil, extractionErr(-1, "window has %d rows, need at least 2", rows)
	}
	if sampleRate <= 0 {
		return nil, extractionErr(-1, "sample rate must be positive, got %g", sampleRate)
	}
	channels := len(window[0])
	if channels == 0 {
		return nil, extractionErr(-1, "window has no channels")
	}
	for i, row := range window {
		if len(row) != channels {
			return nil, extractionErr(-1, "row %d has %d channels, expected %d", i, len(row), channels)
		}
	}

	e.prepare(rows)
	ws := &e.ws
	nfft := len(ws.input)
	binHz := sampleRate / float64(nfft)

	out := make([]float64, len(e.bands)*channels)
	for ch := range channels {
		for i, row := range window {
			v := row[ch]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, extractionErr(ch, "non-finite sample at row %d", i)
			}
			ws.column[i] = v
		}

		mean := stat.Mean(ws.column, nil)
		for i := range nfft {
			if i < rows {
				ws.input[i] = (ws.column[i] - mean) * ws.window[i]
			} else {
				ws.input[i] = 0
			}
		}

		ws.fft.Coefficients(ws.coeffs, ws.input)
		for k, c := range ws.coeffs {
			ws.amplitude[k] = 2 * cmplx.Abs(c) / float64(rows)
		}

		for bi, b := range e.bands {
			var sum float64
			var n int
			for k, a := range ws.amplitude {
				if b.Contains(float64(k) * binHz) {
					sum += a
					n++
				}
			}
			if n == 0 {
				return nil, extractionErr(ch, "no spectral bins in %s at %.2f Hz resolution", b, binHz)
			}
			power := sum / float64(n)
			if !(power > 0) || math.IsInf(power, 0) {
				return nil, extractionErr(ch, "non-positive %s power", b)
			}
			out[bi*channels+ch] = math.Log10(power)
		}
	}
	return out, nil
}

func (e *BandPowerExtractor) prepare(rows int) {
	if e.ws.fft != nil && e.ws.rows == rows {
		return
	}
	nfft := bitint.NextPowerOfTwo(rows)
	e.ws = workspace{
		rows:      rows,
		fft:       fourier.NewFFT(nfft),
		window:    windowCoefficients(rows, e.windowType),
		input:     make([]float64, nfft),
		coeffs:    make([]complex128, nfft/2+1),
		amplitude: make([]float64, nfft/2+1),
		column:    make([]float64, rows),
	}
}
