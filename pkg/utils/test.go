// SPDX-License-Identifier: MIT

// Package utils holds synthetic signal generators and test doubles shared by
// the simulator and package tests.
package utils

import (
	"math"
	"math/rand/v2"
	"sync"
)

// MockTransport records everything sent to it instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Rhythm is one sinusoidal component of a synthetic signal, in microvolts.
type Rhythm struct {
	Frequency float64
	Amplitude float64
}

// Generator produces continuous multi-channel synthetic EEG: a sum of
// rhythms plus optional mains hum and gaussian noise. Each channel gets a
// fixed phase offset. Successive calls to Next continue the same signal.
type Generator struct {
	SampleRate float64
	Channels   int
	Rhythms    []Rhythm
	Mains      Rhythm
	Noise      float64

	mu     sync.Mutex
	sample int
	rng    *rand.Rand
}

// NewGenerator returns a generator with a deterministic noise source.
func NewGenerator(sampleRate float64, channels int, seed uint64, rhythms ...Rhythm) *Generator {
	return &Generator{
		SampleRate: sampleRate,
		Channels:   channels,
		Rhythms:    rhythms,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next rows samples.
func (g *Generator) Next(rows int) [][]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([][]float64, rows)
	for i := range out {
		tm := float64(g.sample) / g.SampleRate
		row := make([]float64, g.Channels)
		for ch := range row {
			phase := float64(ch) * math.Pi / 7
			var v float64
			for _, r := range g.Rhythms {
				v += r.Amplitude * math.Sin(2*math.Pi*r.Frequency*tm+phase)
			}
			if g.Mains.Amplitude != 0 {
				v += g.Mains.Amplitude * math.Sin(2*math.Pi*g.Mains.Frequency*tm)
			}
			if g.Noise > 0 && g.rng != nil {
				v += g.rng.NormFloat64() * g.Noise
			}
			row[ch] = v
		}
		out[i] = row
		g.sample++
	}
	return out
}

// GenerateSineRows returns rows samples of a single-frequency sine on every channel.
func GenerateSineRows(rows, channels int, sampleRate, frequency float64) [][]float64 {
	return NewGenerator(sampleRate, channels, 1, Rhythm{Frequency: frequency, Amplitude: 1}).Next(rows)
}

// FindPeak returns the index of the largest value in values[start:end+1].
func FindPeak(values []float64, start, end int) int {
	if len(values) == 0 {
		return 0
	}
	start = max(start, 0)
	end = min(end, len(values)-1)

	peak := start
	for i := start + 1; i <= end; i++ {
		if values[i] > values[peak] {
			peak = i
		}
	}
	return peak
}
