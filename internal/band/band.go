// SPDX-License-Identifier: MIT

// Package band defines the canonical EEG frequency bands and owns the single
// band -> state description lookup used by every consumer.
package band

import (
	"fmt"
	"strings"
)

// Band is one of the five canonical frequency ranges. The numeric order is
// the canonical order and doubles as the tie-break order for classification.
type Band int

const (
	Delta Band = iota
	Theta
	Alpha
	Beta
	Gamma
)

// Frequency edges in Hz, lower bound inclusive, upper bound exclusive.
var edges = [...][2]float64{
	Delta: {0.5, 4},
	Theta: {4, 8},
	Alpha: {8, 12},
	Beta:  {12, 30},
	Gamma: {30, 45},
}

var names = [...]string{
	Delta: "Delta",
	Theta: "Theta",
	Alpha: "Alpha",
	Beta:  "Beta",
	Gamma: "Gamma",
}

// All returns the bands in canonical order. The slice is a fresh copy.
func All() []Band {
	return []Band{Delta, Theta, Alpha, Beta, Gamma}
}

// String returns the column-prefix name of the band.
func (b Band) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Band(%d)", int(b))
	}
	return names[b]
}

// Range returns the band's frequency range as [low, high) in Hz.
func (b Band) Range() (low, high float64) {
	if !b.Valid() {
		return 0, 0
	}
	return edges[b][0], edges[b][1]
}

// Contains reports whether freq falls inside the band.
func (b Band) Contains(freq float64) bool {
	low, high := b.Range()
	return freq >= low && freq < high
}

// Valid reports whether b is one of the canonical bands.
func (b Band) Valid() bool {
	return b >= Delta && b <= Gamma
}

// Parse converts a band name (case-insensitive) to a Band.
func Parse(name string) (Band, error) {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Band(i), nil
		}
	}
	return 0, fmt.Errorf("unknown band %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (b Band) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid band %d", int(b))
	}
	return []byte(names[b]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Band) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
