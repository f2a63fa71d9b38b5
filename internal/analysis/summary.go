// SPDX-License-Identifier: MIT
package analysis

import (
	"eeg/internal/band"
	"eeg/internal/log"

	"gonum.org/v1/gonum/floats"
)

// BandPower is the session-wide mean of one band.
type BandPower struct {
	Band    band.Band `json:"band"`
	Mean    float64   `json:"mean"`
	Columns int       `json:"columns"`
	Cells   int       `json:"cells"`
	Missing bool      `json:"missing,omitempty"`
}

// Summary reduces a session to one mean per band and, once classified, its
// dominant band and state description.
type Summary struct {
	Powers        []BandPower `json:"powers"`
	Rows          int         `json:"rows"`
	DominantBand  band.Band   `json:"dominantBand"`
	DominantPower float64     `json:"dominantPower"`
	State         string      `json:"state"`
}

// Summarize computes each band's mean as the flat mean of every valid cell in
// its columns. Bands with no cells are marked Missing.
func (s *Session) Summarize() Summary {
	sum := Summary{Powers: make([]BandPower, 0, len(s.bands)), Rows: s.rows}
	counts := map[int]bool{}
	for _, b := range s.bands {
		cells := s.cells[b]
		p := BandPower{Band: b, Columns: s.columns[b], Cells: len(cells)}
		if len(cells) == 0 {
			p.Missing = true
		} else {
			p.Mean = floats.Sum(cells) / float64(len(cells))
		}
		if p.Columns > 0 {
			counts[p.Columns] = true
		}
		sum.Powers = append(sum.Powers, p)
	}
	if len(counts) > 1 {
		log.Warnf("Analysis: Bands have unequal channel counts; means are not weighted per channel")
	}
	return sum
}

// Dominant returns the non-missing band with the highest mean. Ties go to
// the band that comes first in canonical order.
func (s *Summary) Dominant() (BandPower, error) {
	var best *BandPower
	for i := range s.Powers {
		p := &s.Powers[i]
		if p.Missing {
			continue
		}
		if best == nil || p.Mean > best.Mean || (p.Mean == best.Mean && p.Band < best.Band) {
			best = p
		}
	}
	if best == nil {
		return BandPower{}, ErrNoUsableData
	}
	return *best, nil
}

// Power returns the entry for b.
func (s *Summary) Power(b band.Band) (BandPower, bool) {
	for _, p := range s.Powers {
		if p.Band == b {
			return p, true
		}
	}
	return BandPower{}, false
}

// Classify summarizes the session and fills in the dominant band and state.
func (s *Session) Classify() (*Summary, error) {
	sum := s.Summarize()
	d, err := sum.Dominant()
	if err != nil {
		return nil, err
	}
	sum.DominantBand = d.Band
	sum.DominantPower = d.Mean
	sum.State = band.State(d.Band)
	return &sum, nil
}
