// SPDX-License-Identifier: MIT

// Package analysis classifies a finished session artifact into its dominant
// frequency band.
package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"eeg/internal/artifact"
	"eeg/internal/band"
	"eeg/internal/log"
)

var (
	ErrUnreadable   = errors.New("analysis: artifact is unreadable")
	ErrNoUsableData = errors.New("analysis: no usable band data")
)

// Analyzer is an immutable band configuration. It is safe for concurrent use.
type Analyzer struct {
	bands []band.Band
}

// New returns an analyzer over bands, or the canonical bands when none are given.
func New(bands ...band.Band) *Analyzer {
	if len(bands) == 0 {
		bands = band.All()
	}
	return &Analyzer{bands: slices.Clone(bands)}
}

// Bands returns a copy of the configured bands.
func (a *Analyzer) Bands() []band.Band { return slices.Clone(a.bands) }

// Session is a loaded artifact reduced to the valid cells of each band.
type Session struct {
	bands   []band.Band
	columns map[band.Band]int
	cells   map[band.Band][]float64
	rows    int
}

// Load reads an artifact table. The Timestamp column is dropped and the
// remaining columns are assigned to bands by their "{Band}_" prefix.
func (a *Analyzer) Load(r io.Reader) (*Session, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	header = slices.Clone(header)

	s := &Session{
		bands:   a.bands,
		columns: make(map[band.Band]int, len(a.bands)),
		cells:   make(map[band.Band][]float64, len(a.bands)),
	}
	owner := make([]int, len(header))
	for i, name := range header {
		owner[i] = -1
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == artifact.TimestampColumn {
			continue
		}
		for bi, b := range a.bands {
			if strings.HasPrefix(name, b.String()+"_") {
				owner[i] = bi
				s.columns[b]++
				break
			}
		}
		if owner[i] < 0 {
			log.Debugf("Analysis: Ignoring column %q", name)
		}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		s.rows++
		for i, cell := range record {
			if i >= len(owner) || owner[i] < 0 {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", ErrUnreadable, s.rows, header[i], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			b := a.bands[owner[i]]
			s.cells[b] = append(s.cells[b], v)
		}
	}
	return s, nil
}

// LoadFile opens and loads an artifact from disk.
func (a *Analyzer) LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.Load(f)
}

// Rows returns the number of data rows read.
func (s *Session) Rows() int { return s.rows }

// Analyze loads r and returns its complete summary including the dominant band.
func (a *Analyzer) Analyze(r io.Reader) (*Summary, error) {
	s, err := a.Load(r)
	if err != nil {
		return nil, err
	}
	return s.Classify()
}

// AnalyzeFile is Analyze over a file on disk.
func (a *Analyzer) AnalyzeFile(path string) (*Summary, error) {
	s, err := a.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Classify()
}
