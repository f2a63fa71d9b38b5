// SPDX-License-Identifier: MIT

// Package artifact reads and writes session artifacts: append-only CSV
// tables with a Timestamp column followed by one column per (band, channel).
package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"eeg/internal/band"
)

const (
	// TimestampColumn is the first header column.
	TimestampColumn = "Timestamp"
	// TimeLayout formats the wall-clock time of a row.
	TimeLayout = "15:04:05.000000"
	// Pattern matches artifact file names.
	Pattern = "eeg_session_*.csv"

	fileLayout = "20060102_150405"
)

var (
	ErrArtifactExists = errors.New("artifact: file already exists")
	ErrArtifactClosed = errors.New("artifact: writer is closed")
	ErrColumnMismatch = errors.New("artifact: value count does not match header")
	ErrNoArtifacts    = errors.New("artifact: no session artifacts found")
)

// Header is the ordered column list of an artifact.
type Header []string

// NewHeader returns Timestamp followed by {Band}_Ch{n} for every band and
// selected channel, band-major. n is the hardware channel index plus one,
// so a selection of [2 3] yields Ch3 and Ch4.
func NewHeader(bands []band.Band, channels []int) Header {
	h := make(Header, 0, 1+len(bands)*len(channels))
	h = append(h, TimestampColumn)
	for _, b := range bands {
		for _, ch := range channels {
			h = append(h, ColumnName(b, ch))
		}
	}
	return h
}

// ColumnName returns the header name for a band and zero-based hardware channel index.
func ColumnName(b band.Band, channel int) string {
	return fmt.Sprintf("%s_Ch%d", b, channel+1)
}

// Values returns the number of feature columns.
func (h Header) Values() int { return max(len(h)-1, 0) }

// Row is one epoch's features stamped with the time it was produced.
type Row struct {
	Time   time.Time
	Values []float64
}

// Writer appends rows to a single artifact file. Every Append is flushed and
// synced before it returns, so an interrupted session keeps every row that
// was reported as written.
type Writer struct {
	mu     sync.Mutex
	path   string
	header Header
	file   *os.File
	csv    *csv.Writer
	rows   int
	closed bool
}

// Create makes a new artifact at path and writes its header. It refuses to
// overwrite an existing file.
func Create(path string, header Header) (*Writer, error) {
	if header.Values() == 0 || header[0] != TimestampColumn {
		return nil, fmt.Errorf("artifact: invalid header %v", header)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("artifact: create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactExists, path)
		}
		return nil, fmt.Errorf("artifact: create %s: %w", path, err)
	}

	w := &Writer{path: path, header: slices.Clone(header), file: f, csv: csv.NewWriter(f)}
	if err := w.writeRecord(header); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the artifact's file path.
func (w *Writer) Path() string { return w.path }

// Header returns a copy of the artifact header.
func (w *Writer) Header() Header { return slices.Clone(w.header) }

// Rows returns the number of rows appended so far.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Append writes one row.
func (w *Writer) Append(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrArtifactClosed
	}
	if len(row.Values) != w.header.Values() {
		return fmt.Errorf("%w: got %d values, header has %d", ErrColumnMismatch, len(row.Values), w.header.Values())
	}

	record := make([]string, 0, len(w.header))
	record = append(record, row.Time.Format(TimeLayout))
	for _, v := range row.Values {
		record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if err := w.writeRecord(record); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *Writer) writeRecord(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("artifact: write %s: %w", w.path, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("artifact: flush %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("artifact: sync %s: %w", w.path, err)
	}
	return nil
}

// Close finalizes the artifact. Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.csv.Flush()
	flushErr := w.csv.Error()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", w.path, err)
	}
	return flushErr
}
