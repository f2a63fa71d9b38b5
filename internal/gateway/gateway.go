// SPDX-License-Identifier: MIT

// Package gateway accepts finished session artifacts, analyzes them in memory
// and persists only the derived summary.
package gateway

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path"
	"strings"

	"eeg/internal/analysis"
	"eeg/internal/errors"
	"eeg/internal/log"
	"eeg/internal/store"
	"eeg/internal/transport"
)

// DefaultFileName names uploads that arrive without a display name.
const DefaultFileName = "upload.csv"

// Repository is the persistence the gateway needs.
type Repository interface {
	Insert(ctx context.Context, rec *store.Record) error
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context, limit, offset int) ([]store.Record, error)
}

// Options configures a Gateway. Forward is optional.
type Options struct {
	Analyzer       *analysis.Analyzer
	Store          Repository
	Forward        transport.Transport
	MaxUploadBytes int64
}

// Gateway turns uploaded artifacts into stored summaries.
type Gateway struct {
	analyzer *analysis.Analyzer
	store    Repository
	forward  transport.Transport
	maxBytes int64
}

func New(opts Options) (*Gateway, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("gateway: store is required")
	}
	if opts.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("gateway: max upload bytes must be positive, got %d", opts.MaxUploadBytes)
	}
	a := opts.Analyzer
	if a == nil {
		a = analysis.New()
	}
	return &Gateway{
		analyzer: a,
		store:    opts.Store,
		forward:  opts.Forward,
		maxBytes: opts.MaxUploadBytes,
	}, nil
}

// Ingest reads one artifact from r, analyzes it and stores its summary.
// Nothing is stored when analysis fails.
func (g *Gateway) Ingest(ctx context.Context, r io.Reader, displayName string) (*store.Record, error) {
	data, err := g.readArtifact(r)
	if err != nil {
		return nil, err
	}
	return g.ingest(ctx, data, displayName)
}

// readArtifact copies at most maxBytes from r into memory.
func (g *Gateway) readArtifact(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, g.maxBytes+1))
	if err != nil {
		clear(buf.Bytes())
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, errors.NewPayloadTooLarge(g.maxBytes)
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("failed to read upload: %v", err))
	}
	if n > g.maxBytes {
		clear(buf.Bytes())
		return nil, errors.NewPayloadTooLarge(g.maxBytes)
	}
	return buf.Bytes(), nil
}

func (g *Gateway) ingest(ctx context.Context, data []byte, displayName string) (*store.Record, error) {
	// The raw artifact never outlives this call.
	defer clear(data)

	summary, err := g.analyzer.Analyze(bytes.NewReader(data))
	if err != nil {
		if stderrors.Is(err, analysis.ErrUnreadable) || stderrors.Is(err, analysis.ErrNoUsableData) {
			return nil, errors.NewAnalysisFailed(err)
		}
		return nil, errors.NewInternal(err)
	}

	rec := &store.Record{
		DominantBand:  summary.DominantBand.String(),
		InferredState: summary.State,
		AvgPower:      roundTo(summary.DominantPower, 4),
		FileName:      cleanName(displayName),
	}
	if err := g.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	log.Infof("Gateway: Stored summary %s (%s, %s, %.4f) from %d rows", rec.ID, rec.FileName, rec.DominantBand, rec.AvgPower, summary.Rows)

	if g.forward != nil {
		if err := g.forward.Send(rec); err != nil {
			log.Warnf("Gateway: Failed to forward summary %s: %v", rec.ID, err)
		}
	}
	return rec, nil
}

// Get returns a stored summary.
func (g *Gateway) Get(ctx context.Context, id string) (*store.Record, error) {
	return g.store.Get(ctx, id)
}

// List returns stored summaries, newest first.
func (g *Gateway) List(ctx context.Context, limit, offset int) ([]store.Record, error) {
	return g.store.List(ctx, limit, offset)
}

func cleanName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return DefaultFileName
	}
	name = path.Base(name)
	if name == "." || name == "/" {
		return DefaultFileName
	}
	return name
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
