// SPDX-License-Identifier: MIT
package acquisition

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"eeg/internal/analysis"
	"eeg/internal/artifact"
	"eeg/internal/band"
	"eeg/internal/config"
	"eeg/internal/dsp"
	"eeg/internal/stream"
	"eeg/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 10.0

// fakeInlet serves scripted chunks, then runs onDrained and returns empty
// chunks (a pull timeout).
type fakeInlet struct {
	info      stream.Info
	chunks    []stream.Chunk
	failAfter int // return pullErr once this many chunks were served; 0 disables
	pullErr   error
	onDrained func()

	mu     sync.Mutex
	served int
	closed bool
}

func (f *fakeInlet) Info() stream.Info { return f.info }

func (f *fakeInlet) PullChunk(ctx context.Context, timeout time.Duration, max int) (stream.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && f.served >= f.failAfter {
		return stream.Chunk{}, f.pullErr
	}
	if f.served < len(f.chunks) {
		c := f.chunks[f.served]
		f.served++
		return c, nil
	}
	if f.onDrained != nil {
		f.onDrained()
	}
	return stream.Chunk{}, nil
}

func (f *fakeInlet) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeResolver struct {
	infos      []stream.Info
	resolveErr error
	inlet      *fakeInlet
	resolved   bool
}

func (r *fakeResolver) Resolve(ctx context.Context, prop, value string, timeout time.Duration) ([]stream.Info, error) {
	r.resolved = true
	return r.infos, r.resolveErr
}

func (r *fakeResolver) Open(ctx context.Context, info stream.Info, maxChunkLen int) (stream.Inlet, error) {
	return r.inlet, nil
}

// stubExtractor emits a fixed row per epoch. Calls listed in fail return an
// ExtractionError; a call equal to panicAt panics.
type stubExtractor struct {
	channels int
	calls    int
	fail     map[int]bool
	panicAt  int
}

func (s *stubExtractor) Bands() []band.Band { return band.All() }

func (s *stubExtractor) Extract(window [][]float64, fs float64) ([]float64, error) {
	s.calls++
	if s.panicAt > 0 && s.calls == s.panicAt {
		panic("numeric blow-up")
	}
	if s.fail[s.calls] {
		return nil, &dsp.ExtractionError{Reason: "degenerate", Channel: -1}
	}
	out := make([]float64, 5*s.channels)
	for bi := range 5 {
		for ch := range s.channels {
			out[bi*s.channels+ch] = float64(bi + 1)
		}
	}
	return out, nil
}

type fakeProcess struct {
	mu    sync.Mutex
	stops int
}

func (p *fakeProcess) Stop(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func chunks(n, rows, channels int) []stream.Chunk {
	gen := utils.NewGenerator(testRate, channels, 3, utils.Rhythm{Frequency: 2, Amplitude: 10})
	out := make([]stream.Chunk, n)
	for i := range out {
		out[i] = stream.Chunk{Samples: gen.Next(rows), Timestamps: make([]float64, rows)}
	}
	return out
}

type harness struct {
	dir       string
	proc      *fakeProcess
	resolver  *fakeResolver
	inlet     *fakeInlet
	extractor *stubExtractor
	transport *utils.MockTransport
	states    []State
	settings  Settings
	deps      Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dir:       t.TempDir(),
		proc:      &fakeProcess{},
		extractor: &stubExtractor{channels: 4},
		transport: &utils.MockTransport{},
	}
	h.inlet = &fakeInlet{chunks: chunks(5, 4, 5)}
	info := stream.Info{UID: "u1", Name: "Muse", Type: stream.TypeEEG, ChannelCount: 5, NominalSrate: testRate}
	h.resolver = &fakeResolver{infos: []stream.Info{info}, inlet: h.inlet}

	acq := config.Default().Acquisition
	h.settings = Settings{
		Acquisition:    acq,
		StreamType:     stream.TypeEEG,
		WarmUp:         10 * time.Second,
		ResolveTimeout: 5 * time.Second,
		StopTimeout:    time.Second,
		OutputDir:      h.dir,
	}
	h.deps = Dependencies{
		Launch:    func() (Process, error) { return h.proc, nil },
		Resolver:  h.resolver,
		Extractor: h.extractor,
		Transport: h.transport,
		OnState:   func(s State) { h.states = append(h.states, s) },
		Sleep:     func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
	return h
}

func (h *harness) run(t *testing.T, ctx context.Context) (*Result, error) {
	t.Helper()
	o, err := New(h.settings, h.deps)
	require.NoError(t, err)
	res, err := o.Run(ctx)
	require.NotNil(t, res)
	assert.Equal(t, res.State, o.State())
	return res, err
}

// records reads an artifact back as raw CSV records, header included.
func records(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	out, err := r.ReadAll()
	require.NoError(t, err)
	return out
}

func (h *harness) files(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	return entries
}

func TestInterruptYieldsFinalizedArtifact(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.inlet.onDrained = cancel

	res, err := h.run(t, ctx)
	require.NoError(t, err)

	// 20 rows at shift 2 rows -> 10 epochs.
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, []State{StartingCapture, AwaitingStream, AwaitingUserStart, Streaming, Stopping, Terminated}, h.states)

	summary, err := analysis.New().AnalyzeFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Rows)
	assert.Equal(t, band.Gamma, summary.DominantBand)

	assert.Equal(t, 1, h.proc.stops)
	assert.True(t, h.inlet.closed)
	assert.Len(t, h.transport.Sent(), 10)
}

func TestExtractionErrorSkipsEpoch(t *testing.T) {
	h := newHarness(t)
	h.extractor.fail = map[int]bool{3: true, 7: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.inlet.onDrained = cancel

	res, err := h.run(t, ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Rows)
	assert.Equal(t, 2, res.Skipped)

	summary, err := analysis.New().AnalyzeFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Rows)

	// Skipped epochs leave the header and row width untouched.
	header := artifact.NewHeader(band.All(), h.settings.Acquisition.Channels)
	recs := records(t, res.ArtifactPath)
	require.Len(t, recs, 9)
	assert.Equal(t, []string(header), recs[0])
	for i, rec := range recs[1:] {
		assert.Len(t, rec, len(header), "row %d", i+1)
	}
}

func TestEmptyPullIsRetried(t *testing.T) {
	h := newHarness(t)
	data := chunks(5, 4, 5)
	h.inlet.chunks = []stream.Chunk{data[0], data[1], {}, {}, data[2], data[3], data[4]}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.inlet.onDrained = cancel

	res, err := h.run(t, ctx)
	require.NoError(t, err)

	// The rows pulled after the empty chunks still reach the artifact.
	assert.Equal(t, 7, h.inlet.served)
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, Terminated, res.State)
}

func TestHeaderNamesSelectedHardwareChannels(t *testing.T) {
	h := newHarness(t)
	h.settings.Acquisition.Channels = []int{2, 3}
	h.extractor.channels = 2
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.inlet.onDrained = cancel

	res, err := h.run(t, ctx)
	require.NoError(t, err)
	require.Equal(t, 10, res.Rows)

	recs := records(t, res.ArtifactPath)
	assert.Equal(t, []string{"Timestamp", "Delta_Ch3", "Delta_Ch4", "Theta_Ch3", "Theta_Ch4",
		"Alpha_Ch3", "Alpha_Ch4", "Beta_Ch3", "Beta_Ch4", "Gamma_Ch3", "Gamma_Ch4"}, recs[0])
}

func TestLaunchFailureIsFatalWithoutArtifact(t *testing.T) {
	h := newHarness(t)
	h.deps.Launch = func() (Process, error) { return nil, errors.New("muselsl: not found") }

	res, err := h.run(t, context.Background())
	assert.ErrorIs(t, err, ErrCaptureLaunch)
	assert.Equal(t, Fatal, res.State)
	assert.False(t, h.resolver.resolved)
	assert.Empty(t, h.files(t))
}

func TestNoStreamIsFatalAndStopsProcess(t *testing.T) {
	h := newHarness(t)
	h.resolver.infos = nil

	res, err := h.run(t, context.Background())
	assert.ErrorIs(t, err, ErrNoStream)
	assert.Equal(t, Fatal, res.State)
	assert.Equal(t, 1, h.proc.stops)
	assert.Empty(t, h.files(t))
}

func TestChannelSelectionMustFitStream(t *testing.T) {
	h := newHarness(t)
	h.settings.Acquisition.Channels = []int{0, 7}

	res, err := h.run(t, context.Background())
	assert.ErrorIs(t, err, ErrChannelSelection)
	assert.Equal(t, Fatal, res.State)
	assert.Empty(t, h.files(t))
}

func TestPullFailurePreservesRows(t *testing.T) {
	h := newHarness(t)
	h.inlet.failAfter = 3
	h.inlet.pullErr = errors.New("connection reset")

	res, err := h.run(t, context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, 6, res.Rows)

	summary, err := analysis.New().AnalyzeFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Rows)
	assert.Equal(t, 1, h.proc.stops)
}

func TestPanicWhileStreamingPreservesRows(t *testing.T) {
	h := newHarness(t)
	h.extractor.panicAt = 5

	res, err := h.run(t, context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numeric blow-up")
	assert.Equal(t, 4, res.Rows)
	assert.FileExists(t, res.ArtifactPath)
	assert.True(t, h.inlet.closed)
}

func TestInterruptWhileAwaitingUserStart(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.deps.StartSignal = func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	res, err := h.run(t, ctx)
	require.NoError(t, err)
	assert.Equal(t, Terminated, res.State)
	assert.Empty(t, res.ArtifactPath)
	assert.Empty(t, h.files(t))
	assert.Equal(t, 1, h.proc.stops)
}

func TestRunOnlyOnce(t *testing.T) {
	h := newHarness(t)
	h.resolver.infos = nil
	o, err := New(h.settings, h.deps)
	require.NoError(t, err)
	_, _ = o.Run(context.Background())
	_, err = o.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestNewValidatesSettings(t *testing.T) {
	h := newHarness(t)
	h.settings.Acquisition.OverlapSeconds = 1
	_, err := New(h.settings, h.deps)
	assert.Error(t, err)

	h = newHarness(t)
	h.deps.Extractor = nil
	_, err = New(h.settings, h.deps)
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AwaitingUserStart", AwaitingUserStart.String())
	assert.Equal(t, "State(42)", State(42).String())
}
