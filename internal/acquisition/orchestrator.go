// SPDX-License-Identifier: MIT

// Package acquisition drives a recording session: it starts the capture
// bridge, finds the stream, waits for the user, then turns incoming samples
// into feature rows until interrupted.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"eeg/internal/artifact"
	"eeg/internal/band"
	"eeg/internal/buffer"
	"eeg/internal/config"
	"eeg/internal/dsp"
	"eeg/internal/log"
	"eeg/internal/stream"
	"eeg/internal/transport"
)

var (
	ErrCaptureLaunch    = errors.New("acquisition: capture process failed to launch")
	ErrNoStream         = errors.New("acquisition: no matching stream found")
	ErrChannelSelection = errors.New("acquisition: channel selection does not fit the stream")
	ErrAlreadyRun       = errors.New("acquisition: orchestrator already used")
)

// Process is a running capture bridge.
type Process interface {
	Stop(timeout time.Duration) error
}

// LaunchFunc starts the capture bridge.
type LaunchFunc func() (Process, error)

// Settings is the immutable shape of one session.
type Settings struct {
	Acquisition    config.AcquisitionConfig
	StreamType     string
	WarmUp         time.Duration
	ResolveTimeout time.Duration
	StopTimeout    time.Duration
	OutputDir      string
}

// Dependencies are the collaborators the orchestrator drives. Resolver and
// Extractor are required; the rest have defaults.
type Dependencies struct {
	Launch    LaunchFunc // nil: no capture process is managed
	Resolver  stream.Resolver
	Extractor dsp.Extractor
	// NewFilter builds the per-session filter once the sample rate is known.
	// nil: dsp.PassThrough.
	NewFilter func(channels int, sampleRate float64) (dsp.Filter, error)
	// StartSignal blocks until the user asks to begin streaming. nil: start immediately.
	StartSignal func(ctx context.Context) error
	Transport   transport.Transport
	OnState     func(State)
	Sleep       func(ctx context.Context, d time.Duration) error
	Now         func() time.Time
}

// Result describes how a session ended.
type Result struct {
	ArtifactPath string
	Rows         int
	Skipped      int
	State        State
	Stream       stream.Info
}

// Orchestrator runs exactly one session.
type Orchestrator struct {
	settings Settings
	deps     Dependencies
	channels []int

	mu    sync.Mutex
	state State
	used  bool
}

// session holds what has to be released when Run returns.
type session struct {
	proc   Process
	inlet  stream.Inlet
	writer *artifact.Writer
	buf    *buffer.Buffer
}

// New validates settings and returns an idle orchestrator.
func New(settings Settings, deps Dependencies) (*Orchestrator, error) {
	if deps.Resolver == nil || deps.Extractor == nil {
		return nil, errors.New("acquisition: resolver and extractor are required")
	}
	a := settings.Acquisition
	if len(a.Channels) == 0 {
		return nil, errors.New("acquisition: empty channel selection")
	}
	if a.EpochSeconds <= 0 || a.OverlapSeconds < 0 || a.OverlapSeconds >= a.EpochSeconds || a.BufferSeconds < a.EpochSeconds {
		return nil, fmt.Errorf("acquisition: invalid timing (buffer %g s, epoch %g s, overlap %g s)", a.BufferSeconds, a.EpochSeconds, a.OverlapSeconds)
	}
	bands := deps.Extractor.Bands()
	if len(bands) == 0 {
		return nil, errors.New("acquisition: extractor reports no bands")
	}
	for i, b := range bands {
		if !b.Valid() || slices.Index(bands, b) != i {
			return nil, fmt.Errorf("acquisition: extractor band list %v is invalid", bands)
		}
	}
	if settings.StreamType == "" {
		settings.StreamType = stream.TypeEEG
	}
	if settings.StopTimeout <= 0 {
		settings.StopTimeout = config.DefaultStopTimeout
	}
	if a.PullTimeout <= 0 {
		settings.Acquisition.PullTimeout = config.DefaultPullTimeout
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		settings: settings,
		deps:     deps,
		channels: slices.Clone(a.Channels),
	}, nil
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == Fatal {
		o.mu.Unlock()
		return
	}
	prev := o.state
	o.state = s
	o.mu.Unlock()

	log.Debugf("Acquisition: %s -> %s", prev, s)
	if o.deps.OnState != nil {
		o.deps.OnState(s)
	}
}

// Run executes the session until ctx is cancelled or a failure ends it.
// Cancelling ctx is a normal stop and yields a nil error. Fatal setup
// failures leave no artifact. Failures while streaming stop the session but
// keep every row already written; Run then returns the error along with the
// result. Cleanup runs on every path.
func (o *Orchestrator) Run(ctx context.Context) (res *Result, err error) {
	o.mu.Lock()
	if o.used {
		o.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	o.used = true
	o.mu.Unlock()

	res = &Result{}
	var s session
	defer func() {
		o.cleanup(&s, res)
		o.setState(Terminated)
		res.State = o.State()
		log.Infof("Acquisition: Session ended in state %s (%d rows, %d skipped)", res.State, res.Rows, res.Skipped)
	}()

	fatal := func(e error) (*Result, error) {
		o.setState(Fatal)
		return res, e
	}
	interrupted := func() (*Result, error) {
		log.Infof("Acquisition: Interrupted before streaming")
		o.setState(Stopping)
		return res, nil
	}

	// StartingCapture
	o.setState(StartingCapture)
	if o.deps.Launch != nil {
		proc, err := o.deps.Launch()
		if err != nil {
			return fatal(fmt.Errorf("%w: %v", ErrCaptureLaunch, err))
		}
		s.proc = proc
		log.Infof("Acquisition: Waiting %v for the capture bridge to warm up", o.settings.WarmUp)
		if err := o.deps.Sleep(ctx, o.settings.WarmUp); err != nil {
			return interrupted()
		}
	}

	// AwaitingStream
	o.setState(AwaitingStream)
	log.Infof("Acquisition: Looking for a %s stream (timeout %v)", o.settings.StreamType, o.settings.ResolveTimeout)
	infos, err := o.deps.Resolver.Resolve(ctx, "type", o.settings.StreamType, o.settings.ResolveTimeout)
	if ctx.Err() != nil {
		return interrupted()
	}
	if err != nil {
		return fatal(fmt.Errorf("%w: %v", ErrNoStream, err))
	}
	if len(infos) == 0 {
		return fatal(fmt.Errorf("%w: type=%s within %v", ErrNoStream, o.settings.StreamType, o.settings.ResolveTimeout))
	}
	info := infos[0]
	res.Stream = info
	if err := o.checkStream(info); err != nil {
		return fatal(err)
	}
	inlet, err := o.deps.Resolver.Open(ctx, info, o.settings.Acquisition.MaxChunkLen)
	if err != nil {
		if ctx.Err() != nil {
			return interrupted()
		}
		return fatal(fmt.Errorf("acquisition: open inlet: %w", err))
	}
	s.inlet = inlet
	log.Infof("Acquisition: Connected to %q (%d channels @ %.1f Hz)", info.Name, info.ChannelCount, info.NominalSrate)

	// AwaitingUserStart
	o.setState(AwaitingUserStart)
	if o.deps.StartSignal != nil {
		if err := o.deps.StartSignal(ctx); err != nil {
			if ctx.Err() != nil {
				return interrupted()
			}
			o.setState(Stopping)
			return res, fmt.Errorf("acquisition: start signal: %w", err)
		}
	}

	// Streaming
	if err := o.prepare(&s, info.NominalSrate); err != nil {
		return fatal(err)
	}
	res.ArtifactPath = s.writer.Path()
	o.setState(Streaming)
	err = o.stream(ctx, &s, info.NominalSrate, res)

	o.setState(Stopping)
	if err != nil {
		log.Errorf("Acquisition: Streaming stopped: %v", err)
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) checkStream(info stream.Info) error {
	if info.NominalSrate <= 0 {
		return fmt.Errorf("%w: stream %q has no nominal sample rate", ErrChannelSelection, info.Name)
	}
	for _, ch := range o.channels {
		if ch < 0 || ch >= info.ChannelCount {
			return fmt.Errorf("%w: channel %d, stream %q has %d channels", ErrChannelSelection, ch, info.Name, info.ChannelCount)
		}
	}
	return nil
}

// prepare opens the artifact and allocates the buffer and filter.
func (o *Orchestrator) prepare(s *session, fs float64) error {
	a := o.settings.Acquisition
	filter := dsp.Filter(dsp.PassThrough{})
	if o.deps.NewFilter != nil {
		f, err := o.deps.NewFilter(len(o.channels), fs)
		if err != nil {
			return fmt.Errorf("acquisition: filter: %w", err)
		}
		filter = f
	}
	buf, err := buffer.New(fs, a.BufferSeconds, len(o.channels), filter)
	if err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}
	if buffer.RowsFor(fs, a.EpochSeconds) > buf.Capacity() {
		return fmt.Errorf("acquisition: %w", buffer.ErrInsufficientHistory)
	}

	header := artifact.NewHeader(o.deps.Extractor.Bands(), o.channels)
	path := filepath.Join(o.settings.OutputDir, artifact.FileName(o.deps.Now()))
	w, err := artifact.Create(path, header)
	if err != nil {
		return err
	}
	log.Infof("Acquisition: Logging to %s", path)
	s.buf = buf
	s.writer = w
	return nil
}

// stream is the pull -> buffer -> extract -> append loop. A panic inside it
// is turned into an error so the caller can finalize the artifact.
func (o *Orchestrator) stream(ctx context.Context, s *session, fs float64, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("acquisition: panic while streaming: %v", r)
		}
	}()

	a := o.settings.Acquisition
	epochRows := buffer.RowsFor(fs, a.EpochSeconds)
	shiftRows := max(buffer.RowsFor(fs, a.ShiftSeconds()), 1)
	bands := o.deps.Extractor.Bands()
	alpha, beta := slices.Index(bands, band.Alpha), slices.Index(bands, band.Beta)

	// An in-flight pull is never cancelled; interruption is observed between iterations.
	pullCtx := context.WithoutCancel(ctx)
	start := o.deps.Now()
	var pending [][]float64

	log.Infof("Acquisition: Streaming (epoch %d rows, shift %d rows). Interrupt to stop.", epochRows, shiftRows)
	for {
		if ctx.Err() != nil {
			log.Infof("Acquisition: Interrupt received, stopping")
			return nil
		}

		chunk, err := s.inlet.PullChunk(pullCtx, a.PullTimeout, a.MaxChunkLen)
		if err != nil {
			return fmt.Errorf("acquisition: pull: %w", err)
		}
		for i, row := range chunk.Samples {
			sel := make([]float64, len(o.channels))
			for j, ch := range o.channels {
				if ch >= len(row) {
					return fmt.Errorf("%w: sample row %d has %d values", ErrChannelSelection, i, len(row))
				}
				sel[j] = row[ch]
			}
			pending = append(pending, sel)
		}

		for len(pending) >= shiftRows {
			if err := s.buf.Push(pending[:shiftRows]); err != nil {
				return fmt.Errorf("acquisition: buffer: %w", err)
			}
			pending = pending[shiftRows:]

			values, err := o.epoch(s, fs, epochRows, res)
			if err != nil {
				return err
			}
			if values != nil && alpha >= 0 && beta >= 0 {
				o.progress(start, res.Rows, values, alpha, beta)
			}
		}
	}
}

// epoch extracts and logs one row from the newest window. It returns the
// logged values, or nil when the epoch was skipped.
func (o *Orchestrator) epoch(s *session, fs float64, epochRows int, res *Result) ([]float64, error) {
	window, err := s.buf.Latest(epochRows)
	if err != nil {
		return nil, fmt.Errorf("acquisition: window: %w", err)
	}
	values, err := o.deps.Extractor.Extract(window, fs)
	var xerr *dsp.ExtractionError
	if errors.As(err, &xerr) {
		res.Skipped++
		log.Warnf("Acquisition: Skipping epoch: %v", xerr)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquisition: extract: %w", err)
	}

	row := artifact.Row{Time: o.deps.Now(), Values: values}
	if err := s.writer.Append(row); err != nil {
		return nil, err
	}
	res.Rows++

	if o.deps.Transport != nil {
		frame := transport.Frame{Seq: uint64(res.Rows), Time: row.Time, Values: values}
		if res.Rows == 1 {
			frame.Columns = s.writer.Header()[1:]
		}
		if err := o.deps.Transport.Send(frame); err != nil {
			log.Debugf("Acquisition: Transport send failed: %v", err)
		}
	}
	return values, nil
}

// progress prints the mean Alpha and Beta power across channels of the last row.
func (o *Orchestrator) progress(start time.Time, rows int, values []float64, alpha, beta int) {
	n := len(o.channels)
	mean := func(bi int) float64 {
		var sum float64
		for _, v := range values[bi*n : (bi+1)*n] {
			sum += v
		}
		return sum / float64(n)
	}
	log.Infof("Acquisition: %7.1fs  row %d  Alpha %.3f  Beta %.3f",
		o.deps.Now().Sub(start).Seconds(), rows, mean(alpha), mean(beta))
}

// cleanup releases session resources in order. It runs on every exit path.
func (o *Orchestrator) cleanup(s *session, res *Result) {
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			log.Errorf("Acquisition: Closing artifact: %v", err)
		}
		res.Rows = s.writer.Rows()
		log.Infof("Acquisition: Artifact finalized: %s (%d rows)", s.writer.Path(), res.Rows)
	}
	if s.inlet != nil {
		if err := s.inlet.Close(); err != nil {
			log.Debugf("Acquisition: Closing inlet: %v", err)
		}
	}
	if s.proc != nil {
		if err := s.proc.Stop(o.settings.StopTimeout); err != nil {
			log.Warnf("Acquisition: Stopping capture process: %v", err)
		}
	}
	if s.buf != nil {
		s.buf.Reset()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
