// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"sync"
	"time"

	"eeg/internal/log"
	"eeg/internal/mqttconn"
)

// queueInlet buffers rows received from the network until they are pulled.
// When the queue is full the oldest rows are dropped.
type queueInlet struct {
	info        Info
	capacity    int
	maxChunkLen int

	mu         sync.Mutex
	samples    [][]float64
	timestamps []float64
	dropped    int
	closed     bool
	notify     chan struct{}

	lost    <-chan struct{}
	onClose func() error
}

var _ Inlet = (*queueInlet)(nil)

func newQueueInlet(info Info, capacity, maxChunkLen int) *queueInlet {
	return &queueInlet{
		info:        info,
		capacity:    capacity,
		maxChunkLen: maxChunkLen,
		notify:      make(chan struct{}, 1),
	}
}

func (q *queueInlet) Info() Info { return q.info }

func (q *queueInlet) enqueue(c Chunk) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	for i, row := range c.Samples {
		ts := 0.0
		if i < len(c.Timestamps) {
			ts = c.Timestamps[i]
		}
		q.samples = append(q.samples, row)
		q.timestamps = append(q.timestamps, ts)
	}
	if over := len(q.samples) - q.capacity; over > 0 {
		if q.dropped == 0 {
			log.Warnf("Stream: Inlet %q queue full, dropping oldest samples", q.info.Name)
		}
		q.dropped += over
		q.samples = append(q.samples[:0:0], q.samples[over:]...)
		q.timestamps = append(q.timestamps[:0:0], q.timestamps[over:]...)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// take removes up to n rows from the front of the queue.
func (q *queueInlet) take(n int) (Chunk, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Chunk{}, false, ErrInletClosed
	}
	if len(q.samples) == 0 {
		return Chunk{}, false, nil
	}
	n = min(n, len(q.samples))
	c := Chunk{
		Samples:    append([][]float64(nil), q.samples[:n]...),
		Timestamps: append([]float64(nil), q.timestamps[:n]...),
	}
	q.samples = q.samples[n:]
	q.timestamps = q.timestamps[n:]
	if len(q.samples) == 0 {
		q.dropped = 0
	}
	return c, true, nil
}

func (q *queueInlet) PullChunk(ctx context.Context, timeout time.Duration, maxSamples int) (Chunk, error) {
	if maxSamples <= 0 {
		maxSamples = q.maxChunkLen
	}
	if maxSamples <= 0 {
		maxSamples = 1024
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		c, ok, err := q.take(maxSamples)
		if err != nil || ok {
			return c, err
		}
		select {
		case <-q.notify:
		case <-q.lost:
			// Drain whatever arrived before the drop.
			if c, ok, err := q.take(maxSamples); err != nil || ok {
				return c, err
			}
			return Chunk{}, mqttconn.ErrConnectionLost
		case <-timer.C:
			return Chunk{}, nil
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		}
	}
}

func (q *queueInlet) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.samples = nil
	q.timestamps = nil
	q.mu.Unlock()

	if q.onClose != nil {
		return q.onClose()
	}
	return nil
}
