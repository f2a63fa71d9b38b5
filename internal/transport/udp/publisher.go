// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	applog "eeg/internal/log"
	"eeg/internal/transport"
)

// UDPPublisher keeps the most recent feature frame handed to Send and, on
// every tick, packs it into a binary packet and sends it with a UDPSender.
// Frames that arrive between ticks replace each other; a tick with no new
// frame sends nothing.
type UDPPublisher struct {
	sender   *UDPSender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	frameMu sync.Mutex
	latest  []float64
	stamp   time.Time
	fresh   bool

	sequenceNum  uint32
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. Intervals <= 0 default to 200ms,
// the shift interval of a default session.
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send records a transport.Frame as the next packet payload. Other types
// are ignored.
func (p *UDPPublisher) Send(data any) error {
	var f transport.Frame
	switch v := data.(type) {
	case transport.Frame:
		f = v
	case *transport.Frame:
		f = *v
	default:
		return nil
	}
	if len(f.Values) > math.MaxUint16 {
		return fmt.Errorf("UDPPublisher: frame has %d values, packet limit is %d", len(f.Values), math.MaxUint16)
	}
	p.frameMu.Lock()
	p.latest = append(p.latest[:0], f.Values...)
	p.stamp = f.Time
	p.fresh = true
	p.frameMu.Unlock()
	return nil
}

// Start begins the periodic publishing goroutine. Calling Start while
// running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publishing goroutine to exit and waits for it.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
Packet layout, BigEndian:

	| Sequence Number | uint32    | 4     | monotonically increasing   |
	| Timestamp       | int64     | 8     | frame time, ns since epoch |
	| Value Count     | uint16    | 2     | number of floats (N)       |
	| Values          | []float32 | N * 4 | band powers, band-major    |
*/

// encodePacket writes one packet for values into buf.
func encodePacket(buf *bytes.Buffer, seq uint32, stamp time.Time, values []float32) error {
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, stamp.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, values)
	}
	return err
}

func (p *UDPPublisher) buildAndSendPacket() {
	p.frameMu.Lock()
	if !p.fresh {
		p.frameMu.Unlock()
		return
	}
	if cap(p.f32Buffer) < len(p.latest) {
		p.f32Buffer = make([]float32, len(p.latest))
	}
	p.f32Buffer = p.f32Buffer[:len(p.latest)]
	for i, v := range p.latest {
		p.f32Buffer[i] = float32(v)
	}
	stamp := p.stamp
	p.fresh = false
	p.frameMu.Unlock()

	p.sequenceNum++
	if err := encodePacket(p.packetBuffer, p.sequenceNum, stamp, p.f32Buffer); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close stops the publisher and closes its sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)
