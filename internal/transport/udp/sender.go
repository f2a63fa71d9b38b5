// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "eeg/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp: sender closed")

// UDPSender writes datagrams to one connected peer.
type UDPSender struct {
	conn *net.UDPConn

	mu     sync.Mutex
	closed bool

	packets atomic.Uint64
	failed  atomic.Uint64
}

// NewUDPSender connects to targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %q: %w", targetAddress, err)
	}
	applog.Infof("UDPSender: Sending telemetry to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn}, nil
}

// Send writes data as a single datagram. Safe for concurrent use.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		// ECONNREFUSED when nothing listens on the peer.
		s.failed.Add(1)
		return fmt.Errorf("udp: write: %w", err)
	}
	s.packets.Add(1)
	return nil
}

// Stats reports datagrams written and writes that failed.
func (s *UDPSender) Stats() (sent, failed uint64) {
	return s.packets.Load(), s.failed.Load()
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	sent, failed := s.Stats()
	applog.Debugf("UDPSender: Closing %s after %d packets (%d failed)", s.conn.RemoteAddr(), sent, failed)
	return s.conn.Close()
}
