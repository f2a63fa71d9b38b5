// SPDX-License-Identifier: MIT

// Package mqttconn wraps a paho MQTT v5 client with topic-filter dispatch so
// several components can share one connection.
package mqttconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"eeg/internal/log"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// ErrConnectionLost is returned once the broker connection has dropped.
var ErrConnectionLost = errors.New("mqtt: connection lost")

// Handler receives messages matching a subscription. It runs on the client's
// receive goroutine and must not block.
type Handler func(topic string, payload []byte, retained bool)

// Options configures Dial.
type Options struct {
	// Address is host:port, optionally prefixed with tcp:// or mqtt://.
	Address   string
	ClientID  string
	KeepAlive uint16
}

type subscription struct {
	filter  string
	handler Handler
}

// Client is a connected MQTT session.
type Client struct {
	id   string
	pc   *paho.Client
	conn net.Conn

	mu   sync.RWMutex
	subs []subscription

	done      chan struct{}
	doneOnce  sync.Once
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the broker at opts.Address.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	addr := opts.Address
	for _, scheme := range []string{"tcp://", "mqtt://"} {
		addr = strings.TrimPrefix(addr, scheme)
	}
	if addr == "" {
		return nil, errors.New("mqtt: empty broker address")
	}
	if opts.ClientID == "" {
		opts.ClientID = "eeg-" + uuid.NewString()
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 5
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mqtt: dial %s: %w", addr, err)
	}

	c := &Client{id: opts.ClientID, conn: conn, done: make(chan struct{})}
	c.pc = paho.NewClient(paho.ClientConfig{
		ClientID: opts.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				c.dispatch(pr.Packet.Topic, pr.Packet.Payload, pr.Packet.Retain)
				return true, nil
			},
		},
		OnClientError: func(err error) {
			if c.closing.Load() {
				c.markDone()
				return
			}
			log.Warnf("MQTT: Client %s error: %v", c.id, err)
			c.markDone()
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			log.Warnf("MQTT: Server disconnected client %s (reason %d)", c.id, d.ReasonCode)
			c.markDone()
		},
	})

	ca, err := c.pc.Connect(ctx, &paho.Connect{
		ClientID:   opts.ClientID,
		KeepAlive:  opts.KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mqtt: connect %s: %w", addr, err)
	}
	if ca.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("mqtt: connect %s refused: reason %d", addr, ca.ReasonCode)
	}
	log.Debugf("MQTT: Client %s connected to %s", c.id, addr)
	return c, nil
}

// ID returns the MQTT client identifier.
func (c *Client) ID() string { return c.id }

// Done is closed when the connection is lost or closed.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) dispatch(topic string, payload []byte, retained bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.subs {
		if Match(s.filter, topic) {
			s.handler(topic, payload, retained)
		}
	}
}

// Subscribe registers handler for filter and subscribes at QoS 0. Retained
// messages for the filter are delivered to handler.
func (c *Client) Subscribe(ctx context.Context, filter string, handler Handler) error {
	c.mu.Lock()
	c.subs = append(c.subs, subscription{filter: filter, handler: handler})
	c.mu.Unlock()

	_, err := c.pc.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: 0}},
	})
	if err != nil {
		c.removeHandlers(filter)
		return fmt.Errorf("mqtt: subscribe %s: %w", filter, err)
	}
	return nil
}

// Unsubscribe drops every handler for filter and unsubscribes from the broker.
func (c *Client) Unsubscribe(ctx context.Context, filter string) error {
	c.removeHandlers(filter)
	if _, err := c.pc.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{filter}}); err != nil {
		return fmt.Errorf("mqtt: unsubscribe %s: %w", filter, err)
	}
	return nil
}

func (c *Client) removeHandlers(filter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.subs[:0]
	for _, s := range c.subs {
		if s.filter != filter {
			kept = append(kept, s)
		}
	}
	c.subs = kept
}

// Publish sends payload to topic at QoS 0.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	select {
	case <-c.done:
		return ErrConnectionLost
	default:
	}
	_, err := c.pc.Publish(ctx, &paho.Publish{
		QoS:     0,
		Retain:  retain,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		select {
		case <-c.done:
			c.conn.Close()
			return
		default:
		}
		c.markDone()
		c.closeErr = c.pc.Disconnect(&paho.Disconnect{ReasonCode: 0})
		// Let paho flush the disconnect before the socket goes.
		select {
		case <-c.pc.Done():
		case <-time.After(500 * time.Millisecond):
		}
		c.conn.Close()
	})
	return c.closeErr
}
