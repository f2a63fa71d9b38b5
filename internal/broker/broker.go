// SPDX-License-Identifier: MIT

// Package broker runs an embedded MQTT broker so a recording session can be
// self-contained on one machine.
package broker

import (
	"fmt"

	"eeg/internal/log"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker is a running in-process MQTT broker.
type Broker struct {
	server  *mochi.Server
	address string
}

// Start listens on address (host:port) and serves until Close.
func Start(address string) (*Broker, error) {
	server := mochi.New(&mochi.Options{
		InlineClient: false,
		Logger:       log.Logger().With("component", "broker"),
	})
	if err := server.AddHook(&auth.AllowHook{}, nil); err != nil {
		return nil, fmt.Errorf("broker: add auth hook: %w", err)
	}
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "eeg-tcp",
		Type:    "tcp",
		Address: address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("broker: listen on %s: %w", address, err)
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("broker: serve: %w", err)
	}
	log.Infof("Broker: Listening on %s", address)
	return &Broker{server: server, address: address}, nil
}

// Address returns the configured listen address.
func (b *Broker) Address() string { return b.address }

// Close stops the broker and disconnects all clients.
func (b *Broker) Close() error {
	log.Infof("Broker: Shutting down %s", b.address)
	return b.server.Close()
}
