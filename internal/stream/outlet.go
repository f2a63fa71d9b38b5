// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"eeg/internal/log"
	"eeg/internal/mqttconn"

	"github.com/google/uuid"
)

// Outlet announces a stream and publishes its chunks.
type Outlet struct {
	client *mqttconn.Client
	prefix string
	info   Info
}

// NewOutlet publishes info as a retained announcement. An empty UID is
// replaced with a random one.
func NewOutlet(ctx context.Context, client *mqttconn.Client, prefix string, info Info) (*Outlet, error) {
	if info.UID == "" {
		info.UID = uuid.NewString()
	}
	if info.ChannelCount <= 0 {
		return nil, fmt.Errorf("stream: outlet needs at least one channel, got %d", info.ChannelCount)
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("stream: encode info: %w", err)
	}
	if err := client.Publish(ctx, infoTopic(prefix, info.UID), payload, true); err != nil {
		return nil, fmt.Errorf("stream: announce %s: %w", info.Name, err)
	}
	log.Infof("Stream: Outlet %q announced as %s", info.Name, info.UID)
	return &Outlet{client: client, prefix: prefix, info: info}, nil
}

// Info returns the announced stream description.
func (o *Outlet) Info() Info { return o.info }

// Push publishes one chunk. Every row must have ChannelCount values.
func (o *Outlet) Push(ctx context.Context, chunk Chunk) error {
	for i, row := range chunk.Samples {
		if len(row) != o.info.ChannelCount {
			return fmt.Errorf("stream: row %d has %d values, outlet has %d channels", i, len(row), o.info.ChannelCount)
		}
	}
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("stream: encode chunk: %w", err)
	}
	return o.client.Publish(ctx, dataTopic(o.prefix, o.info.UID), payload, false)
}

// Close withdraws the retained announcement.
func (o *Outlet) Close(ctx context.Context) error {
	return o.client.Publish(ctx, infoTopic(o.prefix, o.info.UID), nil, true)
}
