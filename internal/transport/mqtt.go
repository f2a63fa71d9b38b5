// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eeg/internal/mqttconn"
)

// MQTTTransport publishes each item as JSON on a fixed topic.
type MQTTTransport struct {
	client  *mqttconn.Client
	topic   string
	timeout time.Duration
	owned   bool
}

// NewMQTTTransport publishes through client. When owned is true Close also
// closes the client.
func NewMQTTTransport(client *mqttconn.Client, topic string, owned bool) *MQTTTransport {
	return &MQTTTransport{client: client, topic: topic, timeout: 2 * time.Second, owned: owned}
}

func (t *MQTTTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("mqtt transport: encode %T: %w", data, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return t.client.Publish(ctx, t.topic, payload, false)
}

func (t *MQTTTransport) Close() error {
	if t.owned {
		return t.client.Close()
	}
	return nil
}

var _ Transport = (*MQTTTransport)(nil)
