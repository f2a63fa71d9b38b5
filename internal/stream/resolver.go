// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"eeg/internal/log"
	"eeg/internal/mqttconn"
)

// DefaultQueueSeconds bounds how much unread data an inlet keeps.
const DefaultQueueSeconds = 30

// MQTTResolver resolves streams announced on an MQTT broker.
type MQTTResolver struct {
	client       *mqttconn.Client
	prefix       string
	queueSeconds float64
}

var _ Resolver = (*MQTTResolver)(nil)

// NewMQTTResolver uses client for discovery and inlets under topic prefix.
func NewMQTTResolver(client *mqttconn.Client, prefix string) *MQTTResolver {
	return &MQTTResolver{client: client, prefix: prefix, queueSeconds: DefaultQueueSeconds}
}

// Resolve implements Resolver. It returns as soon as one matching stream is seen.
func (r *MQTTResolver) Resolve(ctx context.Context, prop, value string, timeout time.Duration) ([]Info, error) {
	filter := infoTopic(r.prefix, "+")

	var (
		mu    sync.Mutex
		found []Info
		seen  = map[string]bool{}
		hit   = make(chan struct{}, 1)
	)
	handler := func(topic string, payload []byte, _ bool) {
		if len(payload) == 0 {
			return
		}
		var info Info
		if err := json.Unmarshal(payload, &info); err != nil {
			log.Warnf("Stream: Ignoring malformed info on %s: %v", topic, err)
			return
		}
		if v, ok := info.Property(prop); !ok || v != value {
			return
		}
		mu.Lock()
		if !seen[info.UID] {
			seen[info.UID] = true
			found = append(found, info)
		}
		mu.Unlock()
		select {
		case hit <- struct{}{}:
		default:
		}
	}

	if err := r.client.Subscribe(ctx, filter, handler); err != nil {
		return nil, fmt.Errorf("stream: resolve: %w", err)
	}
	defer func() {
		if err := r.client.Unsubscribe(context.WithoutCancel(ctx), filter); err != nil {
			log.Debugf("Stream: %v", err)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-hit:
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]Info(nil), found...), nil
}

// Open implements Resolver.
func (r *MQTTResolver) Open(ctx context.Context, info Info, maxChunkLen int) (Inlet, error) {
	capacity := int(r.queueSeconds * info.NominalSrate)
	if capacity <= 0 {
		capacity = 4096
	}
	in := newQueueInlet(info, capacity, maxChunkLen)
	topic := dataTopic(r.prefix, info.UID)

	err := r.client.Subscribe(ctx, topic, func(_ string, payload []byte, _ bool) {
		var chunk Chunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			log.Warnf("Stream: Dropping malformed chunk on %s: %v", topic, err)
			return
		}
		in.enqueue(chunk)
	})
	if err != nil {
		return nil, fmt.Errorf("stream: open %s: %w", info.UID, err)
	}

	in.lost = r.client.Done()
	in.onClose = func() error {
		return r.client.Unsubscribe(context.Background(), topic)
	}
	log.Infof("Stream: Opened inlet on %q (%d channels @ %.1f Hz)", info.Name, info.ChannelCount, info.NominalSrate)
	return in, nil
}
