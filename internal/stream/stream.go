// SPDX-License-Identifier: MIT

// Package stream discovers biosignal streams on the network and pulls sample
// chunks from them. Streams are announced over MQTT: an outlet publishes a
// retained Info document on {prefix}/{uid}/info and sample chunks on
// {prefix}/{uid}/data.
package stream

import (
	"context"
	"errors"
	"time"
)

// TypeEEG is the stream type published by EEG headsets.
const TypeEEG = "EEG"

var ErrInletClosed = errors.New("stream: inlet closed")

// Info describes a discoverable stream.
type Info struct {
	UID          string  `json:"uid"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	ChannelCount int     `json:"channel_count"`
	NominalSrate float64 `json:"nominal_srate"`
	SourceID     string  `json:"source_id,omitempty"`
}

// Property returns the value of a resolvable property: type, name,
// source_id or uid.
func (i Info) Property(prop string) (string, bool) {
	switch prop {
	case "type":
		return i.Type, true
	case "name":
		return i.Name, true
	case "source_id":
		return i.SourceID, true
	case "uid":
		return i.UID, true
	}
	return "", false
}

// Chunk is a block of samples, one row per timestamp.
type Chunk struct {
	Samples    [][]float64 `json:"samples"`
	Timestamps []float64   `json:"timestamps"`
}

// Len returns the number of rows.
func (c Chunk) Len() int { return len(c.Samples) }

// Resolver finds streams and opens inlets on them.
type Resolver interface {
	// Resolve returns the streams whose prop equals value, waiting at most
	// timeout for the first one. No match is not an error.
	Resolve(ctx context.Context, prop, value string, timeout time.Duration) ([]Info, error)
	Open(ctx context.Context, info Info, maxChunkLen int) (Inlet, error)
}

// Inlet is the receiving end of one stream.
type Inlet interface {
	Info() Info
	// PullChunk returns up to maxSamples queued rows. When nothing arrives
	// within timeout it returns an empty chunk and a nil error.
	PullChunk(ctx context.Context, timeout time.Duration, maxSamples int) (Chunk, error)
	Close() error
}

func infoTopic(prefix, uid string) string { return prefix + "/" + uid + "/info" }
func dataTopic(prefix, uid string) string { return prefix + "/" + uid + "/data" }
