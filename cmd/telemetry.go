// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"

	"eeg/internal/config"
	"eeg/internal/log"
	"eeg/internal/mqttconn"
	"eeg/internal/transport"
	"eeg/internal/transport/udp"
)

// newTelemetry assembles the live transports enabled in cfg. Frames are also
// logged when running at debug level.
func newTelemetry(cfg config.TransportConfig, client *mqttconn.Client) (transport.Multi, error) {
	tr := transport.Multi{}
	if log.GetLevel() == log.LevelDebug {
		tr = append(tr, transport.NewLoggingTransport(25))
	}

	fail := func(err error) (transport.Multi, error) {
		return nil, errors.Join(err, tr.Close())
	}

	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		pub, err := udp.NewUDPPublisher(cfg.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		pub.Start()
		tr = append(tr, pub)
	}

	if cfg.WebSocketEnabled {
		ws := transport.NewWebSocketTransport()
		if _, err := ws.Listen(cfg.WebSocketAddress, "/ws"); err != nil {
			ws.Close()
			return fail(err)
		}
		tr = append(tr, ws)
	}

	if cfg.MQTTTopic != "" && client != nil {
		tr = append(tr, transport.NewMQTTTransport(client, cfg.MQTTTopic, false))
	}
	return tr, nil
}
