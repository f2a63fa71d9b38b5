// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eeg/internal/analysis"
	"eeg/internal/config"
	"eeg/internal/gateway"
	"eeg/internal/log"
	"eeg/internal/mqttconn"
	"eeg/internal/store"
	"eeg/internal/transport"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion gateway that analyzes uploaded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Gateway
			if addr != "" {
				cfg.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			forward, ws, err := newForward(ctx, cfg, opts.cfg.Stream.BrokerAddress)
			if err != nil {
				return err
			}
			defer forward.Close()

			gw, err := gateway.New(gateway.Options{
				Analyzer:       analysis.New(),
				Store:          st,
				Forward:        forward,
				MaxUploadBytes: cfg.MaxUploadBytes,
			})
			if err != nil {
				return err
			}
			return gateway.Run(ctx, gateway.NewServer(gw, cfg.Address, ws))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides gateway.address)")
	return cmd
}

// newForward builds the transports new records are forwarded to. The returned
// handler is non-nil when records are also broadcast over /ws.
func newForward(ctx context.Context, cfg config.GatewayConfig, brokerAddr string) (transport.Multi, http.Handler, error) {
	forward := transport.Multi{}
	var ws http.Handler
	if cfg.WebSocket {
		wst := transport.NewWebSocketTransport()
		forward = append(forward, wst)
		ws = wst
	}
	if cfg.ForwardTopic != "" {
		client, err := mqttconn.Dial(ctx, mqttconn.Options{Address: brokerAddr})
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("connect to forwarding broker: %w", err), forward.Close())
		}
		forward = append(forward, transport.NewMQTTTransport(client, cfg.ForwardTopic, true))
		log.Infof("Serve: Forwarding summaries to %s", cfg.ForwardTopic)
	}
	return forward, ws, nil
}
