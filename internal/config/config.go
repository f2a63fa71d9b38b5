// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults for a session recorded from a four-electrode consumer headset
// bridged by muselsl.
const (
	DefaultLogLevel = "info"

	DefaultBufferSeconds  = 5.0
	DefaultEpochSeconds   = 1.0
	DefaultOverlapSeconds = 0.8
	DefaultWindow         = "hamming"
	DefaultNotchHz        = 60.0
	DefaultNotchQ         = 30.0
	DefaultMaxChunkLen    = 12
	DefaultPullTimeout    = time.Second

	DefaultCaptureCommand = "muselsl"
	DefaultWarmUp         = 10 * time.Second
	DefaultStopTimeout    = 5 * time.Second

	DefaultBrokerAddress  = "127.0.0.1:1883"
	DefaultStreamPrefix   = "eeg/streams"
	DefaultStreamType     = "EEG"
	DefaultResolveTimeout = 5 * time.Second

	DefaultSimulatedName     = "Muse-Sim"
	DefaultSimulatedRate     = 256.0
	DefaultSimulatedChannels = 5

	DefaultOutputDir = "."

	DefaultGatewayAddress = ":8080"
	DefaultDataDir        = "./data"
	DefaultMaxUploadBytes = 32 << 20

	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 200 * time.Millisecond
	DefaultWebSocketAddress = "127.0.0.1:8081"
)

// DefaultChannels is the hardware channel selection used when none is configured.
func DefaultChannels() []int { return []int{0, 1, 2, 3} }

// ShiftSeconds is the time between consecutive epochs.
func (a AcquisitionConfig) ShiftSeconds() float64 {
	return a.EpochSeconds - a.OverlapSeconds
}
