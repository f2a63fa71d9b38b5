// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eeg/internal/analysis"
	"eeg/internal/band"
	"eeg/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "Timestamp,Delta_Ch1,Theta_Ch1,Alpha_Ch1,Beta_Ch1,Gamma_Ch1\n" +
	"10:00:00.000000,1,2,6,5,4\n" +
	"10:00:00.200000,1,2,6,5,4\n"

// run executes the root command with a config pointing the session output
// directory at dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("session:\n  output_dir: "+dir+"\n"), 0o644))

	var out bytes.Buffer
	opts := &options{stdin: strings.NewReader(""), stdout: &out}
	root := newRootCmd(opts)
	root.SetArgs(append([]string{"--config=" + cfgPath}, args...))
	root.SetOut(&out)
	err := root.Execute()
	return out.String(), err
}

func writeSession(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestAnalyzeExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "mine.csv", session, time.Now())

	out, err := run(t, dir, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dominant band: Alpha")
	assert.Contains(t, out, band.State(band.Alpha))
}

func TestAnalyzePicksNewest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	older := "Timestamp,Alpha_Ch1,Beta_Ch1\n10:00:00.000000,1,9\n"
	writeSession(t, dir, "eeg_session_20260301_090000.csv", older, now.Add(-time.Hour))
	writeSession(t, dir, "eeg_session_20260301_100000.csv", session, now)

	out, err := run(t, dir, "analyze", "--json")
	require.NoError(t, err)

	var s analysis.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, band.Alpha, s.DominantBand)
	assert.Equal(t, 2, s.Rows)
}

func TestAnalyzeUsageErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no artifacts", []string{"analyze"}},
		{"too many files", []string{"analyze", "a.csv", "b.csv"}},
		{"unknown flag", []string{"analyze", "--bogus"}},
		{"bad log level", []string{"--log-level", "loud", "analyze"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			var ue *UsageError
			require.True(t, errors.As(err, &ue), "got %v", err)
		})
	}
}

func TestAnalyzeUnreadableIsFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Alpha_Ch1\n10:00:00.000000,abc\n"), 0o644))

	_, err := run(t, dir, "analyze", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrUnreadable)
	var ue *UsageError
	assert.False(t, errors.As(err, &ue))
}

func TestExecuteExitCodes(t *testing.T) {
	assert.Equal(t, ExitUsage, Execute([]string{"analyze", "a.csv", "b.csv"}))
	assert.Equal(t, ExitFailure, Execute([]string{"analyze", filepath.Join(t.TempDir(), "missing.csv")}))
}

func TestWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, waitForEnter(context.Background(), strings.NewReader("\n"), &out))
	assert.Contains(t, out.String(), "Press ENTER")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.ErrorIs(t, waitForEnter(ctx, r, &out), context.Canceled)
}

func TestStartPromptWithoutTerminal(t *testing.T) {
	start := startPrompt(strings.NewReader(""), &bytes.Buffer{})
	assert.NoError(t, start(context.Background()))
}

func TestNotchFactory(t *testing.T) {
	cfg := config.Default().Acquisition
	cfg.NotchEnabled = false
	assert.Nil(t, notchFactory(cfg))

	cfg.NotchEnabled = true
	f, err := notchFactory(cfg)(4, 256)
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = notchFactory(cfg)(4, 100)
	assert.Error(t, err)
}

func TestNewForwardOwnsEveryTransport(t *testing.T) {
	ctx := context.Background()

	forward, ws, err := newForward(ctx, config.GatewayConfig{}, "")
	require.NoError(t, err)
	assert.Empty(t, forward)
	assert.Nil(t, ws)

	forward, ws, err = newForward(ctx, config.GatewayConfig{WebSocket: true}, "")
	require.NoError(t, err)
	require.Len(t, forward, 1)
	require.NotNil(t, ws)
	require.NoError(t, forward.Send("summary"))

	// Closing the returned set reaches the transport appended during setup.
	require.NoError(t, forward.Close())
	assert.Error(t, forward.Send("summary"))
}

func TestNewForwardBrokerFailure(t *testing.T) {
	_, _, err := newForward(context.Background(), config.GatewayConfig{WebSocket: true, ForwardTopic: "eeg/summaries"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to forwarding broker")
}
