// SPDX-License-Identifier: MIT
package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eeg/internal/band"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, table string) (*Summary, error) {
	t.Helper()
	return New().Analyze(strings.NewReader(table))
}

func TestDominantBandExample(t *testing.T) {
	table := "Timestamp,Delta_Ch1,Theta_Ch1,Alpha_Ch1,Beta_Ch1,Gamma_Ch1\n" +
		"10:00:00.000000,1,2,3,5,4\n" +
		"10:00:00.200000,1,2,3,5,4\n"
	s, err := analyze(t, table)
	require.NoError(t, err)

	assert.Equal(t, band.Beta, s.DominantBand)
	assert.Equal(t, 5.0, s.DominantPower)
	assert.Equal(t, band.State(band.Beta), s.State)
	assert.Equal(t, 2, s.Rows)
	delta, ok := s.Power(band.Delta)
	require.True(t, ok)
	assert.Equal(t, 1.0, delta.Mean)
}

func TestTiesResolveToEarliestCanonicalBand(t *testing.T) {
	table := "Timestamp,Delta_Ch1,Theta_Ch1,Alpha_Ch1,Beta_Ch1,Gamma_Ch1\n" +
		"10:00:00.000000,3,3,3,3,3\n"
	s, err := analyze(t, table)
	require.NoError(t, err)
	assert.Equal(t, band.Delta, s.DominantBand)

	table = "Timestamp,Delta_Ch1,Theta_Ch1,Alpha_Ch1,Beta_Ch1,Gamma_Ch1\n" +
		"10:00:00.000000,1,2,7,7,7\n"
	s, err = analyze(t, table)
	require.NoError(t, err)
	assert.Equal(t, band.Alpha, s.DominantBand)

	// Configured order does not change the tie-break.
	s, err = New(band.Gamma, band.Beta, band.Alpha).Analyze(strings.NewReader(table))
	require.NoError(t, err)
	assert.Equal(t, band.Alpha, s.DominantBand)
}

func TestFlatMeanAcrossChannels(t *testing.T) {
	table := "Timestamp,Alpha_Ch1,Alpha_Ch2,Beta_Ch1,Beta_Ch2\n" +
		"t,1,3,0,0\n" +
		"t,5,,0,0\n"
	s, err := analyze(t, table)
	require.NoError(t, err)
	alpha, _ := s.Power(band.Alpha)
	assert.Equal(t, 3.0, alpha.Mean, "blank cells are skipped")
	assert.Equal(t, 3, alpha.Cells)
	assert.Equal(t, 2, alpha.Columns)
}

func TestRowOrderDoesNotMatter(t *testing.T) {
	rows := []string{"t,0.25,-1,2", "t,1.5,0.125,-3", "t,4,2,0.5", "t,-0.75,8,1"}
	header := "Timestamp,Delta_Ch1,Alpha_Ch1,Gamma_Ch1\n"

	forward, err := analyze(t, header+strings.Join(rows, "\n")+"\n")
	require.NoError(t, err)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	reversed, err := analyze(t, header+strings.Join(rows, "\n")+"\n")
	require.NoError(t, err)

	assert.Equal(t, forward.DominantBand, reversed.DominantBand)
	for i := range forward.Powers {
		assert.InDelta(t, forward.Powers[i].Mean, reversed.Powers[i].Mean, 1e-12)
	}
}

func TestMissingBandsAreExcluded(t *testing.T) {
	table := "Timestamp,Theta_Ch1,Alpha_Ch1\nt,-2,-3\n"
	s, err := analyze(t, table)
	require.NoError(t, err)
	assert.Equal(t, band.Theta, s.DominantBand)

	delta, _ := s.Power(band.Delta)
	assert.True(t, delta.Missing)
	assert.Equal(t, 0, delta.Columns)
}

func TestDeltaBetaOnly(t *testing.T) {
	table := "Timestamp,Delta_Ch1,Beta_Ch1\n" +
		"10:00:00.000000,1,5\n" +
		"10:00:00.200000,1,5\n" +
		"10:00:00.400000,1,5\n"
	s, err := analyze(t, table)
	require.NoError(t, err)

	delta, _ := s.Power(band.Delta)
	beta, _ := s.Power(band.Beta)
	assert.Equal(t, 1.0, delta.Mean)
	assert.Equal(t, 5.0, beta.Mean)
	assert.Equal(t, band.Beta, s.DominantBand)
	assert.Equal(t, 3, s.Rows)
}

func TestNoUsableData(t *testing.T) {
	_, err := analyze(t, "Timestamp,Delta_Ch1,Alpha_Ch1\n")
	assert.ErrorIs(t, err, ErrNoUsableData)

	_, err = analyze(t, "Timestamp,Notes\nt,hello\n")
	assert.ErrorIs(t, err, ErrNoUsableData)
}

func TestUnreadableInput(t *testing.T) {
	_, err := analyze(t, "")
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = analyze(t, "Timestamp,Alpha_Ch1\nt,abc\n")
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = analyze(t, "Timestamp,Alpha_Ch1\nt,\"unterminated\n")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_session_20250101_000000.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Gamma_Ch1,Beta_Ch1\nt,9,1\n"), 0o644))

	s, err := New().AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, band.Gamma, s.DominantBand)

	_, err = New().AnalyzeFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
