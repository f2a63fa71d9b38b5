// SPDX-License-Identifier: MIT
package band

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllCanonicalOrder(t *testing.T) {
	got := All()
	require.Equal(t, []Band{Delta, Theta, Alpha, Beta, Gamma}, got)

	got[0] = Gamma
	assert.Equal(t, Delta, All()[0], "All must return a fresh slice")
}

func TestParseRoundTrip(t *testing.T) {
	for _, b := range All() {
		parsed, err := Parse(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, parsed)
	}

	b, err := Parse("  alpha ")
	require.NoError(t, err)
	assert.Equal(t, Alpha, b)

	_, err = Parse("Mu")
	assert.Error(t, err)
}

func TestTextMarshaling(t *testing.T) {
	text, err := Beta.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Beta", string(text))

	var b Band
	require.NoError(t, b.UnmarshalText([]byte("theta")))
	assert.Equal(t, Theta, b)

	_, err = Band(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Band(9)", Band(9).String())
}

func TestStateLookup(t *testing.T) {
	for _, b := range All() {
		assert.NotEqual(t, UnknownState, State(b), "band %s has no state text", b)
	}
	assert.Equal(t, UnknownState, State(Band(-1)))
	assert.Contains(t, State(Beta), "ACTIVE AND FOCUSED")
	assert.True(t, Alert(Beta))
	assert.False(t, Alert(Theta))
}

func TestRangesAreContiguous(t *testing.T) {
	bands := All()
	for i := 1; i < len(bands); i++ {
		_, prevHigh := bands[i-1].Range()
		low, _ := bands[i].Range()
		assert.Equal(t, prevHigh, low, "gap between %s and %s", bands[i-1], bands[i])
	}
	assert.True(t, Alpha.Contains(8))
	assert.False(t, Alpha.Contains(12))
	assert.True(t, Beta.Contains(12))
	assert.False(t, Delta.Contains(0.25))
}
