// SPDX-License-Identifier: MIT

// Package bitint provides power-of-two helpers used to size FFT workspaces.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Values <= 0
// return 1. Subtracting one first keeps exact powers of two unchanged.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
