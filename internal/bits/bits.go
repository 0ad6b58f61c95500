// Package bits provides low-level bit manipulation primitives.
package bits

import (
	"math"
	"math/bits"
)

// FastModMultiplier returns the precomputed multiplier for FastMod32,
// defined as floor(2^64/d) + 1. math.MaxUint64/d already equals
// floor(2^64/d) whenever d does not divide 2^64; powers of two need the
// extra increment.
func FastModMultiplier(d uint32) uint64 {
	m := math.MaxUint64/uint64(d) + 1
	if d&(d-1) == 0 {
		m++
	}
	return m
}

// FastMod32 computes x mod d without a division instruction, using the
// multiplier returned by FastModMultiplier(d). This is the standard
// 64-bit fastmod reduction: the fractional part of x/d is captured in the
// low 64 bits of m*x, and multiplying it back by d recovers the remainder
// in the high word.
func FastMod32(x uint32, d uint32, m uint64) uint32 {
	lowbits := m * uint64(x)
	hi, _ := bits.Mul64(lowbits, uint64(d))
	return uint32(hi)
}
