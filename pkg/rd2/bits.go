// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"math"
	"math/bits"
)

// Identifier fields carrying valve channels 1 and 2. Positions are counted
// MSB-first over the 32-bit identifier: channel 1 sits at positions 12-19
// (identifier bits 19..12), channel 2 at positions 4-11 (bits 27..20).
const (
	valveChannel1Shift = 12
	valveChannel2Shift = 20
)

// identifierByte returns the 8-bit field of id starting at bit shift
func identifierByte(id uint32, shift uint) uint8 {
	return uint8(id >> shift)
}

// reverseSignificant reverses the significant bits of v. Leading zeros are
// dropped before the reversal, so 0b00000110 becomes 0b011 rather than
// 0b01100000. Zero stays zero.
func reverseSignificant(v uint8) uint8 {
	if v == 0 {
		return 0
	}
	return bits.Reverse8(v) >> (8 - bits.Len8(v))
}

// valveField extracts and reverses one identifier valve field
func valveField(id uint32, shift uint) uint8 {
	return reverseSignificant(identifierByte(id, shift))
}

// beUint reads up to 8 bytes as a big-endian unsigned integer
func beUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// leUint reads up to 8 bytes as a little-endian unsigned integer
func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// beInt reads up to 8 bytes as a big-endian two's complement integer that is
// exactly 8*len(b) bits wide
func beInt(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	pad := uint(64 - 8*len(b))
	return int64(beUint(b)<<pad) >> pad
}

// Float32frombits reinterprets a raw 32-bit word as an IEEE-754 float
func Float32frombits(w uint32) float32 {
	return math.Float32frombits(w)
}

// word32 returns the first 32 bits of b as a big-endian word. Shorter slices
// yield the integer value of the bytes present.
func word32(b []byte) uint32 {
	if len(b) > 4 {
		b = b[:4]
	}
	return uint32(beUint(b))
}

// clamp returns b limited to [lo, hi) bytes, or nil when lo is past the end
func clamp(b []byte, lo, hi int) []byte {
	if lo >= len(b) {
		return nil
	}
	if hi > len(b) {
		hi = len(b)
	}
	return b[lo:hi]
}
