// Package bfloat16 provides Google brain floating-point (bfloat16) numbers.
//
// BFloat16 values use 16 bits with the following layout:
//   - 1 bit sign
//   - 8 bits exponent (bias of 127, same as float32)
//   - 7 bits mantissa (implicit leading 1 for normalized values)
//
// The format is the upper half of an IEEE 754 float32, which makes
// conversion cheap and gives it the full float32 dynamic range. It is the
// storage format of most trained neural-network weights, including the
// tensors handled by the df11 codec in this module.
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 represents a bfloat16 floating-point number.
// The underlying storage is a uint16.
type BFloat16 uint16

// Bit layout constants.
const (
	signBit      = 0x8000
	exponentMask = 0x7F80
	mantissaMask = 0x007F

	exponentShift = 7
	exponentBias  = 127
	maxExponent   = 255
)

// Special values.
const (
	posInf = BFloat16(0x7F80) // +Infinity
	negInf = BFloat16(0xFF80) // -Infinity
	nan    = BFloat16(0x7FC0) // Quiet NaN (one of many valid NaN representations)

	posZero = BFloat16(0x0000)
	negZero = BFloat16(0x8000)

	maxBFloat16 = BFloat16(0x7F7F) // Largest positive finite value (~3.39e38)
	minBFloat16 = BFloat16(0xFF7F) // Most negative finite value (~-3.39e38)
)

// Common constant values.
var (
	// Inf is positive infinity.
	Inf = posInf
	// NegInf is negative infinity.
	NegInf = negInf
	// NaN is a quiet NaN value.
	NaN = nan
	// Zero is positive zero.
	Zero = posZero
	// NegZero is negative zero.
	NegZero = negZero
	// Max is the largest finite positive bfloat16 value (~3.39e38).
	Max = maxBFloat16
	// Min is the most negative finite bfloat16 value (~-3.39e38).
	Min = minBFloat16
)

// FromFloat32 converts a float32 to a BFloat16 using round-to-nearest-even.
func FromFloat32(f float32) BFloat16 {
	bits := math.Float32bits(f)

	// NaN: truncation could turn a NaN into infinity if the surviving
	// mantissa bits are all zero, so force the quiet bit instead.
	if bits&0x7F800000 == 0x7F800000 && bits&0x007FFFFF != 0 {
		return BFloat16(bits>>16) | 0x0040
	}

	// Round to nearest even on the 16 bits that are dropped.
	bits += 0x7FFF + (bits>>16)&1
	return BFloat16(bits >> 16)
}

// FromFloat64 converts a float64 to a BFloat16 using round-to-nearest-even.
func FromFloat64(f float64) BFloat16 {
	return FromFloat32(float32(f))
}

// Float32 converts a BFloat16 to a float32. The conversion is exact.
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Float64 converts a BFloat16 to a float64. The conversion is exact.
func (b BFloat16) Float64() float64 {
	return float64(b.Float32())
}

// Bits returns the bit representation of b.
func (b BFloat16) Bits() uint16 {
	return uint16(b)
}

// FromBits creates a BFloat16 from its bit representation.
func FromBits(bits uint16) BFloat16 {
	return BFloat16(bits)
}

// Compose assembles a BFloat16 from a decoded 8-bit exponent and a packed
// sign/mantissa byte (sign in bit 7, the 7 mantissa bits in bits 0..6).
// This is the storage split used by the df11 compressed representation.
func Compose(exponent, signMantissa uint8) BFloat16 {
	return BFloat16(uint16(signMantissa&0x80)<<8 |
		uint16(exponent)<<exponentShift |
		uint16(signMantissa&0x7F))
}

// Exponent returns the raw 8-bit exponent field of b.
func (b BFloat16) Exponent() uint8 {
	return uint8((b & exponentMask) >> exponentShift)
}

// SignMantissa returns the sign and mantissa of b packed into one byte:
// sign in bit 7, the 7 mantissa bits in bits 0..6. Together with Exponent
// this is the exact inverse of Compose.
func (b BFloat16) SignMantissa() uint8 {
	return uint8(b>>8)&0x80 | uint8(b&mantissaMask)
}

// IsNaN returns true if b is a NaN value.
func (b BFloat16) IsNaN() bool {
	return b&exponentMask == exponentMask && b&mantissaMask != 0
}

// IsInf returns true if b is positive or negative infinity.
func (b BFloat16) IsInf() bool {
	return b&0x7FFF == exponentMask
}

// IsZero returns true if b is positive or negative zero.
func (b BFloat16) IsZero() bool {
	return b&0x7FFF == 0
}

// IsNormal returns true if b is a normalized non-zero finite value.
func (b BFloat16) IsNormal() bool {
	exp := b & exponentMask
	return exp != 0 && exp != exponentMask
}

// IsSubnormal returns true if b is a subnormal (denormalized) non-zero value.
func (b BFloat16) IsSubnormal() bool {
	return b&exponentMask == 0 && b&mantissaMask != 0
}

// IsFinite returns true if b is not Inf or NaN.
func (b BFloat16) IsFinite() bool {
	return b&exponentMask != exponentMask
}

// Sign returns the sign of b: -1 for negative, 0 for zero or NaN, 1 for positive.
func (b BFloat16) Sign() int {
	if b.IsNaN() || b.IsZero() {
		return 0
	}
	if b&signBit != 0 {
		return -1
	}
	return 1
}

// Neg returns the negation of b.
func (b BFloat16) Neg() BFloat16 {
	return b ^ signBit
}

// Abs returns the absolute value of b.
func (b BFloat16) Abs() BFloat16 {
	return b &^ signBit
}

// String returns a string representation of b.
func (b BFloat16) String() string {
	switch {
	case b.IsNaN():
		return "NaN"
	case b == posInf:
		return "+Inf"
	case b == negInf:
		return "-Inf"
	default:
		return strconv.FormatFloat(b.Float64(), 'g', -1, 32)
	}
}
