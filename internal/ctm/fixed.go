package ctm

import (
	"fmt"
	"math"
)

// Fixed-point wire constants.
const (
	// WireWords is the number of 32-bit words in an encoded matrix.
	WireWords = Size * 2

	// fracScale is 2^32, the scale of the 32 fractional bits.
	fracScale = 1 << 32

	// signBit is the sign flag of a signed-magnitude S31.32 value.
	signBit = uint64(1) << 63

	// magnitudeMask selects the 63 magnitude bits.
	magnitudeMask = signBit - 1

	// wordMask selects the low 32 bits.
	wordMask = 0xFFFFFFFF

	// wordShift is the width of one wire word.
	wordShift = 32

	// highWordSign is the sign flag as seen in the high word.
	highWordSign = uint32(1) << 31
)

// WireMatrix is an encoded Matrix: nine S31.32 signed-magnitude values, each
// split into a low word followed by a high word.
type WireMatrix [WireWords]uint32

// EncodeCoefficient converts c to signed-magnitude S31.32.
//
// Magnitudes that do not fit 63 bits saturate at the largest representable
// value. NaN encodes as zero. Zero, including -0 and negative values that
// round to zero, never carries the sign bit.
func EncodeCoefficient(c float64) uint64 {
	if math.IsNaN(c) {
		return 0
	}

	negative := c < 0
	scaled := math.Round(math.Abs(c) * fracScale)

	var magnitude uint64
	if scaled >= float64(signBit) {
		magnitude = magnitudeMask
	} else {
		magnitude = uint64(scaled)
	}

	if negative && magnitude != 0 {
		return magnitude | signBit
	}
	return magnitude
}

// DecodeCoefficient converts a signed-magnitude S31.32 value back to a float.
func DecodeCoefficient(v uint64) float64 {
	magnitude := v & magnitudeMask
	if magnitude == 0 {
		return 0
	}
	value := float64(magnitude) / fracScale
	if v&signBit != 0 {
		return -value
	}
	return value
}

// SplitWords splits v into its low and high 32-bit words.
func SplitWords(v uint64) (lo, hi uint32) {
	return uint32(v & wordMask), uint32(v >> wordShift)
}

// JoinWords reassembles a 64-bit value from its low and high words.
func JoinWords(lo, hi uint32) uint64 {
	return uint64(hi)<<wordShift | uint64(lo)
}

// Encode converts every coefficient of m to S31.32 and pads the result to
// 32-bit words, low word first.
func Encode(m Matrix) WireMatrix {
	var w WireMatrix
	for i, c := range m {
		w[2*i], w[2*i+1] = SplitWords(EncodeCoefficient(c))
	}
	return w
}

// Decode is the inverse of Encode.
//
// The sign comes from bit 31 of each high word and is cleared before the
// magnitude is scaled.
func Decode(w WireMatrix) Matrix {
	var m Matrix
	for i := range m {
		m[i] = DecodeCoefficient(JoinWords(w[2*i], w[2*i+1]))
	}
	return m
}

// Negative reports whether coefficient i of w carries the sign bit.
func (w WireMatrix) Negative(i int) bool {
	return w[2*i+1]&highWordSign != 0
}

// ParseWords builds a WireMatrix from exactly WireWords words.
//
// Returns:
//   - WireMatrix: The words as a fixed-size matrix
//   - error: ErrDecodingFailed if the word count is wrong
func ParseWords(words []uint32) (WireMatrix, error) {
	var w WireMatrix
	if len(words) != WireWords {
		return w, fmt.Errorf("%w: need %d words, got %d", ErrDecodingFailed, WireWords, len(words))
	}
	copy(w[:], words)
	return w, nil
}

// Words returns the wire words as a slice.
func (w WireMatrix) Words() []uint32 {
	out := make([]uint32, WireWords)
	copy(out, w[:])
	return out
}

// Matrix decodes w. It is shorthand for Decode(w).
func (w WireMatrix) Matrix() Matrix {
	return Decode(w)
}
