// Package vibrance maps between saturation and the NVIDIA "digital vibrance"
// attribute.
//
// The driver exposes vibrance as an integer in [-1024, 1023]. The negative
// half covers saturation 0 to 1 linearly, the positive half covers 1 to 4.
// Zero is neutral (saturation 1.0).
package vibrance

import "math"

// Raw vibrance bounds as accepted by the driver.
const (
	MinRaw     = -1024
	MaxRaw     = 1023
	NeutralRaw = 0
)

// Saturation bounds the vibrance mapping covers.
const (
	MinSaturation     = 0.0
	MaxSaturation     = 4.0
	NeutralSaturation = 1.0
)

// ToSaturation converts a raw vibrance value to saturation.
//
// Negative values map to [0, 1): (raw+1024)/1024.
// Non-negative values map to [1, 4]: (3*raw+1023)/1023.
func ToSaturation(raw int) float64 {
	if raw < 0 {
		return float64(raw-MinRaw) / -MinRaw
	}
	return float64(3*raw+MaxRaw) / MaxRaw
}

// FromSaturation converts saturation to a raw vibrance value.
//
// The input is clamped to [0, 4] and the result to [-1024, 1023]. NaN maps
// to the neutral value.
//
// Parameters:
//   - saturation: Desired saturation
//
// Returns:
//   - int: Raw vibrance to write to the driver
func FromSaturation(saturation float64) int {
	if math.IsNaN(saturation) {
		return NeutralRaw
	}
	s := clamp(saturation, MinSaturation, MaxSaturation)

	var raw float64
	if s <= NeutralSaturation {
		raw = s*-MinRaw + MinRaw
	} else {
		raw = (s*MaxRaw - MaxRaw) / 3
	}

	return int(clamp(math.Round(raw), MinRaw, MaxRaw))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
