package ctm

import (
	"fmt"
	"strings"
)

// Matrix dimensions.
const (
	// Rows is the number of rows (and columns) of a colour transform matrix.
	Rows = 3

	// Size is the number of coefficients in a colour transform matrix.
	Size = Rows * Rows
)

// Matrix is a row-major 3×3 colour transform matrix.
type Matrix [Size]float64

// Identity returns the matrix that leaves colours unchanged.
func Identity() Matrix {
	return Matrix{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// FromSaturation builds the matrix for the given saturation.
//
// Every coefficient is (1-s)/3 and the diagonal additionally gets s, so each
// row sums to 1 and luminance is preserved. No range check is done here.
//
// Parameters:
//   - saturation: 1.0 = unchanged, 0.0 = grayscale, >1.0 = over-saturated
//
// Returns:
//   - Matrix: The colour transform matrix
func FromSaturation(saturation float64) Matrix {
	coeff := (1.0 - saturation) / 3.0

	var m Matrix
	for i := range m {
		m[i] = coeff
		if isDiagonal(i) {
			m[i] = coeff + saturation
		}
	}
	return m
}

// Saturation recovers the saturation from a matrix built by FromSaturation.
//
// It subtracts an off-diagonal coefficient from a diagonal one in the same
// row. Matrices that were not produced by FromSaturation do not round-trip.
func (m Matrix) Saturation() float64 {
	return m[0] - m[1]
}

// Row returns row r (0-2) of the matrix.
func (m Matrix) Row(r int) [Rows]float64 {
	return [Rows]float64{m[r*Rows], m[r*Rows+1], m[r*Rows+2]}
}

// String renders the matrix as three colon-separated rows.
func (m Matrix) String() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		row := m.Row(r)
		fmt.Fprintf(&sb, "%2.4f:%2.4f:%2.4f", row[0], row[1], row[2])
		if r < Rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// isDiagonal reports whether index i (row-major) lies on the diagonal.
func isDiagonal(i int) bool {
	return i%(Rows+1) == 0
}
