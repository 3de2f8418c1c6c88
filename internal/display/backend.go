package display

import (
	"errors"
	"fmt"
	"math"

	"github.com/nerrad567/vibrant/internal/ctm"
	"github.com/nerrad567/vibrant/internal/vibrance"
)

// Saturation domain shared by every backend.
const (
	MinSaturation     = 0.0
	MaxSaturation     = 4.0
	NeutralSaturation = 1.0
)

// Backend identifies the mechanism a Controller uses to change saturation.
type Backend int

// Backend values.
const (
	// BackendUnknown is the zero value and is never exposed on a Controller.
	BackendUnknown Backend = iota

	// BackendMatrix writes a colour transform matrix to the CTM property.
	BackendMatrix

	// BackendVendor writes the NVIDIA digital vibrance attribute.
	BackendVendor
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendMatrix:
		return "ctm"
	case BackendVendor:
		return "nvidia"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// ValidateSaturation checks that s is a number within the saturation domain.
func ValidateSaturation(s float64) error {
	if math.IsNaN(s) || s < MinSaturation || s > MaxSaturation {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrRange, s, MinSaturation, MaxSaturation)
	}
	return nil
}

// ─── Matrix backend ────────────────────────────────────────────────

func readMatrix(props PropertyTransport, output OutputID) (ctm.Matrix, error) {
	wire, err := props.GetBlob(output, PropertyCTM)
	if err != nil {
		return ctm.Matrix{}, transportError("reading "+PropertyCTM, err)
	}
	return ctm.Decode(wire), nil
}

func matrixSaturation(props PropertyTransport, output OutputID) (float64, error) {
	m, err := readMatrix(props, output)
	if err != nil {
		return 0, err
	}
	return m.Saturation(), nil
}

func setMatrixSaturation(props PropertyTransport, output OutputID, s float64) error {
	wire := ctm.Encode(ctm.FromSaturation(s))
	if err := props.SetBlob(output, PropertyCTM, wire); err != nil {
		return transportError("writing "+PropertyCTM, err)
	}
	return nil
}

// ─── Vendor backend ────────────────────────────────────────────────

func vendorSaturation(vendor VendorAttributes, displayID int) (float64, error) {
	raw, err := vendor.GetAttribute(displayID)
	if err != nil {
		return 0, transportError("reading vibrance", err)
	}
	return vibrance.ToSaturation(raw), nil
}

func setVendorSaturation(vendor VendorAttributes, displayID int, s float64) error {
	if err := vendor.SetAttribute(displayID, vibrance.FromSaturation(s)); err != nil {
		return transportError("writing vibrance", err)
	}
	return nil
}

// transportError classifies an adapter error. ErrNotFound and ErrTransport
// pass through; anything else is wrapped as ErrTransport.
func transportError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
