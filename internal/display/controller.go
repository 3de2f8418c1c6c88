package display

import (
	"fmt"

	"github.com/nerrad567/vibrant/internal/ctm"
)

// Controller changes the saturation of a single output.
//
// Controllers are created by discovery and are only valid while the Instance
// that owns them is open.
type Controller struct {
	inst     *Instance
	output   Output
	backend  Backend
	vendorID int
}

// Name returns the output name, e.g. "DP-1".
func (c *Controller) Name() string {
	return c.output.Name
}

// OutputID returns the server's id for the output.
func (c *Controller) OutputID() OutputID {
	return c.output.ID
}

// Backend returns the backend chosen for this output.
func (c *Controller) Backend() Backend {
	return c.backend
}

// VendorDisplayID returns the vendor display target id. Only meaningful for
// BackendVendor.
func (c *Controller) VendorDisplayID() (int, bool) {
	return c.vendorID, c.backend == BackendVendor
}

// Saturation reads the current saturation from the output.
//
// Returns:
//   - float64: Current saturation (1.0 = neutral)
//   - error: ErrClosed, ErrNotFound or ErrTransport
func (c *Controller) Saturation() (float64, error) {
	if err := c.inst.checkOpen(); err != nil {
		return 0, err
	}

	switch c.backend {
	case BackendMatrix:
		return matrixSaturation(c.inst.props, c.output.ID)
	case BackendVendor:
		return vendorSaturation(c.inst.vendor, c.vendorID)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, c.backend)
	}
}

// SetSaturation writes a new saturation to the output.
//
// The value must lie in [MinSaturation, MaxSaturation]; anything else,
// including NaN, is rejected with ErrRange before the server is contacted.
func (c *Controller) SetSaturation(s float64) error {
	if err := ValidateSaturation(s); err != nil {
		return err
	}
	if err := c.inst.checkOpen(); err != nil {
		return err
	}

	switch c.backend {
	case BackendMatrix:
		return setMatrixSaturation(c.inst.props, c.output.ID, s)
	case BackendVendor:
		return setVendorSaturation(c.inst.vendor, c.vendorID, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, c.backend)
	}
}

// Matrix reads the raw colour transform matrix of a BackendMatrix output.
// Returns ErrUnsupported for other backends.
func (c *Controller) Matrix() (ctm.Matrix, error) {
	if err := c.inst.checkOpen(); err != nil {
		return ctm.Matrix{}, err
	}
	if c.backend != BackendMatrix {
		return ctm.Matrix{}, fmt.Errorf("%w: %s has no colour matrix", ErrUnsupported, c.backend)
	}
	return readMatrix(c.inst.props, c.output.ID)
}

// assign fixes the controller's backend. It reports false if a backend was
// already chosen, leaving the first choice in place.
func (c *Controller) assign(backend Backend, vendorID int) bool {
	if c.backend != BackendUnknown || backend == BackendUnknown {
		return false
	}
	c.backend = backend
	c.vendorID = vendorID
	return true
}
