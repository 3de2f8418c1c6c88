package display

import "errors"

// Domain errors for the display package.
var (
	// ErrConnectionFailed is returned when the display server cannot be
	// reached or lacks a required extension.
	ErrConnectionFailed = errors.New("display: connection failed")

	// ErrDiscoveryFailed is returned when building the controller list
	// fails part-way through.
	ErrDiscoveryFailed = errors.New("display: discovery failed")

	// ErrNotFound is returned when a property or vendor attribute is absent
	// for an output, or no controller has the requested name.
	ErrNotFound = errors.New("display: not found")

	// ErrTransport is returned when the display server rejects a request or
	// returns a malformed reply.
	ErrTransport = errors.New("display: transport error")

	// ErrRange is returned when a requested saturation is NaN or outside
	// [MinSaturation, MaxSaturation].
	ErrRange = errors.New("display: saturation out of range")

	// ErrUnsupported is returned when an operation does not apply to the
	// controller's backend.
	ErrUnsupported = errors.New("display: unsupported by backend")

	// ErrClosed is returned when an Instance or Controller is used after
	// the Instance was closed.
	ErrClosed = errors.New("display: instance closed")
)
