package display

import "github.com/nerrad567/vibrant/internal/ctm"

// PropertyCTM is the name of the colour transform matrix output property.
const PropertyCTM = "CTM"

// OutputID identifies an output on the display server.
type OutputID uint32

// Output describes one display output as reported by the server.
type Output struct {
	ID        OutputID
	Name      string
	Connected bool
}

// Session is an open connection to a display server.
//
// Instance takes ownership of the Session it is given and closes it.
type Session interface {
	// Outputs enumerates every output with its connection state.
	Outputs() ([]Output, error)

	// Properties returns the output property transport.
	Properties() PropertyTransport

	// Vendor returns the vendor attribute adapter, or nil when the vendor
	// extension is not present on the server.
	Vendor() VendorAttributes

	// Close releases the connection.
	Close() error
}

// PropertyTransport reads and writes named output properties holding an
// encoded colour transform matrix.
type PropertyTransport interface {
	// HasProperty reports whether the output exposes the named property.
	HasProperty(output OutputID, name string) (bool, error)

	// GetBlob reads the named property. Returns ErrNotFound if absent.
	GetBlob(output OutputID, name string) (ctm.WireMatrix, error)

	// SetBlob replaces the named property. Returns ErrNotFound if absent.
	SetBlob(output OutputID, name string, wire ctm.WireMatrix) error
}

// VendorAttributes reads and writes the vendor's per-display vibrance
// attribute.
type VendorAttributes interface {
	// DisplayIDs maps each output the vendor driver manages to its vendor
	// display target id.
	DisplayIDs() (map[OutputID]int, error)

	// GetAttribute returns the raw vibrance of a display target.
	GetAttribute(displayID int) (int, error)

	// SetAttribute writes the raw vibrance of a display target.
	SetAttribute(displayID, value int) error
}

// Dialer opens a Session to the named display. An empty target selects the
// environment's default display.
type Dialer func(target string) (Session, error)

// Logger is the logging interface used by the display package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
