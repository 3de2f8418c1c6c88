package x11

import (
	"fmt"
	"slices"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"

	"github.com/nerrad567/vibrant/internal/ctm"
	"github.com/nerrad567/vibrant/internal/display"
)

// ctmFormat is the element size, in bits, of the CTM property.
const ctmFormat = 32

// Properties reads and writes RandR output properties holding a CTM.
//
// Thread Safety: All methods are safe for concurrent use.
type Properties struct {
	conn  *xgb.Conn
	atoms map[string]xproto.Atom
	mu    sync.Mutex
}

func newProperties(conn *xgb.Conn) *Properties {
	return &Properties{
		conn:  conn,
		atoms: make(map[string]xproto.Atom),
	}
}

// atom resolves a property name without creating it. Unknown names yield
// display.ErrNotFound. Resolved atoms are cached.
func (p *Properties) atom(name string) (xproto.Atom, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.atoms[name]; ok {
		return a, nil
	}

	reply, err := xproto.InternAtom(p.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return xproto.AtomNone, fmt.Errorf("%w: interning %q: %w", display.ErrTransport, name, err)
	}
	if reply.Atom == xproto.AtomNone {
		return xproto.AtomNone, fmt.Errorf("%w: atom %q", display.ErrNotFound, name)
	}

	p.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// lookup resolves name and checks that output lists it.
func (p *Properties) lookup(output display.OutputID, name string) (xproto.Atom, error) {
	a, err := p.atom(name)
	if err != nil {
		return xproto.AtomNone, err
	}

	reply, err := randr.ListOutputProperties(p.conn, randr.Output(output)).Reply()
	if err != nil {
		return xproto.AtomNone, fmt.Errorf("%w: listing properties of output %d: %w", display.ErrTransport, output, err)
	}
	if !slices.Contains(reply.Atoms, a) {
		return xproto.AtomNone, fmt.Errorf("%w: property %q on output %d", display.ErrNotFound, name, output)
	}
	return a, nil
}

// HasProperty reports whether the output exposes the named property.
func (p *Properties) HasProperty(output display.OutputID, name string) (bool, error) {
	_, err := p.lookup(output, name)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBlob reads the named property.
//
// The property must be of type INTEGER, format 32 and hold exactly
// ctm.WireWords items; anything else is reported as display.ErrTransport.
func (p *Properties) GetBlob(output display.OutputID, name string) (ctm.WireMatrix, error) {
	a, err := p.lookup(output, name)
	if err != nil {
		return ctm.WireMatrix{}, err
	}

	reply, err := randr.GetOutputProperty(p.conn, randr.Output(output), a,
		xproto.AtomInteger, 0, ctm.WireWords, false, false).Reply()
	if err != nil {
		return ctm.WireMatrix{}, fmt.Errorf("%w: reading %q: %w", display.ErrTransport, name, err)
	}

	return decodeProperty(reply.Type, reply.Format, reply.NumItems, reply.Data)
}

// SetBlob replaces the named property with wire.
func (p *Properties) SetBlob(output display.OutputID, name string, wire ctm.WireMatrix) error {
	a, err := p.lookup(output, name)
	if err != nil {
		return err
	}

	err = randr.ChangeOutputPropertyChecked(p.conn, randr.Output(output), a,
		xproto.AtomInteger, ctmFormat, xproto.PropModeReplace, ctm.WireWords, encodeProperty(wire)).Check()
	if err != nil {
		return fmt.Errorf("%w: writing %q: %w", display.ErrTransport, name, err)
	}
	return nil
}

// encodeProperty serialises wire in the connection's byte order.
func encodeProperty(wire ctm.WireMatrix) []byte {
	buf := make([]byte, ctm.WireWords*4)
	for i, w := range wire {
		xgb.Put32(buf[i*4:], w)
	}
	return buf
}

// decodeProperty validates a GetOutputProperty reply and extracts the words.
func decodeProperty(typ xproto.Atom, format byte, numItems uint32, data []byte) (ctm.WireMatrix, error) {
	if typ != xproto.AtomInteger || format != ctmFormat || numItems != ctm.WireWords {
		return ctm.WireMatrix{}, fmt.Errorf("%w: property is not a CTM (type %d, format %d, %d items)",
			display.ErrTransport, typ, format, numItems)
	}
	if len(data) < ctm.WireWords*4 {
		return ctm.WireMatrix{}, fmt.Errorf("%w: short property data (%d bytes)", display.ErrTransport, len(data))
	}

	words := make([]uint32, ctm.WireWords)
	for i := range words {
		words[i] = xgb.Get32(data[i*4:])
	}
	wire, err := ctm.ParseWords(words)
	if err != nil {
		return ctm.WireMatrix{}, fmt.Errorf("%w: %w", display.ErrTransport, err)
	}
	return wire, nil
}
