package display

import (
	"errors"
	"sync"

	"github.com/nerrad567/vibrant/internal/ctm"
)

var errBroken = errors.New("broken pipe")

// fakeSession is an in-memory display server.
type fakeSession struct {
	mu sync.Mutex

	outputs    []Output
	outputsErr error
	closed     int
	closeErr   error

	props  *fakeProperties
	vendor *fakeVendor
}

func newFakeSession(outputs ...Output) *fakeSession {
	return &fakeSession{
		outputs: outputs,
		props:   &fakeProperties{blobs: make(map[OutputID]ctm.WireMatrix)},
	}
}

func (s *fakeSession) Outputs() ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputsErr != nil {
		return nil, s.outputsErr
	}
	out := make([]Output, len(s.outputs))
	copy(out, s.outputs)
	return out, nil
}

func (s *fakeSession) Properties() PropertyTransport {
	return s.props
}

func (s *fakeSession) Vendor() VendorAttributes {
	if s.vendor == nil {
		return nil
	}
	return s.vendor
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeProperties stores CTM blobs per output.
type fakeProperties struct {
	mu sync.Mutex

	blobs   map[OutputID]ctm.WireMatrix
	hasErr  error
	getErr  error
	setErr  error
	calls   int
	written []OutputID
}

func (p *fakeProperties) withMatrix(id OutputID, m ctm.Matrix) *fakeProperties {
	p.blobs[id] = ctm.Encode(m)
	return p
}

func (p *fakeProperties) HasProperty(output OutputID, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.hasErr != nil {
		return false, p.hasErr
	}
	_, ok := p.blobs[output]
	return ok && name == PropertyCTM, nil
}

func (p *fakeProperties) GetBlob(output OutputID, name string) (ctm.WireMatrix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.getErr != nil {
		return ctm.WireMatrix{}, p.getErr
	}
	w, ok := p.blobs[output]
	if !ok || name != PropertyCTM {
		return ctm.WireMatrix{}, ErrNotFound
	}
	return w, nil
}

func (p *fakeProperties) SetBlob(output OutputID, name string, wire ctm.WireMatrix) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.setErr != nil {
		return p.setErr
	}
	if _, ok := p.blobs[output]; !ok || name != PropertyCTM {
		return ErrNotFound
	}
	p.blobs[output] = wire
	p.written = append(p.written, output)
	return nil
}

func (p *fakeProperties) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeVendor stores raw vibrance per vendor display id.
type fakeVendor struct {
	mu sync.Mutex

	ids    map[OutputID]int
	values map[int]int
	idsErr error
	getErr error
	setErr error
	calls  int
}

func newFakeVendor(ids map[OutputID]int) *fakeVendor {
	values := make(map[int]int, len(ids))
	for _, id := range ids {
		values[id] = 0
	}
	return &fakeVendor{ids: ids, values: values}
}

func (v *fakeVendor) DisplayIDs() (map[OutputID]int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.idsErr != nil {
		return nil, v.idsErr
	}
	out := make(map[OutputID]int, len(v.ids))
	for k, id := range v.ids {
		out[k] = id
	}
	return out, nil
}

func (v *fakeVendor) GetAttribute(displayID int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.getErr != nil {
		return 0, v.getErr
	}
	value, ok := v.values[displayID]
	if !ok {
		return 0, ErrNotFound
	}
	return value, nil
}

func (v *fakeVendor) SetAttribute(displayID, value int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.setErr != nil {
		return v.setErr
	}
	if _, ok := v.values[displayID]; !ok {
		return ErrNotFound
	}
	v.values[displayID] = value
	return nil
}

func (v *fakeVendor) value(displayID int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[displayID]
}

func (v *fakeVendor) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
