package display

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Instance owns a display Session and the Controllers discovered on it.
//
// Thread Safety: All methods are safe for concurrent use provided the
// Session is.
type Instance struct {
	session     Session
	props       PropertyTransport
	vendor      VendorAttributes
	controllers []*Controller
	mu          sync.RWMutex
	logger      Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Options holds optional settings for creating an Instance.
type Options struct {
	// Logger is an optional structured logger.
	Logger Logger
}

// Open connects to the named display and runs discovery.
//
// Parameters:
//   - target: Display name; empty selects the environment default
//   - dial: Opens the Session
//   - opts: Optional settings
//
// Returns:
//   - *Instance: Ready instance with its controllers
//   - error: ErrConnectionFailed or ErrDiscoveryFailed
func Open(target string, dial Dialer, opts Options) (*Instance, error) {
	session, err := dial(target)
	if err != nil {
		if errors.Is(err, ErrConnectionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return New(session, opts)
}

// New runs discovery on an already open Session and takes ownership of it.
// The Session is closed if discovery fails.
func New(session Session, opts Options) (*Instance, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is required", ErrConnectionFailed)
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	inst := &Instance{
		session: session,
		props:   session.Properties(),
		vendor:  session.Vendor(),
		logger:  logger,
	}

	controllers, err := inst.discover()
	if err != nil {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("closing session after failed discovery", "error", closeErr)
		}
		return nil, err
	}
	inst.controllers = controllers

	logger.Info("display discovery complete", "controllers", len(controllers))
	return inst, nil
}

// Controllers returns the discovered controllers in server enumeration
// order. The returned slice is a copy.
func (i *Instance) Controllers() []*Controller {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]*Controller, len(i.controllers))
	copy(out, i.controllers)
	return out
}

// Controller returns the controller for the named output.
func (i *Instance) Controller(name string) (*Controller, error) {
	if err := i.checkOpen(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, c := range i.controllers {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: output %q", ErrNotFound, name)
}

// Close releases every controller and then the Session. It is safe to call
// more than once; later calls return the first result.
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.closed.Store(true)

		i.mu.Lock()
		i.controllers = nil
		i.mu.Unlock()

		if err := i.session.Close(); err != nil {
			i.closeErr = fmt.Errorf("closing display session: %w", err)
		}
		i.logger.Debug("display instance closed")
	})
	return i.closeErr
}

func (i *Instance) checkOpen() error {
	if i.closed.Load() {
		return ErrClosed
	}
	return nil
}
