package saturation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/profile"
)

// Change sources recorded with each saturation change.
const (
	SourceCLI     = "cli"
	SourceAPI     = "api"
	SourceMQTT    = "mqtt"
	SourceRestore = "restore"
)

// Store persists the last saturation per output.
// Satisfied by *profile.SQLiteRepository.
type Store interface {
	Save(ctx context.Context, p profile.Profile) error
	List(ctx context.Context) ([]profile.Profile, error)
}

// Telemetry records saturation changes. Satisfied by *influxdb.Client.
type Telemetry interface {
	WriteSaturation(output, backend string, value float64, source string)
}

// Logger is the logging surface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Change describes one applied saturation change.
type Change struct {
	Output     string    `json:"output"`
	Backend    string    `json:"backend"`
	Saturation float64   `json:"saturation"`
	Previous   *float64  `json:"previous,omitempty"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// OutputStatus is a snapshot of one output.
type OutputStatus struct {
	Name       string   `json:"name"`
	Backend    string   `json:"backend"`
	Saturation *float64 `json:"saturation,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// RestoreResult summarises a Restore run.
type RestoreResult struct {
	Applied int
	Skipped int
	Failed  int
}

// Options holds the optional collaborators of a Service.
type Options struct {
	Store     Store
	Telemetry Telemetry
	Logger    Logger
}

// Service serialises access to a set of outputs and publishes changes.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	outputs   Outputs
	store     Store
	telemetry Telemetry
	logger    Logger

	// mu serialises calls into the display core.
	mu sync.Mutex

	listeners  []func(Change)
	listenerMu sync.RWMutex

	now func() time.Time
}

// NewService creates a Service over outputs.
func NewService(outputs Outputs, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		outputs:   outputs,
		store:     opts.Store,
		telemetry: opts.Telemetry,
		logger:    logger,
		now:       time.Now,
	}
}

// OnChange registers a listener called after every successful Set.
// Listeners run synchronously on the caller's goroutine and must not block.
func (s *Service) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// Outputs returns a snapshot of every output with its current saturation.
// A read failure on one output is reported in its Error field.
func (s *Service) Outputs(ctx context.Context) ([]OutputStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outputs := s.outputs.Outputs()
	statuses := make([]OutputStatus, 0, len(outputs))
	for _, o := range outputs {
		st := OutputStatus{Name: o.Name(), Backend: o.Backend().String()}
		if v, err := o.Saturation(); err != nil {
			st.Error = err.Error()
		} else {
			st.Saturation = &v
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Get reads the saturation of the named output.
func (s *Service) Get(ctx context.Context, name string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.outputs.Output(name)
	if err != nil {
		return 0, err
	}
	return o.Saturation()
}

// Set applies a saturation to the named output.
//
// Parameters:
//   - ctx: Checked before the display is touched
//   - name: Output name
//   - value: Saturation in [0, 4]
//   - source: What caused the change, recorded with it
//
// Returns:
//   - Change: The applied change
//   - error: display.ErrRange, display.ErrNotFound, display.ErrTransport or ctx error
func (s *Service) Set(ctx context.Context, name string, value float64, source string) (Change, error) {
	if err := display.ValidateSaturation(value); err != nil {
		return Change{}, err
	}
	if err := ctx.Err(); err != nil {
		return Change{}, err
	}

	change, err := s.apply(name, value, source)
	if err != nil {
		return Change{}, err
	}

	s.publish(ctx, change)
	return change, nil
}

func (s *Service) apply(name string, value float64, source string) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.outputs.Output(name)
	if err != nil {
		return Change{}, err
	}

	change := Change{
		Output:     o.Name(),
		Backend:    o.Backend().String(),
		Saturation: value,
		Source:     source,
	}
	if prev, err := o.Saturation(); err == nil {
		change.Previous = &prev
	} else {
		s.logger.Debug("reading previous saturation", "output", name, "error", err)
	}

	if err := o.SetSaturation(value); err != nil {
		return Change{}, fmt.Errorf("setting saturation of %s: %w", name, err)
	}
	change.Timestamp = s.now()

	s.logger.Info("saturation changed",
		"output", change.Output,
		"backend", change.Backend,
		"saturation", value,
		"source", source,
	)
	return change, nil
}

// publish fans a change out to the store, telemetry and listeners.
func (s *Service) publish(ctx context.Context, c Change) {
	if s.store != nil && c.Source != SourceRestore {
		err := s.store.Save(ctx, profile.Profile{
			Output:     c.Output,
			Saturation: c.Saturation,
			Backend:    c.Backend,
			Source:     c.Source,
			UpdatedAt:  c.Timestamp,
		})
		if err != nil {
			s.logger.Warn("saving saturation profile", "output", c.Output, "error", err)
		}
	}

	if s.telemetry != nil {
		s.telemetry.WriteSaturation(c.Output, c.Backend, c.Saturation, c.Source)
	}

	s.listenerMu.RLock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		s.notify(fn, c)
	}
}

func (s *Service) notify(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in change listener", "output", c.Output, "panic", r)
		}
	}()
	fn(c)
}

// Restore re-applies stored profiles to the outputs that exist now.
// Profiles for absent outputs are skipped; per-output failures are logged
// and counted.
func (s *Service) Restore(ctx context.Context) (RestoreResult, error) {
	var result RestoreResult
	if s.store == nil {
		return result, nil
	}

	profiles, err := s.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("listing profiles: %w", err)
	}

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if _, err := s.outputs.Output(p.Output); err != nil {
			result.Skipped++
			s.logger.Debug("no output for stored profile", "output", p.Output)
			continue
		}

		if _, err := s.Set(ctx, p.Output, p.Saturation, SourceRestore); err != nil {
			result.Failed++
			s.logger.Warn("restoring saturation", "output", p.Output, "error", err)
			continue
		}
		result.Applied++
	}

	s.logger.Info("saturation profiles restored",
		"applied", result.Applied,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}
