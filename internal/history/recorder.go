package history

import (
	"context"
	"sync"

	"github.com/nerrad567/vibrant/internal/saturation"
)

// Logger is the logging surface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder appends saturation changes to a Repository in the background.
// Record never blocks the caller; writes happen serially in Run.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan *Entry

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewRecorder creates a Recorder. A nil logger disables logging.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *Entry, recordQueueSize),
	}
}

// Record enqueues a change. It has the signature of a saturation change
// listener. When the queue is full the change is dropped and logged.
func (r *Recorder) Record(c saturation.Change) {
	entry := &Entry{
		Output:     c.Output,
		Backend:    c.Backend,
		Saturation: c.Saturation,
		Previous:   c.Previous,
		Source:     c.Source,
		CreatedAt:  c.Timestamp,
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("history queue full, dropping entry", "output", c.Output)
	}
}

// Start launches the writer goroutine. It stops when ctx is cancelled or
// Stop is called, writing whatever is still queued first.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Stop ends the writer goroutine and waits for queued entries to be written.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	})
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("history write failed", "output", entry.Output, "error", err)
	}
}
