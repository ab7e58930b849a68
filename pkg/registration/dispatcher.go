package registration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// DispatcherOptions configures the side-effect dispatcher
type DispatcherOptions struct {
	QueueSize       int
	Workers         int
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultDispatcherOptions returns the default dispatcher configuration
func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		QueueSize:       256,
		Workers:         4,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
	}
}

type task struct {
	id   string
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs fire-and-forget side effects on a bounded worker pool.
// Each task is retried with exponential backoff until the elapsed-time bound
// is hit; a task that still fails is logged and dropped. Failures never reach
// the caller that enqueued the task.
type Dispatcher struct {
	tasks   chan task
	wg      sync.WaitGroup
	options DispatcherOptions
	closed  sync.Once
}

// NewDispatcher creates a dispatcher and starts its workers
func NewDispatcher(options DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		tasks:   make(chan task, options.QueueSize),
		options: options,
	}
	for i := 0; i < options.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue schedules a side effect without blocking. When the queue is full
// the task is dropped with a log line; the caller is never failed over it.
func (d *Dispatcher) Enqueue(name string, run func(ctx context.Context) error) {
	t := task{id: uuid.New().String(), name: name, run: run}
	select {
	case d.tasks <- t:
		slog.Debug("Side effect enqueued", "task", name, "taskID", t.id)
	default:
		slog.Error("Side effect queue full, dropping task", "task", name, "taskID", t.id)
	}
}

// Close stops accepting tasks and waits for in-flight ones to finish
func (d *Dispatcher) Close() {
	d.closed.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.execute(t)
	}
}

func (d *Dispatcher) execute(t task) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.options.InitialInterval
	bo.MaxElapsedTime = d.options.MaxElapsedTime

	err := backoff.Retry(func() error {
		return t.run(context.Background())
	}, bo)
	if err != nil {
		slog.Error("Side effect failed, giving up", "task", t.name, "taskID", t.id, "error", err)
		return
	}
	slog.Debug("Side effect completed", "task", t.name, "taskID", t.id)
}
