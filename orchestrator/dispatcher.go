package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

// dispatcher runs best-effort side effects off the pipeline path. Submit
// never blocks; when the buffer is full the task is dropped.
type dispatcher struct {
	tasks   chan task
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newDispatcher(buffer int, timeout time.Duration, logger *zap.Logger) *dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &dispatcher{
		tasks:   make(chan task, buffer),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for t := range d.tasks {
		d.execute(t)
	}
}

func (d *dispatcher) execute(t task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := t.run(ctx); err != nil {
		d.logger.Warn("Background task failed", zap.String("task", t.name), zap.Error(err))
	}
}

// Submit queues fn and reports whether it was accepted
func (d *dispatcher) Submit(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Dispatcher closed, dropping task", zap.String("task", name))
		return false
	}
	select {
	case d.tasks <- task{name: name, run: fn}:
		return true
	default:
		d.logger.Warn("Dispatch buffer full, dropping task", zap.String("task", name))
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish
func (d *dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
