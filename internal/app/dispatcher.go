package app

import (
	"sync"
	"time"

	"savekeep/internal/sk"
)

// Dispatcher runs submitted jobs one at a time on a single worker
// goroutine. Hotkey and watcher callbacks submit work here instead of
// calling the service from their own goroutines.
type Dispatcher struct {
	logger sk.Logger
	jobs   chan job

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	name string
	run  func() error
}

// NewDispatcher creates a Dispatcher holding at most queueSize pending jobs.
func NewDispatcher(logger sk.Logger, queueSize int) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		jobs:   make(chan job, queueSize),
	}
}

// Start launches the worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the dispatcher has stopped. Job errors are logged and dropped.
func (d *Dispatcher) Submit(name string, run func() error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- job{name: name, run: run}:
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping job", "job", name)
		return false
	}
}

// Stop drains the queued jobs and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for j := range d.jobs {
		start := time.Now()
		if err := j.run(); err != nil {
			d.logger.Error("job failed", "job", j.name, "error", err)
			continue
		}
		d.logger.Debug("job done", "job", j.name, "elapsed", time.Since(start))
	}
}
