package notify

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

var stats = expvar.NewMap("outbox")

// Task is a unit of deferred fan-out work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outbox runs fan-out tasks in the background, in FIFO order when it has a single worker.
// Tasks never report back: failures, panics and drops are logged.
type Outbox struct {
	logger  core.Logger
	tasks   chan Task
	workers int
	timeout time.Duration
	inline  bool

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewOutbox(logger core.Logger, conf core.OutboxConfig) *Outbox {
	if conf.Workers < 1 {
		conf.Workers = 1
	}
	if conf.QueueSize < 1 {
		conf.QueueSize = 1
	}
	return &Outbox{
		logger:  logger,
		tasks:   make(chan Task, conf.QueueSize),
		workers: conf.Workers,
		timeout: conf.TaskTimeout,
	}
}

// NewSyncOutbox returns an Outbox running every task on the enqueuing goroutine.
func NewSyncOutbox(logger core.Logger) *Outbox {
	return &Outbox{logger: logger, inline: true}
}

// Start spawns the workers. It is a no-op on a sync Outbox and after the first call.
func (o *Outbox) Start() {
	if o.inline {
		return
	}
	o.startOnce.Do(func() {
		for i := 0; i < o.workers; i++ {
			o.wg.Add(1)
			go o.work()
		}
	})
}

// Enqueue schedules t without blocking. The task is dropped when the queue is full or the Outbox is stopped.
func (o *Outbox) Enqueue(t Task) {
	stats.Add("enqueued", 1)
	if o.inline {
		o.run(t)
		return
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.drop(t, "outbox stopped")
		return
	}
	select {
	case o.tasks <- t:
	default:
		o.drop(t, "outbox queue full")
	}
}

// Stop refuses new tasks and waits for the queued ones to complete, or for ctx to be done.
func (o *Outbox) Stop(ctx context.Context) error {
	if o.inline {
		return nil
	}

	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.tasks)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "draining outbox (%d tasks left)", len(o.tasks))
	}
}

func (o *Outbox) work() {
	defer o.wg.Done()
	for t := range o.tasks {
		o.run(t)
	}
}

func (o *Outbox) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			stats.Add("failed", 1)
			o.logger.Error(fmt.Sprintf("outbox task %q panicked: %v", t.Name, r))
		}
	}()

	ctx := context.Background()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	if err := t.Run(ctx); err != nil {
		stats.Add("failed", 1)
		o.logger.Error(fmt.Sprintf("outbox task %q: %v", t.Name, err), err)
		return
	}
	stats.Add("delivered", 1)
}

func (o *Outbox) drop(t Task, reason string) {
	stats.Add("dropped", 1)
	o.logger.Warn(fmt.Sprintf("dropping outbox task %q: %s", t.Name, reason))
}
