package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// Gate admits tasks across all targets. *admission.Limiter satisfies it.
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

// Observer is told about every task execution. Optional.
type Observer interface {
	TaskStarted(task Task)
	TaskFinished(task Task, err error, elapsed time.Duration)
}

// Config configures Queues.
type Config struct {
	Gate     Gate
	Clock    clock.Clock
	Pause    time.Duration // gap between two tasks of the same target
	Observer Observer
}

// Queues holds one FIFO list per target. Each non-empty list is drained by
// exactly one goroutine, so tasks of a target run in order and never
// overlap. Every task holds a Gate slot while it runs.
type Queues struct {
	config Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  map[string][]Task
	draining map[string]bool
	closed   bool
	idle     *sync.Cond

	wg sync.WaitGroup
}

// New returns ready-to-use Queues.
func New(config Config) *Queues {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queues{
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string][]Task),
		draining: make(map[string]bool),
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends task to its target's list and starts a drain loop for
// the target if none is running. It returns false once Close was called.
func (q *Queues) Enqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.pending[task.Target] = append(q.pending[task.Target], task)
	logging.Debug("TaskQueue", "Queued %s for %s (%s)", task.Kind, task.Target, task.Description)

	if !q.draining[task.Target] {
		q.draining[task.Target] = true
		q.wg.Add(1)
		go q.drain(task.Target)
	}
	return true
}

// Len returns the number of tasks waiting for target, excluding a task
// that is currently running.
func (q *Queues) Len(target string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[target])
}

// Total returns the number of waiting tasks across all targets.
func (q *Queues) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, list := range q.pending {
		n += len(list)
	}
	return n
}

// Wait blocks until no target has a drain loop running.
func (q *Queues) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.draining) > 0 {
		q.idle.Wait()
	}
}

// Close stops accepting tasks, abandons waiting ones and waits for the
// drain loops to exit.
func (q *Queues) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := 0
	for _, list := range q.pending {
		dropped += len(list)
	}
	q.pending = make(map[string][]Task)
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()

	if dropped > 0 {
		logging.Info("TaskQueue", "Dropped %d queued tasks on shutdown", dropped)
	}
}

func (q *Queues) drain(target string) {
	defer q.wg.Done()

	for {
		task, ok := q.next(target)
		if !ok {
			return
		}

		if err := q.config.Gate.Acquire(q.ctx); err != nil {
			q.finish(target)
			return
		}
		q.execute(task)
		q.config.Gate.Release()

		if err := clock.Sleep(q.ctx, q.config.Clock, q.config.Pause); err != nil {
			q.finish(target)
			return
		}
	}
}

// next pops the head of target's list, or retires the drain loop when the
// list is empty.
func (q *Queues) next(target string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.pending[target]
	if len(list) == 0 || q.closed {
		q.retireLocked(target)
		return Task{}, false
	}
	task := list[0]
	if len(list) == 1 {
		delete(q.pending, target)
	} else {
		q.pending[target] = list[1:]
	}
	return task, true
}

func (q *Queues) finish(target string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retireLocked(target)
}

func (q *Queues) retireLocked(target string) {
	delete(q.draining, target)
	if len(q.draining) == 0 {
		q.idle.Broadcast()
	}
}

// execute runs one task. Failures and panics are logged and never stop the
// drain loop.
func (q *Queues) execute(task Task) {
	start := q.config.Clock.Now()
	if q.config.Observer != nil {
		q.config.Observer.TaskStarted(task)
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		err = task.Run(q.ctx)
	}()

	if err != nil {
		logging.Error("TaskQueue", err, "Task %s for %s failed (%s)", task.Kind, task.Target, task.Description)
	}
	if q.config.Observer != nil {
		q.config.Observer.TaskFinished(task, err, q.config.Clock.Now().Sub(start))
	}
}
