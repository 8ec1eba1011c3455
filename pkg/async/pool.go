package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned by Submit after Shutdown
var ErrPoolClosed = errors.New("worker pool is shut down")

// Task is a unit of work run by a WorkerPool
type Task func(context.Context) error

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Name    string
	Workers int
	// QueueSize bounds pending tasks; zero means twice Workers
	QueueSize int
	// TaskTimeout bounds each task; zero means no bound
	TaskTimeout time.Duration
	Logger      *logrus.Logger
}

// PoolStats is a point-in-time view of a pool's counters
type PoolStats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Capacity  int    `json:"capacity"`
	Submitted uint64 `json:"submitted"`
	Rejected  uint64 `json:"rejected"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Panicked  uint64 `json:"panicked"`
}

// WorkerPool runs tasks on a fixed set of goroutines.
// Task errors and panics are sent to Errors; when nobody drains it the error
// is logged and dropped.
type WorkerPool struct {
	cfg    PoolConfig
	log    *logrus.Entry
	tasks  chan Task
	errs   chan error
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	stopped   chan struct{}

	submitted atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// NewWorkerPool starts cfg.Workers goroutines that live until Shutdown or
// until ctx is done.
func NewWorkerPool(ctx context.Context, cfg PoolConfig) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	p := &WorkerPool{
		cfg:     cfg,
		log:     cfg.Logger.WithField("pool", cfg.Name),
		tasks:   make(chan Task, cfg.QueueSize),
		errs:    make(chan error, cfg.Workers*10),
		stopped: make(chan struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for id := 0; id < cfg.Workers; id++ {
		go func() {
			defer wg.Done()
			p.work(id)
		}()
	}
	go func() {
		wg.Wait()
		close(p.errs)
		close(p.stopped)
	}()

	return p
}

// Submit queues a task, blocking while the queue is full
func (p *WorkerPool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.rejected.Add(1)
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-p.ctx.Done():
		p.rejected.Add(1)
		return fmt.Errorf("submit to %s: %w", p.cfg.Name, p.ctx.Err())
	}
}

// TrySubmit queues a task unless the queue is full or the pool is closed
func (p *WorkerPool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.closed {
		select {
		case p.tasks <- task:
			p.submitted.Add(1)
			return true
		default:
		}
	}
	p.rejected.Add(1)
	return false
}

// Shutdown stops accepting tasks and waits for queued ones until ctx is done.
// Tasks still running when ctx expires see their context canceled.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})

	select {
	case <-p.stopped:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("%s pool did not drain: %w", p.cfg.Name, ctx.Err())
	}
}

// Errors returns task failures. It is closed once every worker has exited.
func (p *WorkerPool) Errors() <-chan error {
	return p.errs
}

// Stats returns the pool's current counters
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Name:      p.cfg.Name,
		Workers:   p.cfg.Workers,
		Queued:    len(p.tasks),
		Capacity:  cap(p.tasks),
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

func (p *WorkerPool) work(id int) {
	log := p.log.WithField("worker", id)
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.execute(log, task)
		}
	}
}

func (p *WorkerPool) execute(log *logrus.Entry, task Task) {
	ctx, cancel := taskContext(p.ctx, p.cfg.TaskTimeout)
	defer cancel()
	defer recoverInto(log, func(r any) {
		p.panicked.Add(1)
		p.report(fmt.Errorf("panic: %v", r))
	})

	if err := task(ctx); err != nil {
		p.failed.Add(1)
		p.report(err)
		return
	}
	p.completed.Add(1)
}

func (p *WorkerPool) report(err error) {
	select {
	case p.errs <- err:
	default:
		p.log.WithError(err).Warn("Error channel full, dropping error")
	}
}
