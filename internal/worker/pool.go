package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is shutting down")
)

// Task is one unit of work. Run receives a context that is never cancelled
// by the pool; tasks run to completion.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

type Pool struct {
	logger  *slog.Logger
	workers int

	ch   chan Task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Task, n)
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:  logger,
		workers: 4,
		ch:      make(chan Task, 256),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)

				for task := range p.ch {
					p.run(workerID, task)
				}

				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (p *Pool) run(workerID int, task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "worker_id", workerID, "task_id", task.ID, "panic", r)
		}
	}()

	task.Run(context.Background())
	p.logger.Debug("task finished", "worker_id", workerID, "task_id", task.ID, "duration", time.Since(start))
}

// Submit queues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("cannot submit: pool is shutting down", "task_id", task.ID)
		return ErrPoolClosed
	}
	select {
	case p.ch <- task:
		p.logger.Debug("queued task", "task_id", task.ID, "queued", len(p.ch))
		return nil
	default:
		p.logger.Warn("queue full, rejecting task", "task_id", task.ID, "capacity", cap(p.ch))
		return ErrQueueFull
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Shutdown stops accepting tasks, lets the workers drain the queue and waits
// for them until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case <-done:
		p.logger.Info("queue drained, shutdown complete")
		return nil
	}
}
