// Package workers runs background tasks on a bounded pool. Each task carries
// a key, usually an asset fingerprint; a key has at most one task queued or
// running at a time and can be cancelled while either.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	// ErrQueueFull is returned when the task queue is at capacity
	ErrQueueFull = errors.New("task queue full")

	// ErrAlreadyQueued is returned when the key already has a pending task
	ErrAlreadyQueued = errors.New("task already queued for key")

	// ErrNotStarted is returned when submitting to a pool that is not running
	ErrNotStarted = errors.New("worker pool not started")
)

// Task is one unit of background work
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

type submission struct {
	task Task
	ctx  context.Context
}

// Pool runs tasks on a fixed number of workers over a bounded queue
type Pool struct {
	workerCount int
	queue       chan submission
	wg          sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	baseCtx context.Context
	cancels map[string]context.CancelFunc
}

// NewPool creates a pool with the given worker count and queue capacity
func NewPool(workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		workerCount: workerCount,
		queue:       make(chan submission, queueSize),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start launches the workers. The pool stops when Stop is called or ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true
	p.baseCtx = ctx

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.run(fmt.Sprintf("worker-%d", i+1))
	}
	log.Printf("Started %d worker(s)", p.workerCount)
	return nil
}

// Stop cancels every pending task and waits for the workers to drain
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, cancel := range p.cancels {
		cancel()
	}
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	log.Printf("Worker pool stopped")
}

// Submit enqueues a task. Each key holds one slot: submitting a key that is
// already queued or running returns ErrAlreadyQueued, so repeated requests
// for the same asset collapse into one build.
func (p *Pool) Submit(task Task) error {
	if task.Key == "" || task.Run == nil {
		return fmt.Errorf("task needs a key and a run function")
	}

	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if _, pending := p.cancels[task.Key]; pending {
		p.mu.Unlock()
		return ErrAlreadyQueued
	}

	taskCtx, cancel := context.WithCancel(p.baseCtx)
	p.cancels[task.Key] = cancel

	select {
	case p.queue <- submission{task: task, ctx: taskCtx}:
		p.mu.Unlock()
		return nil
	default:
		delete(p.cancels, task.Key)
		cancel()
		p.mu.Unlock()
		return ErrQueueFull
	}
}

// Cancel signals the task for a key to stop. Builds notice at their next
// block boundary. Cancelling an unknown key is a no-op.
func (p *Pool) Cancel(key string) {
	p.mu.Lock()
	cancel, ok := p.cancels[key]
	p.mu.Unlock()

	if ok {
		cancel()
	}
}

// Pending reports whether a key has a task queued or running
func (p *Pool) Pending(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cancels[key]
	return ok
}

func (p *Pool) run(id string) {
	defer p.wg.Done()

	log.Printf("Worker %s starting", id)
	defer log.Printf("Worker %s stopped", id)

	for sub := range p.queue {
		if err := sub.ctx.Err(); err != nil {
			p.release(sub.task.Key)
			continue
		}

		if err := sub.task.Run(sub.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("Worker %s: task %s cancelled", id, sub.task.Key)
			} else {
				log.Printf("Worker %s: task %s failed: %v", id, sub.task.Key, err)
			}
		}
		p.release(sub.task.Key)
	}
}

func (p *Pool) release(key string) {
	p.mu.Lock()
	if cancel, ok := p.cancels[key]; ok {
		delete(p.cancels, key)
		cancel()
	}
	p.mu.Unlock()
}
