package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers.
//
// Cancellation of the parent context is observed between jobs: queued jobs
// that have not started are skipped, while a job already running is handed a
// context detached from the parent's cancellation and runs to completion.
// Results are drained by a collector goroutine, so producers never block on
// an unread results channel.
type Pool struct {
	workers   int
	jobQueue  chan Job
	results   chan Result
	collector *ResultCollector
	collected chan struct{}
	wg        sync.WaitGroup

	parent     context.Context
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	skipped    atomic.Int64
}

// NewPool creates a pool bound to ctx with the specified number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collector:  NewResultCollector(),
		collected:  make(chan struct{}),
		parent:     ctx,
		ctx:        poolCtx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			p.skipped.Add(1)
			continue
		}
		p.results <- job.Execute(context.WithoutCancel(p.ctx))
	}
}

func (p *Pool) collect() {
	defer close(p.collected)
	for result := range p.results {
		p.collector.Add(result)
	}
}

// Submit queues a job. It reports false once the pool's context is done.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		p.skipped.Add(1)
		return false
	}
	select {
	case <-p.ctx.Done():
		p.skipped.Add(1)
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for every started job and returns the results
// in completion order
func (p *Pool) Wait() []Result {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		close(p.results)
		<-p.collected
		p.cancelFunc()
	})
	return p.collector.Results()
}

// Shutdown cancels pending jobs and waits for in-flight ones
func (p *Pool) Shutdown() []Result {
	p.cancelFunc()
	return p.Wait()
}

// Err reports the parent context's error, if any
func (p *Pool) Err() error {
	return p.parent.Err()
}

// Skipped is the number of jobs that never ran because of cancellation
func (p *Pool) Skipped() int {
	return int(p.skipped.Load())
}

// ResultCollector gathers results as they arrive
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of all collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
