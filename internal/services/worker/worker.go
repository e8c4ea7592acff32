// Package worker runs queued conversions in the background.
//
// Go Pattern: a buffered channel is the job queue and N goroutines read
// from it. Handlers submit jobs without blocking; when the buffer is full
// the submission fails and the handler answers 503.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/convert"
)

// ErrQueueFull is returned by Submit when no buffer slot is free.
var ErrQueueFull = errors.New("job queue is full; try again later")

// Job is one queued conversion. ID is the conversion record's ID.
type Job struct {
	ID        string
	Tool      string
	Input     convert.Input
	CreatedAt time.Time
}

// Store is the part of the database the pool needs.
type Store interface {
	GetConversion(ctx context.Context, id string) (*models.Conversion, error)
	UpdateConversion(ctx context.Context, cv *models.Conversion) error
}

// Runner performs the conversion of a job.
type Runner interface {
	Run(ctx context.Context, slug string, in convert.Input) (convert.Result, error)
}

// Results keeps finished outputs until they are downloaded.
type Results interface {
	Save(id string, data []byte) (string, error)
}

// Notifier is told about every job that reaches a final status. Notify
// must not block the worker.
type Notifier interface {
	Notify(cv models.Conversion)
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	jobs    chan Job
	workers int
	timeout time.Duration

	store    Store
	runner   Runner
	results  Results
	notifier Notifier

	// wg tracks running workers so Stop can wait for them.
	wg sync.WaitGroup

	// ctx is cancelled only once draining is over or its deadline passed.
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed so Submit never sends on a closed queue.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// NewPool creates a new worker pool. timeout bounds a single job.
func NewPool(workers, queueSize int, timeout time.Duration, store Store, runner Runner, results Results) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		timeout: timeout,
		store:   store,
		runner:  runner,
		results: results,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d background workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// SetNotifier registers n for final job outcomes. Call it before Start.
func (p *Pool) SetNotifier(n Notifier) {
	p.notifier = n
}

// Stop closes the queue and waits until every accepted job has run.
func (p *Pool) Stop() {
	p.Shutdown(context.Background())
}

// Shutdown closes the queue and lets the workers drain it. When ctx ends
// first, running jobs are cancelled, jobs still queued are marked failed
// and ctx's error is returned once the workers have exited.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		log.Printf("⏹️  Stopping workers (%d jobs queued)...", len(p.jobs))

		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			log.Println("⚠️  Shutdown deadline reached, cancelling running jobs")
			err = ctx.Err()
			p.cancel()
			<-done
		}
		p.cancel()
		log.Println("✅ All workers stopped")
	})
	return err
}

// Submit adds a job to the queue without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueFull
	}
	// Go Pattern: `select` with `default` makes the send non-blocking.
	select {
	case p.jobs <- job:
		log.Printf("📥 Job queued: %s (tool: %s)", job.ID, job.Tool)
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.ctx.Err() != nil {
			p.fail(job.ID, "server shutting down")
			continue
		}

		log.Printf("👷 Worker %d processing job: %s (tool: %s)", id, job.ID, job.Tool)
		if err := p.process(job); err != nil {
			log.Printf("❌ Worker %d: job %s failed: %v", id, job.ID, err)
		} else {
			log.Printf("✅ Worker %d: job %s completed", id, job.ID)
		}
	}
}

// process runs one job and records the outcome on its conversion.
func (p *Pool) process(job Job) error {
	// Record updates use a context that outlives the job timeout so a
	// timed out job can still be marked failed.
	bg := context.Background()

	cv, err := p.store.GetConversion(bg, job.ID)
	if err != nil {
		return fmt.Errorf("failed to get conversion: %w", err)
	}

	cv.Status = models.StatusProcessing
	if err := p.store.UpdateConversion(bg, cv); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	res, err := p.runner.Run(ctx, job.Tool, job.Input)
	cv.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		cv.Status = models.StatusFailed
		cv.ErrorMessage = err.Error()
		if uerr := p.store.UpdateConversion(bg, cv); uerr != nil {
			log.Printf("⚠️  Failed to record failure of %s: %v", job.ID, uerr)
		}
		p.notify(cv)
		return fmt.Errorf("conversion failed: %w", err)
	}

	path, err := p.results.Save(job.ID, res.Data)
	if err != nil {
		cv.Status = models.StatusFailed
		cv.ErrorMessage = "could not store the result"
		p.store.UpdateConversion(bg, cv)
		p.notify(cv)
		return fmt.Errorf("failed to store result: %w", err)
	}

	cv.Status = models.StatusCompleted
	cv.OutputName = res.Name
	cv.OutputBytes = int64(len(res.Data))
	cv.PageCount = res.Pages
	cv.ResultPath = path
	cv.ErrorMessage = ""
	if err := p.store.UpdateConversion(bg, cv); err != nil {
		return fmt.Errorf("failed to save conversion: %w", err)
	}
	p.notify(cv)
	return nil
}

func (p *Pool) fail(id, msg string) {
	ctx := context.Background()
	cv, err := p.store.GetConversion(ctx, id)
	if err != nil {
		return
	}
	cv.Status = models.StatusFailed
	cv.ErrorMessage = msg
	p.store.UpdateConversion(ctx, cv)
	p.notify(cv)
}

func (p *Pool) notify(cv *models.Conversion) {
	if p.notifier != nil && cv.WebhookURL != "" {
		p.notifier.Notify(*cv)
	}
}
