// Package worker runs report plans in the background using goroutines.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// A goroutine is like a lightweight thread (thousands are fine), and
// channels are typed pipes for communication between goroutines.
//
// This worker pool pattern is very common in Go:
// 1. Create a buffered channel as a job queue
// 2. Spawn N worker goroutines that read from the channel
// 3. Send jobs to the channel from your HTTP handlers
// 4. Workers process jobs concurrently
//
// A report plan can take dozens of search pages, far too long for an HTTP
// request, so the handler queues it and the client polls for the result.
package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// JobType identifies what kind of work a job represents.
type JobType string

const (
	JobReport JobType = "report"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("job queue is full; try again later")

// Job represents a unit of work to be processed by a worker.
type Job struct {
	ID        string // the JobStore record ID
	Type      JobType
	APIKey    string // credential the plan runs with; never stored on the record
	CreatedAt time.Time
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	// Go Pattern: This buffered channel acts as our job queue.
	// Buffered means it can hold `queueSize` jobs before blocking.
	jobs      chan Job
	workers   int
	store     *JobStore
	finder    *placement.Finder
	newAPI    ytapi.Factory
	exportDir string

	// Go Pattern: sync.WaitGroup tracks running goroutines.
	wg sync.WaitGroup

	// Go Pattern: context.Context with cancel for graceful shutdown.
	// When we call cancel(), a plan in flight stops between batches.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool. Report files are written to exportDir.
func NewPool(workers, queueSize int, store *JobStore, finder *placement.Finder, newAPI ytapi.Factory, exportDir string) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:      make(chan Job, queueSize),
		workers:   workers,
		store:     store,
		finder:    finder,
		newAPI:    newAPI,
		exportDir: exportDir,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	if err := os.MkdirAll(p.exportDir, 0o755); err != nil {
		log.Printf("⚠️  Could not create export dir %s: %v", p.exportDir, err)
	}
	log.Printf("🚀 Starting %d report workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down all workers.
// Go Pattern: Close the channel + cancel the context + wait for completion.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Enqueue records a pending report for actorID and queues it. If the queue
// is full the record is dropped and ErrQueueFull returned.
func (p *Pool) Enqueue(actorID, apiKey string, plan models.ReportPlan) (models.ReportJob, error) {
	job := p.store.Create(actorID, plan)
	if err := p.Submit(Job{ID: job.ID, Type: JobReport, APIKey: apiKey, CreatedAt: job.CreatedAt}); err != nil {
		p.store.Delete(job.ID)
		return models.ReportJob{}, err
	}
	return job, nil
}

// Submit adds a job to the queue.
// Returns an error if the queue is full (non-blocking).
func (p *Pool) Submit(job Job) error {
	// Go Pattern: `select` with `default` makes channel operations non-blocking.
	select {
	case p.jobs <- job:
		log.Printf("📥 Job queued: %s (type: %s)", job.ID, job.Type)
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

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Worker %d started", id)

	// Go Pattern: `range` over a channel reads values until the channel is closed.
	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			p.store.Update(job.ID, func(j *models.ReportJob) {
				j.Status = models.JobFailed
				j.ErrorMessage = "server shut down before the report ran"
			})
			continue
		default:
		}

		log.Printf("👷 Worker %d processing job: %s (type: %s)", id, job.ID, job.Type)

		var err error
		switch job.Type {
		case JobReport:
			err = p.processReport(job)
		default:
			err = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if err != nil {
			log.Printf("❌ Worker %d: job %s failed: %v", id, job.ID, err)
		} else {
			log.Printf("✅ Worker %d: job %s completed", id, job.ID)
		}
	}

	log.Printf("👷 Worker %d stopped", id)
}

// processReport runs a plan and streams its rows into a CSV file.
func (p *Pool) processReport(job Job) error {
	ctx := p.ctx

	rj, ok := p.store.Get(job.ID)
	if !ok {
		return fmt.Errorf("report %s not found", job.ID)
	}
	p.store.Update(job.ID, func(j *models.ReportJob) { j.Status = models.JobProcessing })

	fail := func(err error) error {
		p.store.Update(job.ID, func(j *models.ReportJob) {
			j.Status = models.JobFailed
			j.ErrorMessage = err.Error()
		})
		return err
	}

	api, err := p.newAPI(ctx, job.APIKey)
	if err != nil {
		return fail(fmt.Errorf("failed to create youtube client: %w", err))
	}

	path := filepath.Join(p.exportDir, job.ID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fail(fmt.Errorf("failed to create report file: %w", err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record.Header()); err != nil {
		return fail(fmt.Errorf("failed to write report header: %w", err))
	}

	sum, runErr := p.finder.RunPlan(ctx, api, rj.ActorID, rj.Plan, func(r models.VideoRecord) error {
		return w.Write(record.Row(r))
	})
	w.Flush()
	if err := w.Error(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to flush report: %w", err)
	}

	// Only a report with rows keeps its file.
	if sum == nil || sum.Rows == 0 {
		f.Close()
		os.Remove(path)
	}

	p.store.Update(job.ID, func(j *models.ReportJob) {
		if sum != nil {
			j.RowCount = sum.Rows
			j.Batches = sum.Batches
			j.QuotaCost = sum.QuotaCost
			j.Warnings = sum.Warnings
		}
		if sum != nil && sum.Rows > 0 {
			j.FilePath = path
		}
		if runErr != nil {
			j.Status = models.JobFailed
			j.ErrorMessage = runErr.Error()
			return
		}
		j.Status = models.JobCompleted
	})
	return runErr
}
