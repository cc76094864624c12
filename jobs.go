package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	jobCancellersMu sync.Mutex
	jobCancellers   = make(map[string]context.CancelFunc)
)

// Job represents an on-demand frame analysis job
type Job struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // "pending", "in_progress", "completed", "failed", "cancelled"
	Error     string         `json:"error,omitempty"`
	Result    *AnalysisState `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	frame []byte
}

// JobStore manages jobs and their statuses
type JobStore struct {
	sync.RWMutex
	jobs map[string]*Job
}

var (
	jobStore = &JobStore{
		jobs: make(map[string]*Job),
	}
	jobQueue = make(chan *Job, 100) // Buffered channel with capacity of 100 jobs
)

func generateJobID() string {
	return uuid.New().String()
}

func (store *JobStore) addJob(job *Job) {
	store.Lock()
	defer store.Unlock()
	store.jobs[job.ID] = job
	log.Infof("Analysis job added: %s", job.ID)
}

// getJob returns a snapshot of the job. Workers keep mutating the stored
// job under the store lock, which callers of this method do not hold.
func (store *JobStore) getJob(jobID string) (*Job, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// GetAllJobs returns snapshots of all jobs, newest first
func (store *JobStore) GetAllJobs() []*Job {
	store.RLock()
	defer store.RUnlock()

	jobs := make([]*Job, 0, len(store.jobs))
	for _, job := range store.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs
}

func (store *JobStore) updateJobStatus(jobID, status, errMsg string) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Status = status
		job.Error = errMsg
		job.UpdatedAt = time.Now()
		log.Infof("Job %s status updated: %s", jobID, status)
	}
}

func (store *JobStore) setJobResult(jobID string, result *AnalysisState) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Result = result
		job.UpdatedAt = time.Now()
	}
}

// cancelJob cancels a pending or running job. Returns false when the job is
// unknown or already done.
func cancelJob(jobID string) bool {
	jobCancellersMu.Lock()
	cancel, exists := jobCancellers[jobID]
	jobCancellersMu.Unlock()
	if exists {
		cancel()
		return true
	}

	job, found := jobStore.getJob(jobID)
	if found && job.Status == "pending" {
		jobStore.updateJobStatus(jobID, "cancelled", "Job cancelled by user")
		return true
	}
	return false
}

func startWorkerPool(ctx context.Context, app *App, numWorkers int) {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		workerID := i
		g.Go(func() error {
			log.Infof("Worker %d started", workerID)
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job := <-jobQueue:
					log.Infof("Worker %d processing job: %s", workerID, job.ID)
					processJob(ctx, app, job)
				}
			}
		})
	}
	go func() {
		if err := g.Wait(); err != nil && err != context.Canceled {
			log.Errorf("Worker pool stopped: %v", err)
		}
	}()
}

func processJob(ctx context.Context, app *App, job *Job) {
	if current, ok := jobStore.getJob(job.ID); ok && current.Status == "cancelled" {
		return
	}
	jobStore.updateJobStatus(job.ID, "in_progress", "")

	jobCtx, cancel := context.WithCancel(ctx)
	jobCancellersMu.Lock()
	jobCancellers[job.ID] = cancel
	jobCancellersMu.Unlock()
	defer func() {
		cancel()
		jobCancellersMu.Lock()
		delete(jobCancellers, job.ID)
		jobCancellersMu.Unlock()
	}()

	result, err := app.AnalyzeFrame(jobCtx, job.frame)
	if err != nil {
		if jobCtx.Err() == context.Canceled {
			jobStore.updateJobStatus(job.ID, "cancelled", "Job cancelled by user")
			log.Infof("Job cancelled: %s", job.ID)
		} else {
			log.Errorf("Error processing analysis job %s: %v", job.ID, err)
			jobStore.updateJobStatus(job.ID, "failed", err.Error())
		}
		return
	}

	jobStore.setJobResult(job.ID, result)
	jobStore.updateJobStatus(job.ID, "completed", "")
	log.Infof("Job completed: %s", job.ID)
}
