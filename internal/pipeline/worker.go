package pipeline

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// WorkerPool runs job pipelines. Submission enqueues a job id and returns
// immediately; a fixed set of workers consumes the queue, one pipeline run
// per job, so at most one worker ever mutates a given job.
type WorkerPool struct {
	jobQueue    chan string
	workerCount int
	pipeline    *Pipeline
}

// NewWorkerPool creates a pool draining into the given pipeline.
func NewWorkerPool(workerCount int, pipeline *Pipeline) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &WorkerPool{
		jobQueue:    make(chan string, 100),
		workerCount: workerCount,
		pipeline:    pipeline,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue adds a job to the processing queue.
func (wp *WorkerPool) Enqueue(jobID string) {
	wp.jobQueue <- jobID
	log.Printf("Job %s enqueued", jobID)
}

func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for jobID := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, jobID, r, string(debug.Stack()))
					if _, err := wp.pipeline.repo.UpdateJobStatus(jobID, types.StatusFailed, 0,
						"internal error during processing"); err != nil {
						log.Printf("Worker %d: failed to record panic for job %s: %v", id, jobID, err)
					}
				}
			}()

			log.Printf("Worker %d: processing job %s", id, jobID)
			wp.pipeline.Process(context.Background(), jobID)
		}()
	}
}
