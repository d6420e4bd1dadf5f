package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/churnaizer/churnaizer/internal/pkg/cache"
)

const (
	// Redis key prefixes
	JobKeyPrefix = "job:"
	JobQueueKey  = "job_queue"
	JobStatsKey  = "job_stats"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// Processor handles one job type.
type Processor func(job *Job) error

// Queue manages background jobs using Redis
type Queue struct {
	client     *redis.Client
	workers    int
	processors map[JobType]Processor
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2 // Default number of workers
	}

	return &Queue{
		client:     cache.GetClient(),
		workers:    workers,
		processors: make(map[JobType]Processor),
		stopCh:     make(chan struct{}),
	}
}

// RegisterProcessor binds a processor to a job type. Must be called
// before Start.
func (q *Queue) RegisterProcessor(jobType JobType, processor Processor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processors[jobType] = processor
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// Enqueue adds a new job to the queue and returns its ID.
func (q *Queue) Enqueue(jobType JobType, payload map[string]interface{}) (string, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	ctx := context.Background()
	if err := q.saveJob(ctx, job); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	q.client.HIncrBy(ctx, JobStatsKey, "enqueued", 1)

	return job.ID, nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
		}

		result, err := q.client.BRPop(ctx, 2*time.Second, JobQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[JobQueue] Worker %d pop error: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		q.processJob(ctx, result[1])
	}
}

func (q *Queue) processJob(ctx context.Context, jobID string) {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		log.Errorf("[JobQueue] Failed to load job %s: %v", jobID, err)
		return
	}

	processor, ok := q.processors[job.Type]
	if !ok {
		q.finishJob(ctx, job, fmt.Errorf("no processor registered for job type %s", job.Type))
		return
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now()
	q.saveJob(ctx, job)

	if err := processor(job); err != nil {
		job.RetryCount++
		if job.RetryCount < job.MaxRetries {
			log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), retrying: %v", job.ID, job.RetryCount, job.MaxRetries, err)
			job.Status = JobStatusRetrying
			job.UpdatedAt = time.Now()
			q.saveJob(ctx, job)
			q.client.LPush(ctx, JobQueueKey, job.ID)
			return
		}
		q.finishJob(ctx, job, err)
		return
	}

	q.finishJob(ctx, job, nil)
}

func (q *Queue) finishJob(ctx context.Context, job *Job, jobErr error) {
	now := time.Now()
	job.UpdatedAt = now
	job.CompletedAt = &now
	if jobErr != nil {
		job.Status = JobStatusFailed
		job.ErrorMsg = jobErr.Error()
		q.client.HIncrBy(ctx, JobStatsKey, "failed", 1)
		log.Errorf("[JobQueue] Job %s (%s) failed permanently: %v", job.ID, job.Type, jobErr)
	} else {
		job.Status = JobStatusCompleted
		q.client.HIncrBy(ctx, JobStatsKey, "completed", 1)
	}
	q.saveJob(ctx, job)
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) loadJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
