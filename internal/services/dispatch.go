package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/schoolhub/circulation/internal/models"
)

// Dispatcher is the external notification collaborator. Channel selection
// and delivery mechanics (SMS, email, in-app) live entirely behind it.
type Dispatcher interface {
	Dispatch(ctx context.Context, notice models.Notice) error
}

// Queue names
const (
	DispatchQueue     = "circulation:notices"
	DispatchDeadQueue = "circulation:notices:dead"
)

// DispatchJob wraps a notice with delivery bookkeeping.
type DispatchJob struct {
	ID           string        `json:"id"`
	Notice       models.Notice `json:"notice"`
	CreatedAt    time.Time     `json:"created_at"`
	ProcessAfter time.Time     `json:"process_after"`
	RetryCount   int           `json:"retry_count"`
	MaxRetries   int           `json:"max_retries"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// DispatchService buffers reminder notices in Redis and drains them into
// the external dispatcher. Failed deliveries are requeued with backoff and
// dead-lettered once retries are exhausted.
type DispatchService struct {
	redis      *redis.Client
	dispatcher Dispatcher
	logger     *slog.Logger
	maxRetries int
}

// NewDispatchService creates a new dispatch queue service.
func NewDispatchService(redisClient *redis.Client, dispatcher Dispatcher, logger *slog.Logger) *DispatchService {
	return &DispatchService{
		redis:      redisClient,
		dispatcher: dispatcher,
		logger:     logger,
		maxRetries: 3,
	}
}

// Enqueue adds a notice to the delivery queue.
func (s *DispatchService) Enqueue(ctx context.Context, notice models.Notice) error {
	now := time.Now()
	job := &DispatchJob{
		ID:           uuid.NewString(),
		Notice:       notice,
		CreatedAt:    now,
		ProcessAfter: now,
		RetryCount:   0,
		MaxRetries:   s.maxRetries,
	}
	return s.enqueueJob(ctx, job)
}

func (s *DispatchService) enqueueJob(ctx context.Context, job *DispatchJob) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	err = s.redis.ZAdd(ctx, DispatchQueue, redis.Z{
		Score:  float64(job.ProcessAfter.Unix()),
		Member: string(jobData),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue dispatch job: %w", err)
	}
	return nil
}

// ProcessQueue drains up to batchSize due jobs into the dispatcher.
func (s *DispatchService) ProcessQueue(ctx context.Context, batchSize int) error {
	now := time.Now()
	jobsData, err := s.redis.ZRangeByScore(ctx, DispatchQueue, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(batchSize),
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to read dispatch queue: %w", err)
	}
	if len(jobsData) == 0 {
		return nil
	}

	delivered := 0
	failed := 0

	for _, jobData := range jobsData {
		// Claim the job; another worker may have taken it already.
		removed, err := s.redis.ZRem(ctx, DispatchQueue, jobData).Result()
		if err != nil || removed == 0 {
			continue
		}

		var job DispatchJob
		if err := json.Unmarshal([]byte(jobData), &job); err != nil {
			s.logger.Error("Failed to unmarshal dispatch job", "error", err)
			failed++
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, job.Notice); err != nil {
			failed++
			if job.RetryCount < job.MaxRetries {
				job.RetryCount++
				job.ErrorMessage = err.Error()
				job.ProcessAfter = time.Now().Add(time.Duration(job.RetryCount) * time.Minute)
				if err := s.enqueueJob(ctx, &job); err != nil {
					s.logger.Error("Failed to requeue dispatch job", "job_id", job.ID, "error", err)
				}
			} else {
				if err := s.moveToDeadQueue(ctx, &job); err != nil {
					s.logger.Error("Failed to dead-letter dispatch job", "job_id", job.ID, "error", err)
				}
				s.logger.Error("Dispatch job exhausted retries",
					"job_id", job.ID,
					"student_id", job.Notice.StudentID,
					"kind", job.Notice.Kind)
			}
			continue
		}
		delivered++
	}

	if delivered > 0 || failed > 0 {
		s.logger.Info("Dispatch queue processed", "delivered", delivered, "failed", failed)
	}
	return nil
}

func (s *DispatchService) moveToDeadQueue(ctx context.Context, job *DispatchJob) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return s.redis.ZAdd(ctx, DispatchDeadQueue, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: string(jobData),
	}).Err()
}

// PendingCount reports the number of queued notices.
func (s *DispatchService) PendingCount(ctx context.Context) (int64, error) {
	return s.redis.ZCard(ctx, DispatchQueue).Result()
}

// Start drains the queue on a fixed interval until the context is
// cancelled.
func (s *DispatchService) Start(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ProcessQueue(ctx, batchSize); err != nil {
				s.logger.Error("Dispatch queue processing failed", "error", err)
			}
		}
	}
}
