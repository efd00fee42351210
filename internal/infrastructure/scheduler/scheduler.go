// Package scheduler runs background jobs: periodic FX rate refresh per
// organization and the sweep that expires stale quotes.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fxoffice/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JobKind names the work a job performs
type JobKind string

const (
	JobKindRateRefresh JobKind = "RATE_REFRESH"
	JobKindQuoteExpiry JobKind = "QUOTE_EXPIRY"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one unit of background work. TenantID is nil for cross-tenant jobs.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	TenantID    *uuid.UUID
	Status      JobStatus
	Error       string
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewJob creates a pending job
func NewJob(kind JobKind, tenantID *uuid.UUID, maxAttempts int) *Job {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		TenantID:    tenantID,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
	}
}

func (j *Job) begin(now time.Time) {
	j.Attempts++
	j.Status = JobStatusRunning
	j.StartedAt = now
	j.Error = ""
}

func (j *Job) finish(now time.Time, err error) {
	j.FinishedAt = now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusSuccess
}

// retryable reports whether a failed job has attempts left
func (j *Job) retryable() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

func (j *Job) logFields() []zap.Field {
	fields := []zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("kind", string(j.Kind)),
		zap.Int("attempt", j.Attempts),
	}
	if j.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", j.TenantID.String()))
	}
	return fields
}

// JobExecutor executes jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config holds worker pool settings
type Config struct {
	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultConfig returns the worker pool defaults
func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   256,
		JobTimeout:  2 * time.Minute,
		MaxAttempts: 3,
		RetryDelay:  30 * time.Second,
	}
}

// Scheduler is a bounded worker pool with delayed retries
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger
	now      func() time.Time

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler
func NewScheduler(config Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		now:      time.Now,
		jobs:     make(chan *Job, config.QueueSize),
	}
}

// Start launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("job scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout))
	return nil
}

// Stop cancels running jobs and waits for the workers, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("job scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, id)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, workerID int) {
	job.begin(s.now())
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	jobCtx, span := telemetry.StartSpan(jobCtx, "scheduler.job",
		telemetry.AttrJobName.String(string(job.Kind)),
		attribute.Int("job.attempt", job.Attempts))
	var err error
	telemetry.WithProfilingLabels(jobCtx, map[string]string{telemetry.ProfilingLabelJob: string(job.Kind)}, func(ctx context.Context) {
		err = s.executor.Execute(ctx, job)
	})
	telemetry.EndSpan(span, err)
	cancel()
	job.finish(s.now(), err)

	fields := append(job.logFields(), zap.Int("worker_id", workerID))
	if err == nil {
		s.logger.Debug("job completed", fields...)
		return
	}

	s.logger.Error("job failed", append(fields, zap.Error(err))...)
	if !job.retryable() || ctx.Err() != nil {
		return
	}
	delay := s.config.RetryDelay * time.Duration(job.Attempts)
	job.Status = JobStatusPending
	job.NotBefore = s.now().Add(delay)
	time.AfterFunc(delay, func() {
		if err := s.Submit(job); err != nil {
			s.logger.Warn("failed to requeue job", append(job.logFields(), zap.Error(err))...)
		}
	})
}
