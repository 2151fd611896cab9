package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
)

// ErrQueueFull is returned by Submit when no more jobs can be queued
var ErrQueueFull = errors.New("export queue is full")

// ErrWorkerStopped is returned by Submit after Stop
var ErrWorkerStopped = errors.New("export worker stopped")

// Exporter produces the artifact of a stored template
type Exporter interface {
	ExportTemplate(ctx context.Context, userID, id int64, format export.Format) (*reports.Artifact, error)
}

// WorkerConfig configuration for the export worker
type WorkerConfig struct {
	MaxConcurrent int
	QueueSize     int
	JobTimeout    time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxConcurrent: 2,
		QueueSize:     32,
		JobTimeout:    5 * time.Minute,
	}
}

// ExportWorker runs exports in the background and delivers the artifacts
// through a sink. Jobs wait in a bounded queue; a semaphore caps how many
// run at once.
type ExportWorker struct {
	exporter Exporter
	sink     ArtifactSink
	logger   *zap.Logger
	config   WorkerConfig
	now      func() time.Time

	queue chan *reports.ExportJob
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*reports.ExportJob
}

// NewExportWorker creates a new export worker. Call Start to begin processing.
func NewExportWorker(exporter Exporter, sink ArtifactSink, logger *zap.Logger, config WorkerConfig) *ExportWorker {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultWorkerConfig().QueueSize
	}
	return &ExportWorker{
		exporter: exporter,
		sink:     sink,
		logger:   logger,
		config:   config,
		now:      time.Now,
		queue:    make(chan *reports.ExportJob, config.QueueSize),
		done:     make(chan struct{}),
		jobs:     make(map[string]*reports.ExportJob),
	}
}

// Start starts the dispatch loop. It returns immediately.
func (w *ExportWorker) Start(ctx context.Context) {
	w.logger.Info("Starting export worker",
		zap.Int("max_concurrent", w.config.MaxConcurrent),
		zap.Int("queue_size", w.config.QueueSize))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatch(ctx)
	}()
}

// Stop stops accepting jobs and waits for running ones to finish.
// Jobs still queued stay pending.
func (w *ExportWorker) Stop() {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
	w.logger.Info("Export worker stopped")
}

// Submit queues an export and returns a snapshot of the new job
func (w *ExportWorker) Submit(userID, reportID int64, format export.Format) (*reports.ExportJob, error) {
	select {
	case <-w.done:
		return nil, ErrWorkerStopped
	default:
	}

	job := &reports.ExportJob{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		UserID:    userID,
		Format:    format,
		Status:    reports.JobPending,
		CreatedAt: w.now(),
	}

	w.mu.Lock()
	w.jobs[job.ID] = job
	snapshot := *job
	w.mu.Unlock()

	select {
	case w.queue <- job:
	default:
		w.mu.Lock()
		delete(w.jobs, job.ID)
		w.mu.Unlock()
		return nil, ErrQueueFull
	}

	w.logger.Info("Export queued",
		zap.String("job_id", job.ID),
		zap.Int64("report_id", reportID),
		zap.String("format", string(format)))
	return &snapshot, nil
}

// Job returns a snapshot of a job's current state
func (w *ExportWorker) Job(id string) (*reports.ExportJob, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	job, ok := w.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

func (w *ExportWorker) dispatch(ctx context.Context) {
	sem := make(chan struct{}, w.config.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case job := <-w.queue:
			select {
			case sem <- struct{}{}: // Acquire semaphore
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}

			w.wg.Add(1)
			go func(job *reports.ExportJob) {
				defer w.wg.Done()
				defer func() { <-sem }() // Release semaphore
				w.process(ctx, job)
			}(job)
		}
	}
}

func (w *ExportWorker) process(ctx context.Context, job *reports.ExportJob) {
	startTime := w.now()
	w.update(job.ID, func(j *reports.ExportJob) { j.Status = reports.JobRunning })

	execCtx := ctx
	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, w.config.JobTimeout)
		defer cancel()
	}

	location, err := w.execute(execCtx, job)
	finished := w.now()

	if err != nil {
		w.logger.Error("Export job failed",
			zap.String("job_id", job.ID),
			zap.Int64("report_id", job.ReportID),
			zap.String("format", string(job.Format)),
			zap.Error(err))
		w.update(job.ID, func(j *reports.ExportJob) {
			j.Status = reports.JobFailed
			j.Error = err.Error()
			j.FinishedAt = &finished
		})
		return
	}

	w.logger.Info("Export job completed",
		zap.String("job_id", job.ID),
		zap.String("location", location),
		zap.Duration("duration", finished.Sub(startTime)))
	w.update(job.ID, func(j *reports.ExportJob) {
		j.Status = reports.JobDone
		j.Location = location
		j.FinishedAt = &finished
	})
}

func (w *ExportWorker) execute(ctx context.Context, job *reports.ExportJob) (string, error) {
	artifact, err := w.exporter.ExportTemplate(ctx, job.UserID, job.ReportID, job.Format)
	if err != nil {
		return "", err
	}
	location, err := w.sink.Deliver(ctx, artifact.Name, artifact.ContentType, artifact.Data)
	if err != nil {
		return "", fmt.Errorf("failed to deliver %s: %w", artifact.Name, err)
	}
	return location, nil
}

func (w *ExportWorker) update(id string, fn func(*reports.ExportJob)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
	}
}
