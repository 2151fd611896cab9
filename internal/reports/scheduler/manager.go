package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is a scheduled unit of work
type JobFunc func(ctx context.Context) error

// ScheduleManager runs named jobs on cron expressions
type ScheduleManager struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	funcs   map[string]JobFunc
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.RWMutex
	running bool
}

// JobStatus represents the status of a scheduled job
type JobStatus struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run"`
}

// NewScheduleManager creates a new schedule manager. Each run gets its own
// context bounded by timeout.
func NewScheduleManager(logger *zap.Logger, timeout time.Duration) *ScheduleManager {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &ScheduleManager{
		cron:    cron.New(),
		jobs:    make(map[string]cron.EntryID),
		funcs:   make(map[string]JobFunc),
		timeout: timeout,
		logger:  logger,
	}
}

// AddJob schedules fn under name. An empty expression leaves the job
// disabled and is not an error.
func (m *ScheduleManager) AddJob(name, expr string, fn JobFunc) error {
	if expr == "" {
		m.logger.Info("Scheduled job disabled", zap.String("job", name))
		return nil
	}
	if err := ValidateCronExpression(expr); err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entryID, ok := m.jobs[name]; ok {
		m.cron.Remove(entryID)
	}

	entryID, err := m.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.execute(ctx, name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	m.jobs[name] = entryID
	m.funcs[name] = fn

	m.logger.Info("Added scheduled job", zap.String("job", name), zap.String("cron", expr))
	return nil
}

// RunNow runs a registered job synchronously, outside its schedule
func (m *ScheduleManager) RunNow(ctx context.Context, name string) error {
	m.mu.RLock()
	fn, ok := m.funcs[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	return m.execute(ctx, name, fn)
}

func (m *ScheduleManager) execute(ctx context.Context, name string, fn JobFunc) error {
	start := time.Now()
	m.logger.Info("Running scheduled job", zap.String("job", name))

	if err := fn(ctx); err != nil {
		m.logger.Error("Scheduled job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	m.logger.Info("Scheduled job completed",
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Start starts the cron scheduler
func (m *ScheduleManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("schedule manager already running")
	}
	m.running = true
	m.cron.Start()

	m.logger.Info("Started schedule manager", zap.Int("jobs", len(m.jobs)))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *ScheduleManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping schedule manager")
	ctx := m.cron.Stop()
	<-ctx.Done()

	m.running = false
}

// Jobs returns the status of every scheduled job, ordered by name
func (m *ScheduleManager) Jobs() []JobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(m.jobs))
	for name, entryID := range m.jobs {
		entry := m.cron.Entry(entryID)
		statuses = append(statuses, JobStatus{
			Name:    name,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// ValidateCronExpression validates a five-field cron expression
func ValidateCronExpression(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(expr)
	return err
}
