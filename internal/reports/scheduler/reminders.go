package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
)

// ReminderSource computes the service-life reminders
type ReminderSource interface {
	Reminders(ctx context.Context, now time.Time) ([]inventory.Reminder, error)
}

// ReminderJob passes the current reminders to a notifier
type ReminderJob struct {
	source   ReminderSource
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReminderJob creates a reminder job
func NewReminderJob(source ReminderSource, notifier Notifier, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		source:   source,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Run computes reminders and notifies; it returns how many were sent
func (r *ReminderJob) Run(ctx context.Context) (int, error) {
	reminders, err := r.source.Reminders(ctx, r.now())
	if err != nil {
		return 0, err
	}
	if len(reminders) == 0 {
		r.logger.Debug("No items due for replacement")
		return 0, nil
	}
	if err := r.notifier.Notify(ctx, reminders); err != nil {
		return 0, err
	}
	return len(reminders), nil
}
