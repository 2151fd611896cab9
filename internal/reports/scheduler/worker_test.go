package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
)

func waitForStatus(t *testing.T, w *ExportWorker, id string, status reports.JobStatus) *reports.ExportJob {
	t.Helper()
	var job *reports.ExportJob
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = w.Job(id)
		return ok && job.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestExportWorker_JobLifecycle(t *testing.T) {
	dir := t.TempDir()
	exporter := &fakeExporter{release: make(chan struct{})}
	w := NewExportWorker(exporter, NewFileSink(dir, zap.NewNop()), zap.NewNop(), WorkerConfig{MaxConcurrent: 1, QueueSize: 4})
	w.Start(context.Background())
	defer w.Stop()

	job, err := w.Submit(1, 7, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, reports.JobPending, job.Status)
	assert.Len(t, job.ID, 36)

	waitForStatus(t, w, job.ID, reports.JobRunning)
	close(exporter.release)

	done := waitForStatus(t, w, job.ID, reports.JobDone)
	assert.Equal(t, filepath.Join(dir, "report_7.csv"), done.Location)
	require.NotNil(t, done.FinishedAt)
	assert.Empty(t, done.Error)

	data, err := os.ReadFile(done.Location)
	require.NoError(t, err)
	assert.Equal(t, "artifact", string(data))
}

func TestExportWorker_FailedJob(t *testing.T) {
	exporter := &fakeExporter{err: errors.New("query failure: no such table: inventory")}
	w := NewExportWorker(exporter, NewFileSink(t.TempDir(), zap.NewNop()), zap.NewNop(), DefaultWorkerConfig())
	w.Start(context.Background())
	defer w.Stop()

	job, err := w.Submit(1, 3, export.FormatPDF)
	require.NoError(t, err)

	failed := waitForStatus(t, w, job.ID, reports.JobFailed)
	assert.Contains(t, failed.Error, "no such table")
	assert.Empty(t, failed.Location)
}

func TestExportWorker_ConcurrencyIsBounded(t *testing.T) {
	exporter := &fakeExporter{release: make(chan struct{})}
	w := NewExportWorker(exporter, NewFileSink(t.TempDir(), zap.NewNop()), zap.NewNop(), WorkerConfig{MaxConcurrent: 2, QueueSize: 8})
	w.Start(context.Background())
	defer w.Stop()

	var ids []string
	for i := int64(1); i <= 5; i++ {
		job, err := w.Submit(1, i, export.FormatHTML)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	require.Eventually(t, func() bool { return exporter.Peak() == 2 }, 5*time.Second, 10*time.Millisecond)
	close(exporter.release)

	for _, id := range ids {
		waitForStatus(t, w, id, reports.JobDone)
	}
	assert.Equal(t, 2, exporter.Peak())
}

func TestExportWorker_QueueFull(t *testing.T) {
	// not started, so nothing drains the queue
	w := NewExportWorker(&fakeExporter{}, NewFileSink(t.TempDir(), zap.NewNop()), zap.NewNop(), WorkerConfig{MaxConcurrent: 1, QueueSize: 1})

	first, err := w.Submit(1, 1, export.FormatPDF)
	require.NoError(t, err)

	_, err = w.Submit(1, 2, export.FormatPDF)
	assert.ErrorIs(t, err, ErrQueueFull)

	job, ok := w.Job(first.ID)
	require.True(t, ok)
	assert.Equal(t, reports.JobPending, job.Status)

	w.Stop()
	_, err = w.Submit(1, 3, export.FormatPDF)
	assert.ErrorIs(t, err, ErrWorkerStopped)
}

func TestExportWorker_UnknownJob(t *testing.T) {
	w := NewExportWorker(&fakeExporter{}, NewFileSink(t.TempDir(), zap.NewNop()), zap.NewNop(), DefaultWorkerConfig())
	_, ok := w.Job("missing")
	assert.False(t, ok)
}

func TestExportWorker_ImplementsJobQueue(t *testing.T) {
	var _ reports.JobQueue = (*ExportWorker)(nil)
}
