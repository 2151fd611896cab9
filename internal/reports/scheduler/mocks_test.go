package scheduler

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/mock"

	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
)

// MockS3Client is a mock implementation of storage.S3Client
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}

func (m *MockS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

// MockSES is a mock implementation of SESAPI
type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

// fakeExporter blocks each export until release is closed
type fakeExporter struct {
	release chan struct{}
	err     error

	mu      sync.Mutex
	running int
	peak    int
}

func (f *fakeExporter) ExportTemplate(ctx context.Context, userID, id int64, format export.Format) (*reports.Artifact, error) {
	f.mu.Lock()
	f.running++
	if f.running > f.peak {
		f.peak = f.running
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &reports.Artifact{
		Name:        reports.ArtifactName(id, format),
		Format:      format,
		ContentType: format.ContentType(),
		Data:        []byte("artifact"),
	}, nil
}

func (f *fakeExporter) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type stubReminders struct {
	reminders []inventory.Reminder
	err       error
	at        time.Time
}

func (s *stubReminders) Reminders(_ context.Context, now time.Time) ([]inventory.Reminder, error) {
	s.at = now
	return s.reminders, s.err
}

type recordingNotifier struct {
	got []inventory.Reminder
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, reminders []inventory.Reminder) error {
	n.got = reminders
	return n.err
}
