package reports

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReportTemplate), args.Error(1)
}

func (m *MockRepository) ListTemplates(ctx context.Context, userID int64) ([]*ReportTemplate, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*ReportTemplate), args.Error(1)
}

func (m *MockRepository) AllTemplates(ctx context.Context) ([]*ReportTemplate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*ReportTemplate), args.Error(1)
}

func (m *MockRepository) CountTemplates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SaveTemplate(ctx context.Context, tmpl *ReportTemplate) (int64, error) {
	args := m.Called(ctx, tmpl)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) DeleteTemplate(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRepository) ShareTemplate(ctx context.Context, id, fromUserID, toUserID int64) (int64, error) {
	args := m.Called(ctx, id, fromUserID, toUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) AddHistory(ctx context.Context, entry *HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) ListHistory(ctx context.Context, reportID int64) ([]*HistoryEntry, error) {
	args := m.Called(ctx, reportID)
	return args.Get(0).([]*HistoryEntry), args.Error(1)
}

// MockQueryBuilder returns canned rows
type MockQueryBuilder struct {
	mock.Mock
}

func (m *MockQueryBuilder) Fetch(ctx context.Context, cfg *ReportConfiguration) (*RenderedReport, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so callers cannot alter the canned rows
	r := *args.Get(0).(*RenderedReport)
	return &r, args.Error(1)
}

// MockRecorder captures audit entries
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, userID int64, action string) {
	m.Called(ctx, userID, action)
}

func newTestService(repo Repository, query QueryBuilder, recorder *MockRecorder) *Service {
	pipeline := NewPipeline(query, chart.NewRenderer(chart.DefaultOptions()), "", zap.NewNop())
	return NewService(repo, pipeline, builder.NewReportDesigner(), recorder, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func sampleRows() *RenderedReport {
	return &RenderedReport{
		Headers: []string{"name", "category", "quantity"},
		Rows: [][]interface{}{
			{"Ball A", "Balls", int64(5)},
			{"Net B", "Equipment", int64(2)},
		},
	}
}
