package audit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database/dbtest"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]audit.Entry)
	return entries, args.Error(1)
}

func serve(reader audit.Reader, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	audit.NewHandler(reader, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_ListLogs(t *testing.T) {
	db := dbtest.Open(t)
	rec := audit.NewSQLRecorder(db, zap.NewNop())

	w := serve(rec, "/api/v1/logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, w.Body.String())

	rec.Record(context.Background(), 2, "Added item Ball A")
	rec.Record(context.Background(), 2, "Deleted item Ball A")

	w = serve(rec, "/api/v1/logs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"Deleted item Ball A"`)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestHandler_ListLogsLimits(t *testing.T) {
	reader := new(MockReader)
	reader.On("Recent", mock.Anything, 1000).Return([]audit.Entry{}, nil).Once()
	reader.On("Recent", mock.Anything, 100).Return(nil, errors.New("db down")).Once()

	assert.Equal(t, http.StatusOK, serve(reader, "/api/v1/logs?limit=5000").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(reader, "/api/v1/logs").Code)
	assert.Equal(t, http.StatusBadRequest, serve(reader, "/api/v1/logs?limit=0").Code)
	reader.AssertExpectations(t)
}
