package v1

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database/dbtest"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
)

func newTestRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	gdb, err := database.Gorm(db)
	require.NoError(t, err)

	designer := builder.NewReportDesigner()
	pipeline := reports.NewPipeline(reports.NewSQLQueryBuilder(db, designer), chart.NewRenderer(chart.DefaultOptions()), "", zap.NewNop())
	reportService := reports.NewService(reports.NewSQLRepository(db), pipeline, designer, nil, zap.NewNop())

	cache := inventory.NewCache(time.Minute)
	t.Cleanup(cache.Stop)
	inventoryService := inventory.NewService(inventory.NewGormRepository(gdb), cache, nil, 10, zap.NewNop())
	recorder := audit.NewSQLRecorder(db, zap.NewNop())
	bookingService := bookings.NewService(bookings.NewGormRepository(gdb), recorder, zap.NewNop())

	router := NewRouter(&API{
		Reports:   reports.NewHandler(reportService, nil, zap.NewNop()),
		Inventory: inventory.NewHandler(inventoryService, zap.NewNop()),
		Bookings:  bookings.NewHandler(bookingService, zap.NewNop()),
		Logs:      audit.NewHandler(recorder, zap.NewNop()),
		DB:        db,
	})
	return router, func() { db.Close() }
}

func TestRouter_Health(t *testing.T) {
	router, closeDB := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	closeDB()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
}

func TestRouter_RegistersEveryAPI(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports?user_id=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, w.Body.String())

	for _, path := range []string{"/api/v1/bookings", "/api/v1/logs", "/api/v1/reports/fields?data_source=inventory"} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
