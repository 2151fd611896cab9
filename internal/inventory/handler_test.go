package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, 2)

	handler := NewHandler(f.service, zap.NewNop())
	handler.now = func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, f
}

func doRequest(router *gin.Engine, method, path, body string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateAndList(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{"name":"Ball A","category":"Balls","quantity":5,"condition":"Good","purchase_date":"2021-09-01","service_life":3}`
	w := doRequest(router, http.MethodPost, "/api/v1/inventory", body, "1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)

	w = doRequest(router, http.MethodGet, "/api/v1/inventory?page=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Headers []string        `json:"headers"`
		Rows    [][]interface{} `json:"rows"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, Columns, page.Headers)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "2021-09-01", page.Rows[0][5])

	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/api/v1/inventory?page=3", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/v1/inventory?page=x", "", "").Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/inventory", `{"name":"Ball","category":"Bats","condition":"New"}`, "1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/inventory", `{"name":"Ball","category":"Balls","condition":"New","purchase_date":"1/2/2020"}`, "1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/inventory", `{"name":"Ball","category":"Balls","condition":"New"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_UpdateDeleteAndReminders(t *testing.T) {
	router, f := setupRouter(t)
	require.NoError(t, f.service.Add(context.Background(), 1, sampleItems(t)...))

	w := doRequest(router, http.MethodPut, "/api/v1/inventory/2",
		`{"name":"Net B","category":"Equipment","quantity":1,"condition":"Broken","purchase_date":"2019-03-15","service_life":5}`, "1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	item, err := f.service.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Broken", item.Condition)

	w = doRequest(router, http.MethodPut, "/api/v1/inventory/99",
		`{"name":"Ghost","category":"Balls","condition":"New"}`, "1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/inventory/reminders", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reminders struct {
		Data  []Reminder `json:"data"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reminders))
	require.Equal(t, 2, reminders.Total)
	assert.Equal(t, "Net B", reminders.Data[1].Item.Name)

	assert.Equal(t, http.StatusNoContent, doRequest(router, http.MethodDelete, "/api/v1/inventory/1", "", "1").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodDelete, "/api/v1/inventory/1", "", "1").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodDelete, "/api/v1/inventory/abc", "", "1").Code)
}

func TestHandler_Search(t *testing.T) {
	router, f := setupRouter(t)
	require.NoError(t, f.service.Add(context.Background(), 1, sampleItems(t)...))

	w := doRequest(router, http.MethodGet, "/api/v1/inventory?q=equip", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Rows  [][]interface{} `json:"rows"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Net B", page.Rows[0][1])

	w = doRequest(router, http.MethodGet, "/api/v1/inventory?q=nothing", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Total)
}
