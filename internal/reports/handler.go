package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
)

// JobQueue runs exports in the background
type JobQueue interface {
	Submit(userID, reportID int64, format export.Format) (*ExportJob, error)
	Job(id string) (*ExportJob, bool)
}

// Handler handles HTTP requests for reporting operations
type Handler struct {
	service *Service
	jobs    JobQueue
	logger  *zap.Logger
}

// NewHandler creates a new reports handler. jobs may be nil, which
// disables the export-jobs endpoints.
func NewHandler(service *Service, jobs JobQueue, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		jobs:    jobs,
		logger:  logger,
	}
}

// RegisterRoutes registers reporting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		// Templates
		reports.GET("", h.listReports)
		reports.POST("", h.createReport)
		reports.POST("/preview", h.previewReport)
		reports.GET("/fields", h.listFields)
		reports.GET("/:id", h.getReport)
		reports.PUT("/:id", h.updateReport)
		reports.DELETE("/:id", h.deleteReport)
		reports.POST("/:id/share", h.shareReport)
		reports.GET("/:id/history", h.getHistory)

		// Exports
		reports.GET("/:id/export", h.exportReport)
		reports.POST("/:id/export-jobs", h.createExportJob)
		reports.GET("/export-jobs/:jobId", h.getExportJob)
	}
}

// =====================================================
// Template Endpoints
// =====================================================

// listReports handles GET /api/v1/reports?user_id=
func (h *Handler) listReports(c *gin.Context) {
	userID, ok := h.getInt64Query(c, "user_id")
	if !ok {
		if userID, ok = h.getUserID(c); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
	}

	templates, err := h.service.ListTemplates(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": templates, "total": len(templates)})
}

// createReport handles POST /api/v1/reports
func (h *Handler) createReport(c *gin.Context) {
	h.saveReport(c, 0, http.StatusCreated)
}

// updateReport handles PUT /api/v1/reports/:id
func (h *Handler) updateReport(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}
	h.saveReport(c, id, http.StatusOK)
}

func (h *Handler) saveReport(c *gin.Context, reportID int64, status int) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var cfg ReportConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.service.SaveConfiguration(c.Request.Context(), userID, reportID, &cfg)
	if err != nil {
		h.logger.Error("Failed to save report", zap.Int64("report_id", reportID), zap.Error(err))
		h.respondError(c, err)
		return
	}

	tmpl, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, tmpl)
}

// getReport handles GET /api/v1/reports/:id
func (h *Handler) getReport(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}

	tmpl, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get report", zap.Error(err), zap.Int64("report_id", id))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

// deleteReport handles DELETE /api/v1/reports/:id
func (h *Handler) deleteReport(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTemplate(c.Request.Context(), userID, id); err != nil {
		h.logger.Error("Failed to delete report", zap.Error(err), zap.Int64("report_id", id))
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// shareReport handles POST /api/v1/reports/:id/share
func (h *Handler) shareReport(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newID, err := h.service.ShareTemplate(c.Request.Context(), userID, id, req.ToUserID)
	if err != nil {
		h.logger.Error("Failed to share report", zap.Error(err), zap.Int64("report_id", id))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ShareResponse{ID: newID})
}

// getHistory handles GET /api/v1/reports/:id/history
func (h *Handler) getHistory(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// previewReport handles POST /api/v1/reports/preview
func (h *Handler) previewReport(c *gin.Context) {
	var cfg ReportConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	html, err := h.service.Preview(c.Request.Context(), &cfg)
	if err != nil {
		h.logger.Error("Failed to render preview", zap.Error(err))
		h.respondError(c, err)
		return
	}
	cfg.PreviewHTML = html

	c.JSON(http.StatusOK, PreviewResponse{Config: &cfg, PreviewHTML: html})
}

// =====================================================
// Export Endpoints
// =====================================================

// exportReport handles GET /api/v1/reports/:id/export?format=
func (h *Handler) exportReport(c *gin.Context) {
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}
	format, ok := h.getFormat(c)
	if !ok {
		return
	}
	userID, _ := h.getUserID(c)

	artifact, err := h.service.ExportTemplate(c.Request.Context(), userID, id, format)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// createExportJob handles POST /api/v1/reports/:id/export-jobs?format=
func (h *Handler) createExportJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background exports are disabled"})
		return
	}
	id, ok := h.getIDParam(c, "id")
	if !ok {
		return
	}
	format, ok := h.getFormat(c)
	if !ok {
		return
	}
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	job, err := h.jobs.Submit(userID, id, format)
	if err != nil {
		h.logger.Warn("Failed to queue export", zap.Int64("report_id", id), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// getExportJob handles GET /api/v1/reports/export-jobs/:jobId
func (h *Handler) getExportJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background exports are disabled"})
		return
	}
	job, ok := h.jobs.Job(c.Param("jobId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// =====================================================
// Helper Methods
// =====================================================

// listFields handles GET /api/v1/reports/fields?data_source=
func (h *Handler) listFields(c *gin.Context) {
	fields, err := h.service.Fields(c.DefaultQuery("data_source", builder.InventorySource))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fields, "total": len(fields)})
}

// respondError maps pipeline errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, ErrSessionDiscarded):
		status = http.StatusConflict
	}
	body := gin.H{"error": err.Error()}
	if stage := StageOf(err); stage != "" {
		body["stage"] = stage
	}
	c.JSON(status, body)
}

// getUserID reads the user id set by the authenticating proxy
func (h *Handler) getUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) requireUser(c *gin.Context) (int64, bool) {
	id, ok := h.getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
	}
	return id, ok
}

func (h *Handler) getIDParam(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return 0, false
	}
	return id, true
}

func (h *Handler) getInt64Query(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (h *Handler) getFormat(c *gin.Context) (export.Format, bool) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPDF)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return format, true
}
