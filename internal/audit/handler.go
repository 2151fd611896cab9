package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// Reader lists audit entries, newest first
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Handler serves the audit log
type Handler struct {
	reader Reader
	logger *zap.Logger
}

// NewHandler creates a new audit log handler
func NewHandler(reader Reader, logger *zap.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// RegisterRoutes registers audit routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/logs", h.listLogs)
}

// listLogs handles GET /api/v1/logs?limit=
func (h *Handler) listLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := h.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "total": len(entries)})
}
