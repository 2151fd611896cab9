package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// API holds the handlers served under /api/v1
type API struct {
	Reports   *reports.Handler
	Inventory *inventory.Handler
	Bookings  *bookings.Handler
	Logs      *audit.Handler
	DB        Pinger
}

// NewRouter builds the HTTP router with middleware, health check and
// every API route registered
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	group := router.Group("/api/v1")
	{
		api.Reports.RegisterRoutes(group)
		api.Inventory.RegisterRoutes(group)
		api.Bookings.RegisterRoutes(group)
		api.Logs.RegisterRoutes(group)
	}

	router.GET("/health", api.health)
	return router
}

// corsMiddleware allows the desktop and browser clients to call the API
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-User-ID, accept, origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (api *API) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "healthy", "timestamp": time.Now()}
	if err := api.DB.PingContext(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}
