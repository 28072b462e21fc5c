// Package api exposes the ASTRA pipeline over an HTTP JSON API.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/astralabs/astra-go/internal/analysis"
	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
	"github.com/astralabs/astra-go/internal/exchange"
	"github.com/astralabs/astra-go/internal/ingest"
	"github.com/astralabs/astra-go/internal/logging"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo         *echo.Echo
	Group        *echo.Group
	DS           datastore.Interface
	Settings     *conf.Settings
	Orchestrator *analysis.Orchestrator
	Detectors    *detector.Manager
	Exchange     *exchange.Service
	Publisher    *ingest.Publisher

	queryCache *cache.Cache // caches graph and stats responses
	apiLogger  *slog.Logger
	startTime  time.Time
}

// New creates the API controller and registers its routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	orchestrator *analysis.Orchestrator, detectors *detector.Manager,
	exchangeService *exchange.Service, publisher *ingest.Publisher) *Controller {

	apiLogger := logging.ForService("api")
	if apiLogger == nil {
		apiLogger = slog.Default().With("service", "api")
	}

	c := &Controller{
		Echo:         e,
		Group:        e.Group("/api/v1"),
		DS:           ds,
		Settings:     settings,
		Orchestrator: orchestrator,
		Detectors:    detectors,
		Exchange:     exchangeService,
		Publisher:    publisher,
		queryCache:   cache.New(time.Minute, 5*time.Minute),
		apiLogger:    apiLogger,
		startTime:    time.Now(),
	}

	c.Group.Use(c.LoggingMiddleware())
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.GET("/detectors", c.GetDetectors)
	c.Group.PUT("/detectors/active", c.SetActiveDetector)
	c.Group.POST("/detect", c.DetectText)
	c.Group.POST("/process", c.ProcessPending)

	c.Group.GET("/events", c.GetEvents)
	c.Group.POST("/events", c.CreateEvent)
	c.Group.GET("/events/:id", c.GetEvent)

	c.Group.GET("/records", c.GetRecords)
	c.Group.GET("/stats", c.GetStats)
	c.Group.GET("/graph/cooccurrence", c.GetCooccurrenceGraph)

	c.Group.GET("/exchange/export", c.ExportIndicators)
	c.Group.POST("/exchange/import", c.ImportIndicators)
	c.Group.GET("/exchange/indicators", c.ListIndicators)

	c.Group.POST("/ingest", c.RunIngest)
}

// LoggingMiddleware logs every API request with method, path and status.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			c.apiLogger.Info("API request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"ip", ctx.RealIP(),
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}
	}
}

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("150405.000")
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs the error and writes a standardized JSON error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())
	return ctx.JSON(code, errorResp)
}

// HealthCheck handles GET /api/v1/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	eventCount, err := c.DS.CountEvents()
	dbStatus := "ok"
	if err != nil {
		dbStatus = "error"
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"instance_id":    c.Settings.Main.InstanceID,
		"database":       dbStatus,
		"events":         eventCount,
		"uptime_seconds": int(time.Since(c.startTime).Seconds()),
	})
}
