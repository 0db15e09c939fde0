// routes.go - Route registration and middleware setup
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Traces  TraceService
	History HistoryStore // Optional
	Version string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Trace  TraceHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Traces),
		Trace:  NewTraceHandler(deps.Traces, deps.History),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Trace routes
	traceGroup := apiGroup.Group("/traces")
	traceGroup.GET("", handlers.Trace.HandleListTraces)
	traceGroup.GET("/history", handlers.Trace.HandleListHistory)
	traceGroup.GET("/:id", handlers.Trace.HandleGetTrace)
	traceGroup.GET("/:id/summary", handlers.Trace.HandleGetSummary)
	traceGroup.GET("/:id/summary/msgpack", handlers.Trace.HandleGetSummaryMsgpack)
	traceGroup.GET("/:id/history", handlers.Trace.HandleGetTraceHistory)

	// Routes kept for existing clients
	legacyGroup := e.Group("/jfr")
	legacyGroup.GET("/list", handlers.Trace.HandleListTraces)
	legacyGroup.GET("/summary/:id", handlers.Trace.HandleGetSummary)
}

// MiddlewareConfig configures the common middleware stack
type MiddlewareConfig struct {
	RequestLogging   bool
	EnableCORS       bool
	AllowOrigins     string // Comma separated
	Compression      bool
	CompressionLevel int
	BodyLimit        string
	Timeout          time.Duration // 0 disables the request timeout
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.New().String()
		},
	}))

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.RequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	// Summary requests honor the request context, so a timeout stops the wait
	// but not the parse
	if cfg.Timeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Timeout,
		}))
	}

	// Compression middleware
	if cfg.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
		}))
	}

	// Body limit middleware
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	// CORS configuration
	if cfg.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: splitOrigins(cfg.AllowOrigins),
			AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
