// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/kylixs/flareon/internal/history"
	"github.com/kylixs/flareon/internal/models"
	"github.com/kylixs/flareon/internal/session"
	"github.com/labstack/echo/v4"
)

// TraceHandler handles trace listing and summary operations
type TraceHandler interface {
	HandleListTraces(c echo.Context) error
	HandleGetTrace(c echo.Context) error
	HandleGetSummary(c echo.Context) error
	HandleGetSummaryMsgpack(c echo.Context) error
	HandleGetTraceHistory(c echo.Context) error
	HandleListHistory(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// TraceService defines the trace operations the handlers need.
// This allows mocking in tests
type TraceService interface {
	List() ([]*models.TraceFile, error)
	Files() []*models.TraceFile
	Get(id string) (*models.TraceFile, error)
	GetSummary(ctx context.Context, id string) (*models.Summary, error)
	Stats() session.Stats
}

// HistoryStore defines read access to the parse history.
type HistoryStore interface {
	List(ctx context.Context, limit int) ([]*history.Entry, error)
	ForFile(ctx context.Context, fileID string) ([]*history.Entry, error)
}

var (
	_ TraceService = (*session.Manager)(nil)
	_ HistoryStore = (*history.DuckStore)(nil)
)
