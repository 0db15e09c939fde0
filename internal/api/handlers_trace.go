// handlers_trace.go - Trace listing and summary handlers
package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/kylixs/flareon/internal/logging"
	"github.com/kylixs/flareon/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of msgpack responses.
const MIMEApplicationMsgpack = "application/msgpack"

// defaultHistoryLimit caps history listings without an explicit limit.
const defaultHistoryLimit = 100

// TraceHandlerImpl implements the TraceHandler interface
type TraceHandlerImpl struct {
	traces  TraceService
	history HistoryStore // nil when persistence is disabled
	logger  *log.Logger
}

// NewTraceHandler creates a new trace handler. history may be nil.
func NewTraceHandler(traces TraceService, history HistoryStore) *TraceHandlerImpl {
	return &TraceHandlerImpl{
		traces:  traces,
		history: history,
		logger:  logging.New("api"),
	}
}

// HandleListTraces rescans the trace directory and returns every trace file.
func (h *TraceHandlerImpl) HandleListTraces(c echo.Context) error {
	files, err := h.traces.List()
	if err != nil {
		h.logger.Warnf("Listing traces failed: %v", err)
		return FromError(err, "")
	}
	if files == nil {
		files = []*models.TraceFile{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetTrace returns the metadata of one trace file.
func (h *TraceHandlerImpl) HandleGetTrace(c echo.Context) error {
	id := c.Param("id")
	file, err := h.traces.Get(id)
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, file)
}

// HandleGetSummary returns the summary of one trace file, parsing it on first use.
func (h *TraceHandlerImpl) HandleGetSummary(c echo.Context) error {
	id := c.Param("id")
	summary, err := h.traces.GetSummary(c.Request().Context(), id)
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, summary)
}

// HandleGetSummaryMsgpack returns the summary encoded as msgpack with sorted keys.
func (h *TraceHandlerImpl) HandleGetSummaryMsgpack(c echo.Context) error {
	id := c.Param("id")
	summary, err := h.traces.GetSummary(c.Request().Context(), id)
	if err != nil {
		return FromError(err, id)
	}

	data, err := encodeMsgpack(summary)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}

// HandleGetTraceHistory returns the recorded parses of one trace file.
func (h *TraceHandlerImpl) HandleGetTraceHistory(c echo.Context) error {
	id := c.Param("id")
	if h.history == nil {
		return NewServiceUnavailableError("history is disabled", nil)
	}
	if _, err := h.traces.Get(id); err != nil {
		return FromError(err, id)
	}

	entries, err := h.history.ForFile(c.Request().Context(), id)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	return c.JSON(http.StatusOK, entries)
}

// HandleListHistory returns the most recent parses across all files.
func (h *TraceHandlerImpl) HandleListHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("history is disabled", nil)
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewBadRequestError("invalid limit", errors.New(raw))
		}
		limit = n
	}

	entries, err := h.history.List(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	return c.JSON(http.StatusOK, entries)
}

func encodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
