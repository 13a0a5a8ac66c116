// handlers_analysis.go - Analysis lifecycle and results handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/models"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	manager         *analysis.Manager
	defaultPageSize int
}

// NewAnalysisHandler creates a new analysis handler instance
func NewAnalysisHandler(manager *analysis.Manager, defaultPageSize int) AnalysisHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 100
	}
	return &AnalysisHandlerImpl{
		manager:         manager,
		defaultPageSize: defaultPageSize,
	}
}

type startAnalysisRequest struct {
	FileID string `json:"fileId"`
}

// HandleStartAnalysis kicks off the cleaning and profiling pipeline for an
// uploaded file.
func (h *AnalysisHandlerImpl) HandleStartAnalysis(c echo.Context) error {
	var req startAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	a, err := h.manager.Start(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	return c.JSON(http.StatusAccepted, a)
}

// HandleAnalysisStatus returns the current status of an analysis
func (h *AnalysisHandlerImpl) HandleAnalysisStatus(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, a)
}

// HandleProgressStream streams analysis progress via SSE
func (h *AnalysisHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	a, ok := h.manager.Get(id)
	if !ok {
		h.sendSSEError(c, "analysis not found")
		return nil
	}
	h.sendSSEData(c, a)
	if a.Status == models.AnalysisStatusComplete || a.Status == models.AnalysisStatusError {
		return nil
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			a, ok := h.manager.Get(id)
			if !ok {
				h.sendSSEError(c, "analysis not found")
				return nil
			}
			h.sendSSEData(c, a)
			if a.Status == models.AnalysisStatusComplete ||
				a.Status == models.AnalysisStatusError {
				return nil
			}

		case <-c.Request().Context().Done():
			return nil

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleSummary returns the profiling summary of a completed analysis
func (h *AnalysisHandlerImpl) HandleSummary(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}
	if a.Status == models.AnalysisStatusError {
		return analysisFailedError(a)
	}
	if a.Status != models.AnalysisStatusComplete {
		return NewConflictError(fmt.Sprintf("analysis is %s, summary not available", a.Status))
	}

	summary, ok := h.manager.GetSummary(a.ID)
	if !ok {
		return NewNotFoundError("summary", a.ID)
	}
	h.manager.Touch(a.ID)
	return c.JSON(http.StatusOK, summary)
}

type rowsResponse struct {
	Columns  []string   `json:"columns" msgpack:"columns"`
	Rows     [][]string `json:"rows" msgpack:"rows"`
	Total    int        `json:"total" msgpack:"total"`
	Page     int        `json:"page" msgpack:"page"`
	PageSize int        `json:"pageSize" msgpack:"pageSize"`
}

// HandleRows returns one page of cleaned rows as JSON
func (h *AnalysisHandlerImpl) HandleRows(c echo.Context) error {
	resp, apiErr := h.queryRows(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRowsMsgpack returns one page of cleaned rows msgpack-encoded, for
// clients that want the compact wire format.
func (h *AnalysisHandlerImpl) HandleRowsMsgpack(c echo.Context) error {
	resp, apiErr := h.queryRows(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode rows", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDistinctCounts returns per-column distinct value counts
func (h *AnalysisHandlerImpl) HandleDistinctCounts(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}

	counts, ok := h.manager.DistinctCounts(c.Request().Context(), a.ID)
	if !ok {
		return NewNotFoundError("preview", a.ID)
	}
	h.manager.Touch(a.ID)
	return c.JSON(http.StatusOK, counts)
}

// HandleArtifacts lists the artifacts and charts of a completed analysis
func (h *AnalysisHandlerImpl) HandleArtifacts(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}
	if a.Status == models.AnalysisStatusError {
		return analysisFailedError(a)
	}
	if a.Status != models.AnalysisStatusComplete {
		return NewConflictError(fmt.Sprintf("analysis is %s, artifacts not available", a.Status))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"artifacts": a.Artifacts,
		"charts":    a.Charts,
		"bundle":    a.BundleName,
	})
}

// HandleDownloadArtifact serves a single artifact from the output directory.
// Chart PNGs are served inline so the results page can embed them.
func (h *AnalysisHandlerImpl) HandleDownloadArtifact(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}

	name := c.Param("*")
	if name == "" {
		return NewValidationError("name")
	}
	// The artifact name may address plots/<file>.png. Reject anything that
	// would escape the analysis output directory.
	name = filepath.ToSlash(filepath.Clean(name))
	if strings.HasPrefix(name, "..") || strings.HasPrefix(name, "/") {
		return NewBadRequestError("invalid artifact name", nil)
	}

	dir, ok := h.manager.OutputDir(a.ID)
	if !ok {
		return NewNotFoundError("artifacts", a.ID)
	}
	h.manager.Touch(a.ID)

	path := filepath.Join(dir, filepath.FromSlash(name))
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return c.File(path)
	}
	return c.Attachment(path, filepath.Base(name))
}

// HandleDownloadBundle serves the ZIP archive of a completed analysis
func (h *AnalysisHandlerImpl) HandleDownloadBundle(c echo.Context) error {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return apiErr
	}

	path, ok := h.manager.BundlePath(a.ID)
	if !ok {
		return NewNotFoundError("bundle", a.ID)
	}
	h.manager.Touch(a.ID)

	return c.Attachment(path, a.BundleName)
}

// HandleKeepAlive marks an analysis as actively used so cleanup skips it
func (h *AnalysisHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if !h.manager.Touch(id) {
		return NewNotFoundError("analysis", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// analysisFailedError maps a failed analysis onto the HTTP error taxonomy:
// load-stage failures are the caller's malformed CSV, everything else is a
// processing failure.
func analysisFailedError(a *models.Analysis) *APIError {
	reason := "analysis failed"
	if len(a.Errors) > 0 {
		reason = a.Errors[len(a.Errors)-1].Reason
	}
	if a.Stage == "load" {
		return NewMalformedCSVError(errors.New(reason))
	}
	return NewInternalError(reason, nil)
}

func (h *AnalysisHandlerImpl) analysisFromParam(c echo.Context) (*models.Analysis, *APIError) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}
	a, ok := h.manager.Get(id)
	if !ok {
		return nil, NewNotFoundError("analysis", id)
	}
	return a, nil
}

func (h *AnalysisHandlerImpl) queryRows(c echo.Context) (*rowsResponse, *APIError) {
	a, apiErr := h.analysisFromParam(c)
	if apiErr != nil {
		return nil, apiErr
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "pageSize", h.defaultPageSize)
	if pageSize > 1000 {
		pageSize = 1000
	}

	columns, rows, total, ok := h.manager.Rows(c.Request().Context(), a.ID, page, pageSize)
	if !ok {
		return nil, NewNotFoundError("preview", a.ID)
	}
	h.manager.Touch(a.ID)

	return &rowsResponse{
		Columns:  columns,
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *AnalysisHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	payload, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", payload)
	c.Response().Flush()
}

func (h *AnalysisHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
