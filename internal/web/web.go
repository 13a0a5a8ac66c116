// Package web serves the embedded HTML pages for the profiler UI.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/models"
	"github.com/csv-profiler/backend/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Handler renders the upload form and the results page.
type Handler struct {
	store         storage.Store
	manager       *analysis.Manager
	maxUploadSize int64
	maxUploadText string
}

func NewHandler(store storage.Store, manager *analysis.Manager, maxUploadSize int64, maxUploadText string) *Handler {
	return &Handler{
		store:         store,
		manager:       manager,
		maxUploadSize: maxUploadSize,
		maxUploadText: maxUploadText,
	}
}

// RegisterRoutes attaches the page routes to the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.HandleIndex)
	e.POST("/upload", h.HandleUpload)
	e.GET("/results/:id", h.HandleResults)
}

type indexData struct {
	Error         string
	MaxUploadSize string
	Recent        []*models.FileInfo
}

// HandleIndex renders the upload form with the recent upload history.
func (h *Handler) HandleIndex(c echo.Context) error {
	return h.renderIndex(c, http.StatusOK, "")
}

func (h *Handler) renderIndex(c echo.Context, status int, errMsg string) error {
	recent, err := h.store.List(10)
	if err != nil {
		recent = nil
	}
	return renderPage(c, status, "index.html", indexData{
		Error:         errMsg,
		MaxUploadSize: h.maxUploadText,
		Recent:        recent,
	})
}

// HandleUpload accepts the multipart form, stores the file, starts the
// analysis and redirects to its results page.
func (h *Handler) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return h.renderIndex(c, http.StatusBadRequest, "No file selected.")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return h.renderIndex(c, http.StatusBadRequest, "Only .csv files are accepted.")
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		return h.renderIndex(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %s upload limit.", h.maxUploadText))
	}

	src, err := file.Open()
	if err != nil {
		return h.renderIndex(c, http.StatusInternalServerError, "Could not read the uploaded file.")
	}
	defer src.Close()

	info, err := h.store.Save(filepath.Base(file.Filename), src)
	if err != nil {
		return h.renderIndex(c, http.StatusInternalServerError, "Could not store the uploaded file.")
	}

	a, err := h.manager.Start(info.ID)
	if err != nil {
		return h.renderIndex(c, http.StatusInternalServerError, err.Error())
	}
	return c.Redirect(http.StatusSeeOther, "/results/"+a.ID)
}

type resultsData struct {
	Analysis *models.Analysis
	Summary  *analysis.Summary
	Running  bool
	Failed   bool
}

// HandleResults renders the progress view while the pipeline runs and the
// full profile once it completes.
func (h *Handler) HandleResults(c echo.Context) error {
	id := c.Param("id")
	a, ok := h.manager.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}

	data := resultsData{
		Analysis: a,
		Running:  a.Status == models.AnalysisStatusPending || a.Status == models.AnalysisStatusRunning,
		Failed:   a.Status == models.AnalysisStatusError,
	}
	if a.Status == models.AnalysisStatusComplete {
		if s, ok := h.manager.GetSummary(id); ok {
			data.Summary = s
		}
	}
	return renderPage(c, http.StatusOK, "results.html", data)
}

func renderPage(c echo.Context, status int, name string, data interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return pages.ExecuteTemplate(c.Response(), name, data)
}
