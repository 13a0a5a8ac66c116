// handlers_upload.go - File upload operation handlers
package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/csv-profiler/backend/internal/storage"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store         storage.Store
	maxUploadSize int64
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store, maxUploadSize int64) UploadHandler {
	return &UploadHandlerImpl{
		store:         store,
		maxUploadSize: maxUploadSize,
	}
}

// HandleUploadFile accepts a CSV file as multipart/form-data and saves it to
// storage. Only .csv files under the configured size limit are accepted.
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	if !isCSV(file.Filename) {
		return NewInvalidFileTypeError(file.Filename)
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		return NewFileTooLargeError(file.Size, h.maxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(filepath.Base(file.Filename), src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns a list of recently uploaded files
func (h *UploadHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *UploadHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file
func (h *UploadHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// isCSV reports whether the file name carries a .csv extension.
func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
