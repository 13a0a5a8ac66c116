// interfaces.go - Handler interfaces for route registration
package api

import "github.com/labstack/echo/v4"

// HealthHandler serves liveness checks.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// UploadHandler manages uploaded CSV files.
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// AnalysisHandler manages analysis runs and their results.
type AnalysisHandler interface {
	HandleStartAnalysis(c echo.Context) error
	HandleAnalysisStatus(c echo.Context) error
	HandleProgressStream(c echo.Context) error
	HandleSummary(c echo.Context) error
	HandleRows(c echo.Context) error
	HandleRowsMsgpack(c echo.Context) error
	HandleDistinctCounts(c echo.Context) error
	HandleArtifacts(c echo.Context) error
	HandleDownloadArtifact(c echo.Context) error
	HandleDownloadBundle(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
}
