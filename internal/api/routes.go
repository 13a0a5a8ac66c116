// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store           storage.Store
	AnalysisMgr     *analysis.Manager
	MaxUploadSize   int64
	DefaultPageSize int
	Version         string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Upload    UploadHandler
	Analysis  AnalysisHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.AnalysisMgr),
		Upload:    NewUploadHandler(deps.Store, deps.MaxUploadSize),
		Analysis:  NewAnalysisHandler(deps.AnalysisMgr, deps.DefaultPageSize),
		WebSocket: NewWebSocketHandler(deps.AnalysisMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)

	// Analysis routes
	analysisGroup := e.Group("/api/analyses")
	analysisGroup.POST("", handlers.Analysis.HandleStartAnalysis)
	analysisGroup.GET("/:id/status", handlers.Analysis.HandleAnalysisStatus)
	analysisGroup.GET("/:id/progress", handlers.Analysis.HandleProgressStream)
	analysisGroup.GET("/:id/ws", handlers.WebSocket.HandleProgress)
	analysisGroup.GET("/:id/summary", handlers.Analysis.HandleSummary)
	analysisGroup.GET("/:id/rows", handlers.Analysis.HandleRows)
	analysisGroup.GET("/:id/rows/msgpack", handlers.Analysis.HandleRowsMsgpack)
	analysisGroup.GET("/:id/distinct", handlers.Analysis.HandleDistinctCounts)
	analysisGroup.GET("/:id/artifacts", handlers.Analysis.HandleArtifacts)
	// Wildcard so chart paths like plots/age_distribution.png resolve.
	analysisGroup.GET("/:id/artifacts/*", handlers.Analysis.HandleDownloadArtifact)
	analysisGroup.GET("/:id/bundle", handlers.Analysis.HandleDownloadBundle)
	analysisGroup.POST("/:id/keepalive", handlers.Analysis.HandleKeepAlive)
}
