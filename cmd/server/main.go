package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/api"
	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/storage"
	"github.com/csv-profiler/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		fmt.Printf("Invalid upload size limit: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDir)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Initialize analysis manager
	analysisMgr := analysis.NewManager(fileStore, cfg)

	// Start background analysis cleanup
	go func() {
		ticker := time.NewTicker(cfg.Processing.CleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			analysisMgr.CleanupOld(cfg.Processing.AnalysisMaxAge)
		}
	}()

	// Initialize API handlers
	handlers := api.NewHandlers(&api.Dependencies{
		Store:           fileStore,
		AnalysisMgr:     analysisMgr,
		MaxUploadSize:   maxUpload,
		DefaultPageSize: cfg.Pipeline.PreviewPageSize,
		Version:         Version,
	})

	// Initialize page handlers
	pagesHandler := web.NewHandler(fileStore, analysisMgr, maxUpload, cfg.Storage.MaxUploadSize)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Server.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// Compressing event streams and PNGs buys nothing.
			return c.Request().Header.Get("Accept") == "text/event-stream" ||
				strings.Contains(c.Request().URL.Path, "/artifacts/")
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Storage.MaxUploadSize))

	// CORS configuration
	if cfg.Server.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	// API routes
	api.RegisterRoutes(e, handlers)

	// HTML pages
	pagesHandler.RegisterRoutes(e)

	// Configure server with settings from env config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           CSV Profiler Server                             ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Listen:     http://%-37s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Uploads:    %-45s║\n", cfg.Storage.UploadsDir)
	fmt.Printf("║  Outputs:    %-45s║\n", cfg.Storage.OutputsDir)
	fmt.Printf("║  Max Upload: %-45s║\n", cfg.Storage.MaxUploadSize)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)

	e.Logger.Fatal(e.StartServer(s))
}
