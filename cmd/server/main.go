package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fin-diagnostics/backend/internal/api"
	"github.com/fin-diagnostics/backend/internal/batch"
	"github.com/fin-diagnostics/backend/internal/config"
	"github.com/fin-diagnostics/backend/internal/processing"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := os.Getenv("BATCH_UPLOAD_CONFIG")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Processing adapter: the external diagnostics endpoint. The per-file
	// ceiling lives in the scheduler; the transport timeout is a backstop.
	adapter := processing.NewClient(cfg.Processing.Endpoint, &http.Client{
		Timeout: time.Duration(cfg.Processing.RequestTimeoutSeconds) * time.Second,
	})

	controller := batch.NewController(batch.Options{
		MaxFiles:      cfg.Queue.MaxFiles,
		MaxFileSize:   cfg.MaxFileSizeBytes(),
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		FileTimeout:   time.Duration(cfg.Queue.FileTimeoutSeconds) * time.Second,
		Adapter:       adapter,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Controller: controller,
		Version:    Version,
	})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			// Snapshot polls and health checks are noise.
			return path == "/api/health" ||
				(c.Request().Method == http.MethodGet && strings.HasPrefix(path, "/api/queue"))
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, handlers)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("Batch Upload Queue Server %s (built %s)\n", Version, BuildTime)
	fmt.Printf("Listening on http://%s\n", cfg.GetServerAddr())
	fmt.Printf("Diagnostics endpoint: %s\n", cfg.Processing.Endpoint)
	fmt.Printf("Limits: %d files, %d MB per file, %d concurrent\n",
		cfg.Queue.MaxFiles, cfg.Queue.MaxFileSizeMB, cfg.Queue.MaxConcurrent)

	e.Logger.Fatal(e.StartServer(s))
}
