package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mainframe-ci/ispw-generate/internal/api"
	"github.com/mainframe-ci/ispw-generate/internal/dispatcher"
	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/internal/storage/pebbledb"
	"github.com/mainframe-ci/ispw-generate/internal/storage/sqlite"
)

const (
	DefaultPort        = ":8080"
	DefaultStoragePath = "./data/ispw_runs.db"
)

func main() {
	_ = godotenv.Load()

	zlog, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()
	log := zlog.Sugar()

	port := getEnv("PORT", DefaultPort)
	if port[0] != ':' {
		port = ":" + port
	}
	storagePath := getEnv("STORAGE_PATH", DefaultStoragePath)

	// Initialize storage
	var store storage.Store
	switch backend := getEnv("STORAGE_BACKEND", "sqlite"); backend {
	case "sqlite":
		store, err = sqlite.New(storagePath)
	case "pebble":
		store, err = pebbledb.New(storagePath)
	default:
		log.Fatalf("Unknown storage backend: %s", backend)
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize dispatcher
	dispatcherConfig := dispatcher.DefaultConfig()
	dispatcherConfig.CesURL = os.Getenv("CES_URL")
	dispatcherConfig.Srid = os.Getenv("CES_SRID")
	dispatcherConfig.Token = os.Getenv("CES_TOKEN")
	if workers := getEnvInt("MAX_WORKERS", 0); workers > 0 {
		dispatcherConfig.MaxWorkers = workers
	}
	if timeout := getEnvInt("REQUEST_TIMEOUT_SECONDS", 0); timeout > 0 {
		dispatcherConfig.RequestTimeout = time.Duration(timeout) * time.Second
	}
	d := dispatcher.New(store, dispatcherConfig, log)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Setup routes
	api.SetupRoutes(app, store, d)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Errorf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Infof("Starting ISPW generate gateway on %s", port)
	if err := app.Listen(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Let in-flight dispatch cycles finish before the store closes.
	d.Wait()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
