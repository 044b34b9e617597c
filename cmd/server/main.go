package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/clipforge/internal/analysis"
	"github.com/codebuildervaibhav/clipforge/internal/cleanup"
	"github.com/codebuildervaibhav/clipforge/internal/handlers"
	"github.com/codebuildervaibhav/clipforge/internal/media"
	"github.com/codebuildervaibhav/clipforge/internal/pipeline"
	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/transcribe"
	"github.com/codebuildervaibhav/clipforge/internal/upload"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Workers struct {
		Pipeline int `yaml:"pipeline"`
		Upload   int `yaml:"upload"`
	} `yaml:"workers"`

	Storage struct {
		UploadsDir string `yaml:"uploads_dir"`
		TempDir    string `yaml:"temp_dir"`
		OutputsDir string `yaml:"outputs_dir"`
		Database   string `yaml:"database"`
	} `yaml:"storage"`

	Media struct {
		YtDlpPath   string `yaml:"yt_dlp_path"`
		FFmpegPath  string `yaml:"ffmpeg_path"`
		FFprobePath string `yaml:"ffprobe_path"`
	} `yaml:"media"`

	Whisper struct {
		Enabled bool   `yaml:"enabled"`
		Model   string `yaml:"model"`
	} `yaml:"whisper"`

	Analysis struct {
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"analysis"`

	Upload struct {
		RedirectURL string `yaml:"redirect_url"`
	} `yaml:"upload"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`
}

func main() {
	// Secrets come from the environment; .env is optional in development.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Database
	repo, err := storage.NewRepository(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	// Artifact directories
	artifacts, err := storage.NewArtifacts(
		config.Storage.UploadsDir,
		config.Storage.TempDir,
		config.Storage.OutputsDir,
	)
	if err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	// Media tools
	downloader := media.NewDownloader(config.Media.YtDlpPath)
	ffmpeg := media.NewFFmpeg(config.Media.FFmpegPath, config.Media.FFprobePath)

	// Transcription (optional - windows carry placeholder text without it)
	var transcriber pipeline.Transcriber
	if config.Whisper.Enabled {
		transcriber = transcribe.NewWhisperTranscriber(config.Whisper.Model, config.Storage.TempDir)
		log.Printf("Whisper transcription enabled (model: %s)", config.Whisper.Model)
	} else {
		log.Println("Whisper transcription disabled - using time-based segments")
	}

	// Scoring client with key failover
	apiKeys := collectAPIKeys()
	if len(apiKeys) == 0 {
		log.Println("WARNING: no GEMINI_API_KEY set - using heuristic analysis only")
	} else {
		log.Printf("Scoring enabled with %d API key(s)", len(apiKeys))
	}
	scorer := analysis.NewClient(
		analysis.NewGeminiBackend(config.Analysis.BaseURL, config.Analysis.Model),
		apiKeys,
	)

	// Job pipeline and workers
	pipe := pipeline.New(repo, artifacts, downloader, ffmpeg, transcriber, scorer)
	workerPool := pipeline.NewWorkerPool(config.Workers.Pipeline, pipe)
	workerPool.Start()

	// YouTube publishing (optional - may fail if OAuth app not set up)
	var oauth *upload.OAuth
	var coordinator *upload.Coordinator
	oauth, err = upload.NewOAuth(
		os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
		config.Upload.RedirectURL,
		repo,
	)
	if err != nil {
		log.Printf("WARNING: YouTube publishing not available: %v", err)
		oauth = nil
	} else {
		coordinator = upload.NewCoordinator(repo, artifacts, oauth, upload.NewYouTubeBackend())
		coordinator.Start(config.Workers.Upload)
		log.Println("YouTube publishing enabled")
	}

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		repo,
		artifacts,
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "clipforge",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(repo, artifacts, workerPool)
	clipHandler := handlers.NewClipHandler(repo, coordinator)
	authHandler := handlers.NewAuthHandler(oauth, repo)
	progressHandler := handlers.NewProgressHandler(repo)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/jobs", jobHandler.Submit)
	app.Get("/jobs", jobHandler.List)
	app.Get("/jobs/:id", jobHandler.Status)
	app.Delete("/jobs/:id", jobHandler.Delete)
	app.Get("/jobs/:id/clips", clipHandler.ListByJob)

	app.Get("/clips/:id/download", clipHandler.Download)
	app.Post("/clips/:id/upload", clipHandler.Upload)

	app.Get("/auth/youtube", authHandler.Connect)
	app.Get("/auth/youtube/callback", authHandler.Callback)
	app.Get("/auth/youtube/status", authHandler.Status)
	app.Post("/auth/youtube/disconnect", authHandler.Disconnect)

	// WebSocket route
	app.Get("/ws/progress/:id", websocket.New(progressHandler.Handle))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// collectAPIKeys gathers the scoring API keys from the environment. The
// primary key plus up to four numbered fallbacks, in failover order.
func collectAPIKeys() []string {
	var keys []string
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		keys = append(keys, key)
	}
	for i := 1; i <= 4; i++ {
		if key := os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
