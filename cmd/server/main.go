package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/voicelab/diarize-api/internal/cleanup"
	"github.com/voicelab/diarize-api/internal/engine"
	"github.com/voicelab/diarize-api/internal/handlers"
	"github.com/voicelab/diarize-api/internal/media"
	"github.com/voicelab/diarize-api/internal/pipeline"
)

// hfTokenSecretPath is where Docker secret injection mounts the model hub
// token when it is not passed through the environment.
const hfTokenSecretPath = "/run/secrets/HF_TOKEN"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Whisper struct {
		Model    string `yaml:"model"`
		Python   string `yaml:"python"`
		Language string `yaml:"language"`
	} `yaml:"whisper"`

	Normalizer struct {
		Binary string `yaml:"binary"`
	} `yaml:"normalizer"`

	Storage struct {
		TempDir string `yaml:"temp_dir"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

func main() {
	// Load .env if present, then configuration
	godotenv.Load()

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

	// Request artifacts and engine assets live in separate subdirectories:
	// the scrubber sweeps uploads only, so it can never remove anything an
	// engine handle depends on for the process lifetime.
	uploadDir := filepath.Join(config.Storage.TempDir, "uploads")
	engineDir := filepath.Join(config.Storage.TempDir, "engine")

	// Temp media store
	store, err := media.NewStore(uploadDir)
	if err != nil {
		log.Fatalf("Failed to create temp store: %v", err)
	}

	// Audio normalizer (ffmpeg)
	normalizer := media.NewNormalizer(config.Normalizer.Binary)

	// Whisper transcriber. ASR is mandatory: no transcriber, no service.
	transcriber, err := engine.NewWhisperTranscriber(
		config.Whisper.Model,
		config.Whisper.Python,
		engineDir,
	)
	if err != nil {
		log.Fatalf("Failed to initialize Whisper: %v", err)
	}

	// Pyannote diarizer (optional - degrades to unlabeled output without token)
	diarizer, err := engine.NewPyannoteDiarizer(loadHFToken(), config.Whisper.Python, engineDir)
	if err != nil {
		log.Fatalf("Failed to initialize diarizer: %v", err)
	}

	// Request pipeline
	pipe := pipeline.New(store, normalizer, transcriber, diarizer, config.Whisper.Language)

	// Orphaned temp file scrubber
	scrubber := cleanup.NewScrubber(
		store.Dir(),
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.MaxAgeHours)*time.Hour,
	)
	scrubber.Start()
	defer scrubber.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	diarizeHandler := handlers.NewDiarizeHandler(pipe)
	healthHandler := handlers.NewHealthHandler(true, diarizer.Available())

	// Routes
	app.Post("/diarize", diarizeHandler.Handle)
	app.Get("/health", healthHandler.Handle)
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /diarize - Transcribe with speaker attribution")
	log.Println("   GET  /health  - Engine health check")
	log.Println("   GET  /logs    - View server logs")

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

// loadConfig loads configuration from YAML file, falling back to defaults
// when the file is absent.
func loadConfig(path string) (*Config, error) {
	var config Config

	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, &config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if config.Server.Port == 0 {
		config.Server.Port = 9090
	}
	if config.Storage.TempDir == "" {
		config.Storage.TempDir = "temp"
	}
	if config.Limits.MaxFileSizeMB == 0 {
		config.Limits.MaxFileSizeMB = 500
	}
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Server.Port)
	}

	return &config, nil
}

// loadHFToken reads the diarization model hub token from the environment,
// falling back to the Docker secret mount.
func loadHFToken() string {
	if token := os.Getenv("HF_TOKEN"); token != "" {
		return token
	}
	if data, err := os.ReadFile(hfTokenSecretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
