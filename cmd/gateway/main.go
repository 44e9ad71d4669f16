package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/voicelab/diarize-api/internal/gateway"
)

func main() {
	godotenv.Load()

	upstream := os.Getenv("DIARIZE_UPSTREAM")
	if upstream == "" {
		log.Fatal("DIARIZE_UPSTREAM not set (address of the transcription server, e.g. http://gpu-box:9090)")
	}

	port := 8080
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &port)
	}

	maxSizeMB := 500
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		fmt.Sscanf(v, "%d", &maxSizeMB)
	}

	forwarder := gateway.NewForwarder(upstream, time.Hour)

	app := fiber.New(fiber.Config{
		BodyLimit: maxSizeMB * 1024 * 1024,
		// The upstream can take most of an hour on long recordings; do not
		// cut the client connection before it answers.
		ReadTimeout:  time.Hour,
		WriteTimeout: time.Hour,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// /transcribe is the public name; /diarize mirrors the upstream API.
	app.Post("/transcribe", forwarder.Handle)
	app.Post("/diarize", forwarder.Handle)
	app.Get("/health", forwarder.Health)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Gateway starting on %s (upstream: %s)", addr, upstream)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Gateway failed: %v", err)
	}
}
