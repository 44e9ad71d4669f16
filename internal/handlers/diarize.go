package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/voicelab/diarize-api/internal/media"
	"github.com/voicelab/diarize-api/internal/pipeline"
	"github.com/voicelab/diarize-api/internal/types"
)

// DiarizeHandler serves the speaker-attributed transcription endpoint.
type DiarizeHandler struct {
	pipeline *pipeline.Pipeline
}

// NewDiarizeHandler creates the handler for POST /diarize.
func NewDiarizeHandler(p *pipeline.Pipeline) *DiarizeHandler {
	return &DiarizeHandler{pipeline: p}
}

// Handle runs one upload through the pipeline synchronously and returns the
// aligned segments as a JSON array.
func (h *DiarizeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "No file uploaded",
		})
	}

	if !media.SupportedFormat(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Unsupported audio format",
		})
	}

	hints, err := parseHints(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Printf("Failed to open uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to read upload",
		})
	}
	defer src.Close()

	aligned, err := h.pipeline.Process(c.Context(), src, file.Filename, hints)
	if err != nil {
		log.Printf("Pipeline failed: %v", err)

		var inputErr *pipeline.InputError
		if errors.As(err, &inputErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": inputErr.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	return c.JSON(aligned)
}

// parseHints reads the optional speaker-count bounds from the form.
func parseHints(c *fiber.Ctx) (types.DiarizationHints, error) {
	var hints types.DiarizationHints

	if v := c.FormValue("min_speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return hints, errors.New("min_speakers must be an integer >= 1")
		}
		hints.MinSpeakers = n
	}
	if v := c.FormValue("max_speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return hints, errors.New("max_speakers must be an integer >= 1")
		}
		hints.MaxSpeakers = n
	}
	if !hints.Valid() {
		return hints, errors.New("max_speakers must be >= min_speakers")
	}
	return hints, nil
}
