package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports engine initialization state for liveness probes.
type HealthHandler struct {
	asrReady  bool
	diarReady bool
}

// NewHealthHandler captures the startup state of both engines. Engine
// availability never changes after process start, so the values are fixed.
func NewHealthHandler(asrReady, diarReady bool) *HealthHandler {
	return &HealthHandler{asrReady: asrReady, diarReady: diarReady}
}

// Handle serves GET /health.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"asr":    h.asrReady,
		"diar":   h.diarReady,
	})
}
