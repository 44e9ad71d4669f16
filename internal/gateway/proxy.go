// Package gateway forwards client uploads to a remote transcription façade,
// decoupling the public-facing service from the machine running the models.
package gateway

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds one forwarded request end to end. Long recordings
// can take the models the better part of an hour on CPU.
const DefaultTimeout = time.Hour

// Forwarder proxies uploads to the façade and maps its status and body
// through unchanged. Connectivity failures surface as 503, kept distinct
// from processing errors the façade itself reports.
type Forwarder struct {
	upstreamURL string
	client      *http.Client
}

// NewForwarder creates a forwarder for the façade at upstreamURL
// (e.g. "http://gpu-box:9090"). A zero timeout selects DefaultTimeout.
func NewForwarder(upstreamURL string, timeout time.Duration) *Forwarder {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		upstreamURL: upstreamURL,
		client:      &http.Client{Timeout: timeout},
	}
}

// Handle re-streams the incoming multipart upload to the façade's /diarize
// endpoint. The file is piped through without buffering it fully in memory;
// hint fields are forwarded verbatim.
func (f *Forwarder) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "No file uploaded",
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

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", file.Filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		for _, field := range []string{"min_speakers", "max_speakers"} {
			if v := c.FormValue(field); v != "" {
				if err := writer.WriteField(field, v); err != nil {
					pw.CloseWithError(err)
					return
				}
			}
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, f.upstreamURL+"/diarize", pr)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": fmt.Sprintf("Failed to build upstream request: %v", err),
		})
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Upstream unreachable: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"detail": fmt.Sprintf("upstream unreachable: %v", err),
		})
	}
	defer resp.Body.Close()

	return passThrough(c, resp)
}

// Health proxies the façade's health probe with the same unreachable
// mapping as uploads.
func (f *Forwarder) Health(c *fiber.Ctx) error {
	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, f.upstreamURL+"/health", nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": fmt.Sprintf("Failed to build upstream request: %v", err),
		})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"detail": fmt.Sprintf("upstream unreachable: %v", err),
		})
	}
	defer resp.Body.Close()

	return passThrough(c, resp)
}

// passThrough copies the upstream status, content type and body onto the
// gateway's own response unchanged.
func passThrough(c *fiber.Ctx, resp *http.Response) error {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	c.Status(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"detail": fmt.Sprintf("upstream read failed: %v", err),
		})
	}
	return c.Send(body)
}
