package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/voicelab/diarize-api/internal/media"
	"github.com/voicelab/diarize-api/internal/pipeline"
	"github.com/voicelab/diarize-api/internal/types"
)

type fakeNormalizer struct {
	fail bool
}

func (f *fakeNormalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	if f.fail {
		return "", &media.NormalizationError{Err: errors.New("exit status 1")}
	}
	out := inputPath + ".converted.wav"
	if err := os.WriteFile(out, []byte("wav"), 0644); err != nil {
		return "", err
	}
	return out, nil
}

type fakeTranscriber struct {
	segments []types.TranscriptSegment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, language string) ([]types.TranscriptSegment, error) {
	return f.segments, f.err
}

type fakeDiarizer struct {
	available bool
	turns     []types.SpeakerTurn
	gotHints  types.DiarizationHints
}

func (f *fakeDiarizer) Available() bool { return f.available }

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string, hints types.DiarizationHints) ([]types.SpeakerTurn, error) {
	f.gotHints = hints
	return f.turns, nil
}

func newTestApp(t *testing.T, transcriber pipeline.Transcriber, diarizer pipeline.Diarizer, normalizer pipeline.Normalizer) *fiber.App {
	t.Helper()
	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	p := pipeline.New(store, normalizer, transcriber, diarizer, "")

	app := fiber.New()
	app.Post("/diarize", NewDiarizeHandler(p).Handle)
	return app
}

// multipartRequest builds a POST /diarize request with a file part and
// optional extra form fields.
func multipartRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake audio")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "/diarize", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Detail
}

func TestDiarizeSuccess(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []types.TranscriptSegment{
		{Start: 0, End: 3, Text: "hello there"},
	}}
	diarizer := &fakeDiarizer{available: true, turns: []types.SpeakerTurn{
		{Start: 0, End: 3, Speaker: "SPEAKER_00"},
	}}
	app := newTestApp(t, transcriber, diarizer, &fakeNormalizer{})

	req := multipartRequest(t, "call.mp3", map[string]string{
		"min_speakers": "1",
		"max_speakers": "3",
	})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200 (body: %s)", resp.StatusCode, body)
	}

	var got []types.AlignedSegment
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Speaker != "SPEAKER_00" || got[0].Text != "hello there" {
		t.Errorf("response = %+v", got)
	}
	want := types.DiarizationHints{MinSpeakers: 1, MaxSpeakers: 3}
	if diarizer.gotHints != want {
		t.Errorf("forwarded hints = %+v, want %+v", diarizer.gotHints, want)
	}
}

func TestDiarizeDegradedMode(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []types.TranscriptSegment{
		{Start: 0, End: 1, Text: "x"},
	}}
	app := newTestApp(t, transcriber, &fakeDiarizer{available: false}, &fakeNormalizer{})

	resp, err := app.Test(multipartRequest(t, "call.wav", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got []types.AlignedSegment
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got[0].Speaker != types.SpeakerNone {
		t.Errorf("speaker = %q, want %q", got[0].Speaker, types.SpeakerNone)
	}
}

func TestDiarizeBadRequests(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"missing file", "", nil},
		{"unsupported format", "notes.txt", nil},
		{"non-integer hint", "call.wav", map[string]string{"min_speakers": "two"}},
		{"zero min_speakers", "call.wav", map[string]string{"min_speakers": "0"}},
		{"max below min", "call.wav", map[string]string{"min_speakers": "3", "max_speakers": "2"}},
	}

	app := newTestApp(t, &fakeTranscriber{}, &fakeDiarizer{}, &fakeNormalizer{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(multipartRequest(t, tc.filename, tc.fields), -1)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if decodeDetail(t, resp) == "" {
				t.Error("error body missing detail")
			}
		})
	}
}

func TestDiarizeNormalizationFailure(t *testing.T) {
	app := newTestApp(t, &fakeTranscriber{}, &fakeDiarizer{}, &fakeNormalizer{fail: true})

	resp, err := app.Test(multipartRequest(t, "call.mp3", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed input", resp.StatusCode)
	}
	if decodeDetail(t, resp) == "" {
		t.Error("error body missing detail")
	}
}

func TestDiarizeEngineFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("model crashed")}
	app := newTestApp(t, transcriber, &fakeDiarizer{available: true}, &fakeNormalizer{})

	resp, err := app.Test(multipartRequest(t, "call.mp3", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for engine fault", resp.StatusCode)
	}
	if decodeDetail(t, resp) == "" {
		t.Error("error body missing detail")
	}
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(true, false).Handle)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		ASR    bool   `json:"asr"`
		Diar   bool   `json:"diar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "ok" || !body.ASR || body.Diar {
		t.Errorf("body = %+v, want {ok true false}", body)
	}
}
