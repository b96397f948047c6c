// Package speech transcribes audio through a Whisper-compatible HTTP API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// HTTPTranscriber sends audio to a POST /v1/audio/transcriptions endpoint and
// returns the recognized text.
type HTTPTranscriber struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *logging.Logger
}

// Config configures the transcription endpoint.
type Config struct {
	BaseURL string // e.g. https://api.openai.com
	APIKey  string
	Model   string // defaults to whisper-1
	Timeout time.Duration
	Logger  *logging.Logger
}

// NewHTTPTranscriber creates a transcriber client.
func NewHTTPTranscriber(cfg Config) (*HTTPTranscriber, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("speech: base url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPTranscriber{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio and returns the recognized text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("speech: build upload: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("speech: read audio: %w", err)
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("speech: build upload: %w", err)
	}
	if err := mw.WriteField("language", "es"); err != nil {
		return "", fmt.Errorf("speech: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("speech: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.logger.Error("speech: transcription rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("speech: transcription returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("speech: decode transcription: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
