package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BrianVia/transcriptor/internal/config"
)

// HTTPEngine uploads chunk audio to a transcription endpoint as multipart
// form data and reads the text from a JSON response. Requests are retried
// with exponential backoff and bounded by a concurrency semaphore so short
// chunk durations cannot overwhelm the service.
type HTTPEngine struct {
	endpoint   string
	apiKey     string
	language   string
	maxRetries int
	httpClient *http.Client
	semaphore  chan struct{}
}

// transcribeResponse is the minimal shape expected from the endpoint
type transcribeResponse struct {
	Text string `json:"text"`
}

// NewHTTPEngine validates the endpoint configuration
func NewHTTPEngine(cfg config.EngineConfig) (*HTTPEngine, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid transcription endpoint '%s'", cfg.Endpoint)
	}

	httpClient := &http.Client{
		Timeout: cfg.GetTimeoutDuration(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPEngine{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		maxRetries: cfg.MaxRetries,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Transcribe uploads one chunk file and returns the transcribed text
func (e *HTTPEngine) Transcribe(ctx context.Context, wavPath string) (string, error) {
	// Acquire semaphore to cap concurrent engine invocations
	select {
	case e.semaphore <- struct{}{}:
		defer func() { <-e.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var lastErr error

	// Retry loop with exponential backoff
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := e.doRequest(ctx, wavPath)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return "", fmt.Errorf("transcription failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// doRequest performs a single upload to the transcription endpoint
func (e *HTTPEngine) doRequest(ctx context.Context, wavPath string) (string, error) {
	body, contentType, err := e.buildMultipart(wavPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return strings.TrimSpace(parsed.Text), nil
}

// buildMultipart creates the multipart/form-data request body
func (e *HTTPEngine) buildMultipart(wavPath string) (io.Reader, string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open chunk file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, f); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"response_format": "json",
	}
	if e.language != "" {
		fields["language"] = e.language
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// isRetryable reports whether a request error is worth retrying: server
// errors, rate limiting, and connection failures are; client errors are not.
func isRetryable(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}

	errStr := err.Error()

	if strings.Contains(errStr, "HTTP error 5") {
		return true
	}

	if strings.Contains(errStr, "HTTP error 429") {
		return true
	}

	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}
