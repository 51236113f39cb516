// Package asr uploads captured audio to a remote transcription service.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmpmtj/L-speech-to-text/internal/config"
	"github.com/pmpmtj/L-speech-to-text/internal/jsonpath"
)

const retryBaseDelay = 500 * time.Millisecond

// TransportError reports a network-level failure on the final attempt.
// Service-level failures (non-2xx after all retries) are not errors; they
// yield an empty transcript instead.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transcription transport failure on attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client performs transcription uploads with bounded retry.
type Client struct {
	cfg        config.Config
	runtime    config.Provider
	httpClient *http.Client
	logger     *slog.Logger

	// overridable in tests
	sleep func(time.Duration)
}

// New creates a transcription client. A missing token fails fast so the
// problem surfaces at startup instead of on the first hotkey release.
func New(cfg config.Config, runtime config.Provider, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no API token configured (set token in config or OPENAI_API_KEY)")
	}
	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf("API endpoint is empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	}
	return &Client{
		cfg:        cfg,
		runtime:    runtime,
		httpClient: httpClient,
		logger:     logger,
		sleep:      time.Sleep,
	}, nil
}

// Transcribe uploads the WAV payload and returns the transcript. Settings
// that may change at runtime are re-read per call. Retries cover both
// transport failures and non-2xx responses; when retries are exhausted on a
// service error the result is an empty transcript with a nil error, while a
// transport failure on the last attempt is returned as a *TransportError.
func (c *Client) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	settings := c.runtime.Settings()

	if c.cfg.DebugAudioDir != "" {
		c.dumpAudio(wavData)
	}

	body, contentType, err := c.buildRequestBody(wavData, settings)
	if err != nil {
		return "", err
	}

	attempts := settings.MaxRetry
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		text, retryable, err := c.doUpload(ctx, body, contentType, settings)
		if err == nil {
			return text, nil
		}
		if !retryable {
			return "", err
		}
		c.logger.Warn("transcription attempt failed",
			"attempt", attempt, "max", attempts, "error", err)
		if attempt == attempts {
			if isTransport(err) {
				return "", &TransportError{Attempt: attempt, Err: err}
			}
			// service kept refusing; treat as no speech recognized
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", &TransportError{Attempt: attempt, Err: ctx.Err()}
		default:
		}
		c.sleep(delay)
		delay *= 2
	}
	return "", nil
}

type transportFailure struct {
	err error
}

func (t *transportFailure) Error() string { return t.err.Error() }
func (t *transportFailure) Unwrap() error { return t.err }

func isTransport(err error) bool {
	_, ok := err.(*transportFailure)
	return ok
}

// doUpload performs one attempt. The bool reports whether the failure may
// be retried.
func (c *Client) doUpload(ctx context.Context, body []byte, contentType string, settings config.Settings) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", "speech-to-text-client/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, &transportFailure{err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	c.logger.Debug("transcription response",
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", true, fmt.Errorf("service returned %d: %s", resp.StatusCode, truncate(respBody, 500))
	}

	if strings.EqualFold(settings.ResponseFormat, "json") {
		return jsonpath.Extract(respBody, c.cfg.TextPath), false, nil
	}
	return strings.TrimSpace(string(respBody)), false, nil
}

func (c *Client) buildRequestBody(wavData []byte, settings config.Settings) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if settings.Model != "" {
		_ = writer.WriteField("model", settings.Model)
	}
	if settings.Language != "" {
		_ = writer.WriteField("language", settings.Language)
	}
	if settings.Prompt != "" {
		_ = writer.WriteField("prompt", settings.Prompt)
	}
	_ = writer.WriteField("temperature", strconv.FormatFloat(settings.Temperature, 'f', -1, 64))
	if settings.ResponseFormat != "" {
		_ = writer.WriteField("response_format", settings.ResponseFormat)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// dumpAudio writes the outgoing payload for debugging. Failures only log.
func (c *Client) dumpAudio(wavData []byte) {
	name := fmt.Sprintf("openai_request_%s.wav", uuid.New().String())
	path := filepath.Join(c.cfg.DebugAudioDir, name)
	if err := os.WriteFile(path, wavData, 0644); err != nil {
		c.logger.Warn("debug audio dump failed", "path", path, "error", err)
		return
	}
	c.logger.Debug("debug audio dumped", "path", path, "bytes", len(wavData))
}

func truncate(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
