package asr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pmpmtj/L-speech-to-text/internal/config"
)

func testSettings() config.Settings {
	return config.Settings{
		Language:       "en",
		Model:          "whisper-1",
		Temperature:    0,
		ResponseFormat: "text",
		MaxRetry:       3,
	}
}

func newTestClient(t *testing.T, endpoint string, provider config.Provider) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Token = "test-token"
	cfg.APIEndpoint = endpoint
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(cfg, provider, &http.Client{Timeout: 5 * time.Second}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func TestMissingTokenFailsFast(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Token = ""
	t.Setenv("OPENAI_API_KEY", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(cfg, config.Static(testSettings()), nil, logger); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestRetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart parse: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		io.WriteString(w, "hello world\n")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, config.Static(testSettings()))
	text, err := c.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestExhaustedServiceErrorsYieldEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, config.Static(testSettings()))
	text, err := c.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestTransportFailureOnFinalAttemptIsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connections now refused

	c := newTestClient(t, url, config.Static(testSettings()))
	_, err := c.Transcribe(context.Background(), []byte("RIFFdata"))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Attempt != 3 {
		t.Fatalf("attempt = %d, want 3", te.Attempt)
	}
}

func TestEmptySuccessReturnsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// 200 with no text: valid "no speech" result, not a failure
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, config.Static(testSettings()))
	text, err := c.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (empty success must not retry)", calls.Load())
	}
}

func TestJSONResponseExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"from json"}`)
	}))
	defer srv.Close()

	s := testSettings()
	s.ResponseFormat = "json"
	c := newTestClient(t, srv.URL, config.Static(s))
	text, err := c.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "from json" {
		t.Fatalf("text = %q", text)
	}
}

// settingsSequence returns different settings on successive calls,
// imitating a runtime file edited between recordings.
type settingsSequence struct {
	seq  []config.Settings
	next atomic.Int32
}

func (s *settingsSequence) Settings() config.Settings {
	i := int(s.next.Add(1)) - 1
	if i >= len(s.seq) {
		i = len(s.seq) - 1
	}
	return s.seq[i]
}

func TestSettingsRereadPerCall(t *testing.T) {
	var langs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		langs = append(langs, r.FormValue("language"))
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	first := testSettings()
	second := testSettings()
	second.Language = "de"
	provider := &settingsSequence{seq: []config.Settings{first, second}}

	c := newTestClient(t, srv.URL, provider)
	for i := 0; i < 2; i++ {
		if _, err := c.Transcribe(context.Background(), []byte("RIFFdata")); err != nil {
			t.Fatalf("Transcribe %d: %v", i, err)
		}
	}
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "de" {
		t.Fatalf("languages seen = %v", langs)
	}
}
