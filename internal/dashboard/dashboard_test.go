package dashboard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmpmtj/L-speech-to-text/internal/config"
	"github.com/pmpmtj/L-speech-to-text/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *config.Runtime) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RuntimeConfigPath = filepath.Join(t.TempDir(), "runtime_config.json")
	rt := config.NewRuntime(&cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg.Dashboard, rt, metrics.New(), logger), rt
}

func TestGetSettings(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc settingsDoc
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Transcription.Model != "whisper-1" {
		t.Fatalf("model = %q", doc.Transcription.Model)
	}
}

func TestPostSettingsPersists(t *testing.T) {
	srv, rt := newTestServer(t)
	body := `{"transcription":{"language":"de","model":"whisper-1","temperature":0.2,"response_format":"text","min_duration":1.25,"max_retry":3},"paste":{"add_timestamp":true}}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	s := rt.Settings()
	if s.Language != "de" {
		t.Fatalf("language = %q", s.Language)
	}
	if !s.AddTimestamp {
		t.Fatal("add_timestamp not persisted")
	}
}

func TestPostSettingsPartialKeepsRest(t *testing.T) {
	srv, rt := newTestServer(t)
	// only the language field; everything else retains current values
	body := `{"transcription":{"language":"fr"}}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	s := rt.Settings()
	if s.Language != "fr" {
		t.Fatalf("language = %q", s.Language)
	}
	if s.Model != "whisper-1" || s.MaxRetry != 3 {
		t.Fatalf("partial update clobbered settings: %+v", s)
	}
}

func TestPostSettingsRejectsInvalid(t *testing.T) {
	srv, rt := newTestServer(t)
	before := rt.Settings()
	body := `{"transcription":{"language":"en","model":"whisper-1","temperature":5,"response_format":"text","min_duration":1,"max_retry":3}}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if rt.Settings() != before {
		t.Fatal("invalid payload changed settings")
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}
