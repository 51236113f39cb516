// Package dashboard serves a small HTTP API for inspecting and editing the
// live runtime settings while the capture loop is running.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmpmtj/L-speech-to-text/internal/config"
	"github.com/pmpmtj/L-speech-to-text/internal/metrics"
)

// settingsDoc is the wire shape of the /settings endpoint, matching the
// runtime settings file layout.
type settingsDoc struct {
	Transcription struct {
		Language       string  `json:"language"`
		Model          string  `json:"model"`
		Prompt         string  `json:"prompt"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat string  `json:"response_format"`
		MinDuration    float64 `json:"min_duration"`
		MaxRetry       int     `json:"max_retry"`
	} `json:"transcription"`
	Paste struct {
		AddTimestamp bool `json:"add_timestamp"`
	} `json:"paste"`
}

func toDoc(s config.Settings) settingsDoc {
	var d settingsDoc
	d.Transcription.Language = s.Language
	d.Transcription.Model = s.Model
	d.Transcription.Prompt = s.Prompt
	d.Transcription.Temperature = s.Temperature
	d.Transcription.ResponseFormat = s.ResponseFormat
	d.Transcription.MinDuration = s.MinDuration
	d.Transcription.MaxRetry = s.MaxRetry
	d.Paste.AddTimestamp = s.AddTimestamp
	return d
}

func fromDoc(d settingsDoc) config.Settings {
	return config.Settings{
		Language:       d.Transcription.Language,
		Model:          d.Transcription.Model,
		Prompt:         d.Transcription.Prompt,
		Temperature:    d.Transcription.Temperature,
		ResponseFormat: d.Transcription.ResponseFormat,
		MinDuration:    d.Transcription.MinDuration,
		MaxRetry:       d.Transcription.MaxRetry,
		AddTimestamp:   d.Paste.AddTimestamp,
	}
}

// Server is the settings and monitoring HTTP server.
type Server struct {
	server    *http.Server
	logger    *slog.Logger
	runtime   *config.Runtime
	startTime time.Time
}

// NewServer creates the dashboard server on the configured address.
func NewServer(cfg config.DashboardConfig, runtime *config.Runtime, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		logger:    logger,
		runtime:   runtime,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.logger.Info("starting dashboard server", "address", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard server error", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping dashboard server")
	return s.server.Shutdown(ctx)
}

// handleSettings reads or replaces the runtime settings file. Edits take
// effect on the next recording without a restart.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toDoc(s.runtime.Settings()))

	case http.MethodPost, http.MethodPut:
		doc := toDoc(s.runtime.Settings())
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "invalid settings payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		next := fromDoc(doc)
		if err := validate(next); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.runtime.Save(next); err != nil {
			s.logger.Error("saving runtime settings", "error", err)
			http.Error(w, "could not persist settings", http.StatusInternalServerError)
			return
		}
		s.logger.Info("runtime settings updated",
			"language", next.Language, "model", next.Model, "min_duration", next.MinDuration)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toDoc(next))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func validate(s config.Settings) error {
	if s.Temperature < 0 || s.Temperature > 1 {
		return errBadSetting("temperature must be between 0.0 and 1.0")
	}
	if s.MinDuration < 0 {
		return errBadSetting("min_duration must be >= 0")
	}
	if s.MaxRetry < 1 {
		return errBadSetting("max_retry must be >= 1")
	}
	switch s.ResponseFormat {
	case "text", "json":
	default:
		return errBadSetting("response_format must be text or json")
	}
	return nil
}

type errBadSetting string

func (e errBadSetting) Error() string { return string(e) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"runtime_config": map[string]interface{}{
			"path": s.runtime.Path(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
