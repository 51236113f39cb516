package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the subset of configuration that may change while the program
// runs. Values are re-read from the runtime file before every transcription
// request so edits made through the dashboard take effect without a restart.
type Settings struct {
	Language       string
	Model          string
	Prompt         string
	Temperature    float64
	ResponseFormat string
	MinDuration    float64
	MaxRetry       int
	AddTimestamp   bool
}

// Provider yields the current runtime settings.
type Provider interface {
	Settings() Settings
}

// runtimeFile mirrors the on-disk runtime settings document. Pointer fields
// distinguish "absent" from zero values so a partial file only overrides what
// it names.
type runtimeFile struct {
	Transcription struct {
		Language       *string  `json:"language,omitempty"`
		Model          *string  `json:"model,omitempty"`
		Prompt         *string  `json:"prompt,omitempty"`
		Temperature    *float64 `json:"temperature,omitempty"`
		ResponseFormat *string  `json:"response_format,omitempty"`
		MinDuration    *float64 `json:"min_duration,omitempty"`
		MaxRetry       *int     `json:"max_retry,omitempty"`
	} `json:"transcription"`
	Paste struct {
		AddTimestamp *bool `json:"add_timestamp,omitempty"`
	} `json:"paste"`
}

// Runtime reads live settings from a JSON file, falling back to the base
// config for anything the file omits. A missing or unreadable file is not an
// error; the base values apply.
type Runtime struct {
	path string
	base Settings

	mu   sync.Mutex
	last Settings
}

// NewRuntime builds a Runtime over the config's runtime file path.
func NewRuntime(cfg *Config) *Runtime {
	base := Settings{
		Language:       cfg.Language,
		Model:          cfg.Model,
		Prompt:         cfg.Prompt,
		Temperature:    cfg.Temperature,
		ResponseFormat: cfg.ResponseFormat,
		MinDuration:    cfg.MinDuration,
		MaxRetry:       cfg.MaxRetry,
		AddTimestamp:   cfg.AddTimestamp,
	}
	return &Runtime{path: cfg.RuntimeConfigPath, base: base, last: base}
}

// Settings re-reads the runtime file and returns the effective settings.
func (r *Runtime) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.base
	if r.path == "" {
		return s
	}
	b, err := os.ReadFile(r.path)
	if err != nil {
		// keep the last good values when the file disappears mid-run
		return r.last
	}
	var f runtimeFile
	if err := json.Unmarshal(b, &f); err != nil {
		return r.last
	}
	t := f.Transcription
	if t.Language != nil {
		s.Language = *t.Language
	}
	if t.Model != nil {
		s.Model = *t.Model
	}
	if t.Prompt != nil {
		s.Prompt = *t.Prompt
	}
	if t.Temperature != nil {
		s.Temperature = *t.Temperature
	}
	if t.ResponseFormat != nil {
		s.ResponseFormat = *t.ResponseFormat
	}
	if t.MinDuration != nil {
		s.MinDuration = *t.MinDuration
	}
	if t.MaxRetry != nil {
		s.MaxRetry = *t.MaxRetry
	}
	if f.Paste.AddTimestamp != nil {
		s.AddTimestamp = *f.Paste.AddTimestamp
	}
	r.last = s
	return s
}

// Save writes the full settings document to the runtime file atomically.
// Used by the dashboard when the user saves edits.
func (r *Runtime) Save(s Settings) error {
	if r.path == "" {
		return fmt.Errorf("no runtime config path configured")
	}
	var f runtimeFile
	f.Transcription.Language = &s.Language
	f.Transcription.Model = &s.Model
	f.Transcription.Prompt = &s.Prompt
	f.Transcription.Temperature = &s.Temperature
	f.Transcription.ResponseFormat = &s.ResponseFormat
	f.Transcription.MinDuration = &s.MinDuration
	f.Transcription.MaxRetry = &s.MaxRetry
	f.Paste.AddTimestamp = &s.AddTimestamp

	b, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".runtime-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
	return nil
}

// Path returns the runtime file path.
func (r *Runtime) Path() string {
	return r.path
}

// Static is a Provider returning fixed settings. Used by file mode and tests.
type Static Settings

func (s Static) Settings() Settings {
	return Settings(s)
}
