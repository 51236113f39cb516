package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Hotkey is one named key combination that bounds a recording interval
// while held.
type Hotkey struct {
	Name        string   `json:"name"`
	Keys        []string `json:"keys"`
	Description string   `json:"description"`
	Enabled     bool     `json:"enabled"`
}

// DashboardConfig configures the optional settings/status HTTP server.
type DashboardConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config holds configurable parameters.
type Config struct {
	APIEndpoint    string  `json:"api_endpoint"`
	Token          string  `json:"token"`
	Model          string  `json:"model"`
	Language       string  `json:"language"`
	Prompt         string  `json:"prompt"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat string  `json:"response_format"`
	TextPath       string  `json:"text_path"`

	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	BitDepth   int `json:"bit_depth"`
	BlockSize  int `json:"block_size"`
	QueueSize  int `json:"queue_size"`

	MinDuration    float64 `json:"min_duration"`
	RequestTimeout int     `json:"request_timeout"`
	MaxRetry       int     `json:"max_retry"`
	EnableHTTP2    bool    `json:"enable_http2"`
	VerifySSL      bool    `json:"verify_ssl"`

	Hotkeys    []Hotkey `json:"hotkeys"`
	CancelKeys []string `json:"cancel_keys"`

	AddTimestamp      bool   `json:"add_timestamp"`
	Notification      bool   `json:"notification"`
	DebugAudioDir     string `json:"debug_audio_dir"`
	RuntimeConfigPath string `json:"runtime_config_path"`

	Dashboard DashboardConfig `json:"dashboard"`
	Logging   LoggingConfig   `json:"logging"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		APIEndpoint:    "https://api.openai.com/v1/audio/transcriptions",
		Token:          "",
		Model:          "whisper-1",
		Language:       "en",
		Prompt:         "",
		Temperature:    0.0,
		ResponseFormat: "text",
		TextPath:       "text",

		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
		BlockSize:  1024,
		QueueSize:  64,

		MinDuration:    1.25,
		RequestTimeout: 30,
		MaxRetry:       3,
		EnableHTTP2:    true,
		VerifySSL:      true,

		Hotkeys: []Hotkey{
			{
				Name:        "default",
				Keys:        []string{"ctrl", "alt"},
				Description: "Default hold-to-record combination",
				Enabled:     true,
			},
		},
		CancelKeys: []string{"esc"},

		AddTimestamp:      false,
		Notification:      false,
		DebugAudioDir:     "",
		RuntimeConfigPath: "runtime_config.json",

		Dashboard: DashboardConfig{Enabled: false, Address: "127.0.0.1:8642"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load loads config from a JSON file if provided. Missing token falls back to
// the OPENAI_API_KEY environment variable.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := json.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid channels: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d (must be > 0)", cfg.SampleRate)
	}
	if cfg.BitDepth != 16 {
		return fmt.Errorf("invalid bit_depth: %d (capture path is 16-bit PCM)", cfg.BitDepth)
	}
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("invalid block_size: %d (must be > 0)", cfg.BlockSize)
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("invalid queue_size: %d (must be > 0)", cfg.QueueSize)
	}
	if cfg.MinDuration < 0 {
		return fmt.Errorf("invalid min_duration: %v (must be >= 0)", cfg.MinDuration)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid max_retry: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return fmt.Errorf("invalid temperature: %v (allowed 0.0..1.0)", cfg.Temperature)
	}
	switch strings.ToLower(cfg.ResponseFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid response_format: %s (allowed: text, json)", cfg.ResponseFormat)
	}

	enabled := 0
	for i, h := range cfg.Hotkeys {
		if len(h.Keys) == 0 {
			return fmt.Errorf("hotkey %q (index %d) has no keys", h.Name, i)
		}
		seen := make(map[string]bool, len(h.Keys))
		for _, k := range h.Keys {
			if k == "" {
				return fmt.Errorf("hotkey %q has an empty key symbol", h.Name)
			}
			if seen[k] {
				return fmt.Errorf("hotkey %q repeats key %q", h.Name, k)
			}
			seen[k] = true
		}
		if h.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled hotkey combinations configured")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (allowed: debug, info, warn, error)", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s (allowed: text, json)", cfg.Logging.Format)
	}
	if cfg.Dashboard.Enabled && cfg.Dashboard.Address == "" {
		return fmt.Errorf("dashboard enabled but no address configured")
	}
	return nil
}
