package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pmpmtj/L-speech-to-text/internal/app"
	"github.com/pmpmtj/L-speech-to-text/internal/asr"
	"github.com/pmpmtj/L-speech-to-text/internal/clipboard"
	"github.com/pmpmtj/L-speech-to-text/internal/config"
	"github.com/pmpmtj/L-speech-to-text/internal/dashboard"
	"github.com/pmpmtj/L-speech-to-text/internal/hotkey"
	"github.com/pmpmtj/L-speech-to-text/internal/metrics"
	"github.com/pmpmtj/L-speech-to-text/internal/notify"
	"github.com/pmpmtj/L-speech-to-text/internal/record"
)

type clipboardSink struct{}

func (clipboardSink) Paste(text string, addTimestamp bool) error {
	return clipboard.Paste(text, addTimestamp)
}

type desktopNotifier struct{}

func (desktopNotifier) Notify(title, message string) {
	notify.Notify(title, message)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config JSON")
	filePath := fs.String("file", "", "transcribe an existing WAV file instead of recording")
	fv := config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if _, err := os.Stat(*configPath); os.IsNotExist(err) && !fv.AnySet() && *filePath == "" {
		if err := config.SaveDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "could not write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default config to %s; edit it (or set OPENAI_API_KEY) and run again\n", *configPath)
		return
	}

	loadPath := *configPath
	if _, err := os.Stat(loadPath); os.IsNotExist(err) {
		loadPath = ""
	}
	cfg, err := config.Load(loadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	runtime := config.NewRuntime(&cfg)

	if *filePath != "" {
		if err := app.RunFileMode(cfg, runtime, *filePath, fv.OutputPath, logger); err != nil {
			logger.Error("file mode failed", "error", err)
			os.Exit(1)
		}
		return
	}

	client, err := asr.New(cfg, runtime, app.NewHTTPClient(cfg), logger.With("component", "asr"))
	if err != nil {
		logger.Error("transcription client init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tracker := hotkey.NewTracker()
	matcher := hotkey.NewMatcher(combinations(cfg.Hotkeys), cfg.CancelKeys, tracker)
	session := record.NewSession(cfg, nil, logger.With("component", "record"))
	orch := app.NewOrchestrator(cfg, runtime, tracker, matcher, session,
		client, clipboardSink{}, desktopNotifier{}, m, logger.With("component", "app"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dashboard.Enabled {
		srv := dashboard.NewServer(cfg.Dashboard, runtime, m, logger.With("component", "dashboard"))
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	events := hotkey.Listen(ctx, logger.With("component", "hotkey"))
	orch.Run(ctx, events)
}

func combinations(hks []config.Hotkey) []hotkey.Combination {
	var combos []hotkey.Combination
	for _, h := range hks {
		if !h.Enabled {
			continue
		}
		combos = append(combos, hotkey.Combination{Name: h.Name, Keys: h.Keys})
	}
	return combos
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
