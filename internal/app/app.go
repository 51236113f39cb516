// Package app wires key events, the capture session, the transcription
// client and the output sink into the hold-to-record loop.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/pmpmtj/L-speech-to-text/internal/asr"
	"github.com/pmpmtj/L-speech-to-text/internal/config"
	"github.com/pmpmtj/L-speech-to-text/internal/hotkey"
	"github.com/pmpmtj/L-speech-to-text/internal/metrics"
	"github.com/pmpmtj/L-speech-to-text/internal/record"
)

// transcribeAttempts bounds how many times an interval is re-submitted when
// the service answers with an empty transcript.
const transcribeAttempts = 3

// Transcriber turns a WAV payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// Sink delivers a transcript to its destination.
type Sink interface {
	Paste(text string, addTimestamp bool) error
}

// Notifier shows user-facing notifications.
type Notifier interface {
	Notify(title, message string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// Orchestrator drives the record-transcribe-paste pipeline from key edges.
// Edge handling runs on the event goroutine; transcription runs detached so
// a slow request never delays the next recording.
type Orchestrator struct {
	cfg      config.Config
	runtime  config.Provider
	tracker  *hotkey.Tracker
	matcher  *hotkey.Matcher
	session  *record.Session
	asr      Transcriber
	sink     Sink
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewOrchestrator assembles the pipeline. A nil notifier disables
// notifications.
func NewOrchestrator(cfg config.Config, runtime config.Provider, tracker *hotkey.Tracker,
	matcher *hotkey.Matcher, session *record.Session, transcriber Transcriber,
	sink Sink, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if notifier == nil || !cfg.Notification {
		notifier = nopNotifier{}
	}
	return &Orchestrator{
		cfg:      cfg,
		runtime:  runtime,
		tracker:  tracker,
		matcher:  matcher,
		session:  session,
		asr:      transcriber,
		sink:     sink,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Run consumes key events until ctx is cancelled or the event channel
// closes, then drains in-flight transcriptions.
func (o *Orchestrator) Run(ctx context.Context, events <-chan hotkey.KeyEvent) {
	o.logger.Info("ready", "hotkeys", o.cfg.Hotkeys, "cancel_keys", o.cfg.CancelKeys)
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return
		case ev, ok := <-events:
			if !ok {
				o.shutdown()
				return
			}
			o.HandleKey(ctx, ev)
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.session.Discard()
	o.wg.Wait()
	o.logger.Info("pipeline stopped")
}

// Wait blocks until in-flight transcriptions finish. Exposed for tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// HandleKey feeds one key event through the matcher and acts on the
// resulting edges.
func (o *Orchestrator) HandleKey(ctx context.Context, ev hotkey.KeyEvent) {
	for _, edge := range o.matcher.Handle(ev.Sym, ev.Down) {
		switch edge.Type {
		case hotkey.EdgeStart:
			o.onStart(edge.Combo)
		case hotkey.EdgeStop:
			o.onStop(ctx, edge.Combo)
		case hotkey.EdgeCancel:
			o.onCancel(edge.Combo)
		}
	}
}

func (o *Orchestrator) onStart(combo string) {
	if err := o.session.Start(); err != nil {
		o.logger.Error("capture start failed", "combo", combo, "error", err)
		o.notifier.Notify("STT", "Recording failed to start")
		// re-arm for the next full hold; clearing the tracker keeps key
		// repeats of the still-held combination from re-firing the start
		o.matcher.Reset()
		o.tracker.Clear()
		return
	}
	o.metrics.RecordingsStarted.Inc()
	o.logger.Debug("recording started", "combo", combo)
	o.notifier.Notify("STT", "Recording started")
}

func (o *Orchestrator) onStop(ctx context.Context, combo string) {
	duration, err := o.session.Stop()
	dropped := o.session.DroppedBlocks()
	if err != nil {
		// teardown errors do not invalidate already buffered audio
		o.logger.Warn("capture stop reported error", "error", err)
	}

	settings := o.runtime.Settings()
	if duration < settings.MinDuration {
		o.session.Discard()
		o.metrics.RecordDiscard("too_short")
		o.logger.Debug("recording below minimum duration, discarded",
			"duration", duration, "min_duration", settings.MinDuration)
		return
	}

	wavData, err := o.session.Bytes()
	o.session.Discard()
	if err != nil {
		o.logger.Error("encoding capture failed", "error", err)
		o.metrics.RecordDiscard("encode_failed")
		o.notifier.Notify("STT", "Recording could not be encoded")
		return
	}
	o.metrics.RecordRecordingCompleted(duration, dropped)
	o.logger.Info("recording finished", "combo", combo,
		"duration", duration, "bytes", len(wavData), "dropped_blocks", dropped)
	o.notifier.Notify("STT", "Recording finished")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.transcribeAndDeliver(ctx, wavData)
	}()
}

func (o *Orchestrator) onCancel(combo string) {
	o.session.Discard()
	o.tracker.Clear()
	o.metrics.RecordDiscard("cancelled")
	o.logger.Info("recording cancelled", "combo", combo)
	o.notifier.Notify("STT", "Recording cancelled")
}

// transcribeAndDeliver submits the interval, re-submitting on empty
// transcripts, and pastes the first non-empty result.
func (o *Orchestrator) transcribeAndDeliver(ctx context.Context, wavData []byte) {
	for attempt := 1; attempt <= transcribeAttempts; attempt++ {
		start := time.Now()
		text, err := o.asr.Transcribe(ctx, wavData)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			o.metrics.RecordTranscription("error", elapsed)
			o.logger.Error("transcription failed", "error", err)
			var te *asr.TransportError
			if errors.As(err, &te) {
				o.notifier.Notify("STT", "Transcription service unreachable")
			} else {
				o.notifier.Notify("STT", "Transcription failed")
			}
			// release events can get lost while the user reacts to a
			// failure; drop any stuck keys
			o.tracker.Clear()
			return
		}
		if text == "" {
			o.metrics.RecordTranscription("empty", elapsed)
			o.metrics.EmptyTranscripts.Inc()
			o.logger.Debug("empty transcript", "attempt", attempt, "max", transcribeAttempts)
			continue
		}
		o.metrics.RecordTranscription("ok", elapsed)
		o.deliver(text)
		return
	}
	o.logger.Info("no speech recognized")
	o.notifier.Notify("STT", "No speech recognized")
}

func (o *Orchestrator) deliver(text string) {
	addTimestamp := o.runtime.Settings().AddTimestamp
	if err := o.sink.Paste(text, addTimestamp); err != nil {
		o.metrics.PasteFailures.Inc()
		o.logger.Error("paste failed", "error", err)
		o.notifier.Notify("STT", "Paste failed")
		return
	}
	o.metrics.PastesDelivered.Inc()
	o.logger.Info("transcript delivered", "chars", len(text))
}

// NewHTTPClient builds the shared HTTP client for the transcription
// service.
func NewHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// RunFileMode transcribes an existing WAV file and writes the result to a
// text file next to it, or to outputPath when given.
func RunFileMode(cfg config.Config, runtime config.Provider, inputPath, outputPath string, logger *slog.Logger) error {
	wavData, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input '%s': %w", inputPath, err)
	}

	client, err := asr.New(cfg, runtime, NewHTTPClient(cfg), logger)
	if err != nil {
		return err
	}
	text, err := client.Transcribe(context.Background(), wavData)
	if err != nil {
		return err
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write output '%s': %w", outPath, err)
	}
	logger.Info("transcription written", "input", inputPath, "output", outPath, "chars", len(text))
	return nil
}
