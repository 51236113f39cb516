// Package record captures microphone audio between hotkey edges and turns
// it into an in-memory WAV payload.
package record

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/pmpmtj/L-speech-to-text/internal/config"
)

// State represents capture session state.
type State int

const (
	StateStopped State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// Stream is a running audio input delivering blocks to a callback.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Opener opens an audio input stream that invokes cb with each captured
// block. The callback runs on the audio thread and must not block.
type Opener func(sampleRate, channels, blockSize int, cb func([]int16)) (Stream, error)

type paStream struct {
	*portaudio.Stream
}

func (s paStream) Close() error {
	err := s.Stream.Close()
	portaudio.Terminate()
	return err
}

// PortAudioOpener opens the default input device in callback mode.
func PortAudioOpener(sampleRate, channels, blockSize int, cb func([]int16)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), blockSize, cb)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	return paStream{stream}, nil
}

// Session accumulates captured audio for one hold-to-record interval. The
// audio callback hands blocks to a bounded queue; a single worker goroutine
// drains the queue into the buffer, so the buffer has one writer. When the
// queue is full the block is dropped and counted rather than blocking the
// audio thread.
type Session struct {
	cfg    config.Config
	opener Opener
	logger *slog.Logger

	accepting atomic.Int32
	dropped   atomic.Int64

	mu         sync.Mutex
	state      State
	stream     Stream
	queue      chan []int16
	workerDone chan struct{}
	chunks     [][]int16
	samples    int
}

// NewSession creates a capture session using the given stream opener.
func NewSession(cfg config.Config, opener Opener, logger *slog.Logger) *Session {
	if opener == nil {
		opener = PortAudioOpener
	}
	return &Session{cfg: cfg, opener: opener, logger: logger, state: StateStopped}
}

// Start begins a new capture interval. Starting while already recording or
// paused is a no-op. On failure the session remains stopped with no
// buffered audio.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.queue = make(chan []int16, s.cfg.QueueSize)
	s.workerDone = make(chan struct{})
	s.chunks = nil
	s.samples = 0
	s.dropped.Store(0)
	queue := s.queue
	done := s.workerDone
	s.mu.Unlock()

	go s.drain(queue, done)

	s.accepting.Store(1)
	stream, err := s.opener(s.cfg.SampleRate, s.cfg.Channels, s.cfg.BlockSize, s.capture)
	if err != nil {
		s.accepting.Store(0)
		s.stopWorker(queue, done)
		return fmt.Errorf("open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		s.accepting.Store(0)
		_ = stream.Close()
		s.stopWorker(queue, done)
		return fmt.Errorf("start capture stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.state = StateRecording
	s.mu.Unlock()
	return nil
}

// capture runs on the audio thread. It copies the block and hands it to the
// worker without blocking.
func (s *Session) capture(in []int16) {
	if s.accepting.Load() == 0 {
		return
	}
	block := make([]int16, len(in))
	copy(block, in)
	select {
	case s.queue <- block:
	default:
		s.dropped.Add(1)
	}
}

// drain is the sole writer of the capture buffer. A nil block is the stop
// sentinel.
func (s *Session) drain(queue chan []int16, done chan struct{}) {
	defer close(done)
	for block := range queue {
		if block == nil {
			return
		}
		s.mu.Lock()
		s.chunks = append(s.chunks, block)
		s.samples += len(block)
		s.mu.Unlock()
	}
}

// Pause suspends capture. Audio arriving while paused is discarded and does
// not count toward duration. Pausing while not recording is a no-op.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}
	s.accepting.Store(0)
	s.state = StatePaused
}

// Resume continues capture after a pause. Resuming while not paused is a
// no-op.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.accepting.Store(1)
	s.state = StateRecording
}

// Stop finalizes the capture interval and returns the recorded duration in
// seconds. The buffered audio stays available through Bytes until Discard.
// Stopping a stopped session returns the last duration.
func (s *Session) Stop() (float64, error) {
	s.mu.Lock()
	if s.state == StateStopped {
		d := s.durationLocked()
		s.mu.Unlock()
		s.logger.Warn("stop called on a stopped session")
		return d, nil
	}
	err := s.stopLocked()
	d := s.durationLocked()
	s.mu.Unlock()
	if dropped := s.dropped.Load(); dropped > 0 {
		s.logger.Warn("capture queue overflow", "dropped_blocks", dropped)
	}
	return d, err
}

// stopLocked tears down the stream and joins the worker. Callers hold mu.
func (s *Session) stopLocked() error {
	s.accepting.Store(0)
	var err error
	if s.stream != nil {
		if e := s.stream.Stop(); e != nil {
			err = fmt.Errorf("stop capture stream: %w", e)
		}
		if e := s.stream.Close(); e != nil && err == nil {
			err = fmt.Errorf("close capture stream: %w", e)
		}
		s.stream = nil
	}
	queue := s.queue
	done := s.workerDone
	s.state = StateStopped

	// the worker takes mu per block, so release it for the join
	s.mu.Unlock()
	s.stopWorker(queue, done)
	s.mu.Lock()
	return err
}

func (s *Session) stopWorker(queue chan []int16, done chan struct{}) {
	select {
	case queue <- nil:
	case <-time.After(2 * time.Second):
		s.logger.Error("capture worker queue wedged")
		return
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.logger.Error("capture worker did not exit")
	}
}

// Discard drops any buffered audio. If the session is still recording or
// paused it is stopped first.
func (s *Session) Discard() {
	s.mu.Lock()
	if s.state != StateStopped {
		_ = s.stopLocked()
	}
	s.chunks = nil
	s.samples = 0
	s.mu.Unlock()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration returns the captured duration in seconds, derived from the
// sample count rather than wall-clock time so pauses and dropped blocks do
// not inflate it.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

func (s *Session) durationLocked() float64 {
	return float64(s.samples) / float64(s.cfg.SampleRate*s.cfg.Channels)
}

// DroppedBlocks reports how many blocks were dropped on queue overflow
// during the last interval.
func (s *Session) DroppedBlocks() int64 {
	return s.dropped.Load()
}

// Bytes serializes the buffered audio as a WAV container.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()
	return EncodeWAV(chunks, s.cfg.SampleRate, s.cfg.BitDepth, s.cfg.Channels)
}
