package record

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// memWriter is an in-memory io.WriteSeeker so the WAV encoder can patch the
// RIFF header without touching disk.
type memWriter struct {
	buf []byte
	pos int
}

func (m *memWriter) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		if need > cap(m.buf) {
			grown := make([]byte, len(m.buf), need*2)
			copy(grown, m.buf)
			m.buf = grown
		}
		m.buf = m.buf[:need]
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriter) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position: %d", abs)
	}
	m.pos = int(abs)
	return abs, nil
}

// EncodeWAV serializes captured PCM blocks into a WAV container. An empty
// capture yields a valid container with no sample data.
func EncodeWAV(chunks [][]int16, sampleRate, bitDepth, channels int) ([]byte, error) {
	w := &memWriter{}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, 1)
	format := &audio.Format{NumChannels: channels, SampleRate: sampleRate}

	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		data := make([]int, len(chunk))
		for i, v := range chunk {
			data[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: data, SourceBitDepth: bitDepth}
		if err := enc.Write(buf); err != nil {
			return nil, fmt.Errorf("wav write failed: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close failed: %w", err)
	}
	return w.buf, nil
}
