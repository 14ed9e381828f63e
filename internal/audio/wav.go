package audio

import (
	"fmt"
	"io"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadWAV decodes a PCM WAV file and returns mono 16kHz float32 samples.
func LoadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << uint(bitDepth-1))
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	return Resample(Downmix(samples, channels), buf.Format.SampleRate, TargetRate), nil
}

// WriteWAV writes mono float32 samples as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	pcm := Float32ToInt16(samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize %s: %w", path, err)
	}
	return f.Close()
}

// FileSource replays a fixed buffer of mono 16kHz samples through the
// Source interface. The final partial chunk is padded with silence.
type FileSource struct {
	mu      sync.Mutex
	samples []float32
	pos     int
}

// NewFileSource returns a Source over samples.
func NewFileSource(samples []float32) *FileSource {
	return &FileSource{samples: samples}
}

// Read returns the next n samples, or io.EOF once the buffer is exhausted.
func (s *FileSource) Read(n int) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := s.pos + n
	if end > len(s.samples) {
		end = len(s.samples)
	}
	chunk := make([]float32, end-s.pos)
	copy(chunk, s.samples[s.pos:end])
	s.pos = end
	return fitLength(chunk, n), nil
}
