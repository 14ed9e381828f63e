package audio

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"
)

func TestWriteAndLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	in := make([]float32, TargetRate/2) // 0.5s
	for i := range in {
		in[i] = 0.25 * float32(math.Sin(2*math.Pi*220*float64(i)/TargetRate))
	}

	if err := WriteWAV(path, in, TargetRate); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	out, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("LoadWAV() returned %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, out[i], in[i])
		}
	}
}

func TestLoadWAVResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hi-rate.wav")
	if err := WriteWAV(path, make([]float32, 48000), 48000); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	out, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV() error = %v", err)
	}
	if diff := len(out) - TargetRate; diff < -64 || diff > 64 {
		t.Errorf("LoadWAV() of 1s@48kHz returned %d samples, want ~%d", len(out), TargetRate)
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := LoadWAV("/nonexistent/file.wav"); err == nil {
		t.Error("LoadWAV() should fail for a missing file")
	}
}

func TestFileSource(t *testing.T) {
	src := NewFileSource([]float32{1, 2, 3, 4, 5})

	chunk, err := src.Read(2)
	if err != nil || len(chunk) != 2 || chunk[0] != 1 || chunk[1] != 2 {
		t.Fatalf("first Read() = %v, %v", chunk, err)
	}
	chunk, _ = src.Read(2)
	if chunk[0] != 3 || chunk[1] != 4 {
		t.Errorf("second Read() = %v, want [3 4]", chunk)
	}

	// Final short chunk is padded with silence.
	chunk, err = src.Read(2)
	if err != nil {
		t.Fatalf("third Read() error = %v", err)
	}
	if len(chunk) != 2 || chunk[0] != 5 || chunk[1] != 0 {
		t.Errorf("third Read() = %v, want [5 0]", chunk)
	}

	if _, err := src.Read(2); !errors.Is(err, io.EOF) {
		t.Errorf("Read() after end error = %v, want io.EOF", err)
	}
}
