// Package transcribe provides local speech-to-text using whisper.cpp.
package transcribe

import (
	"errors"
	"fmt"
	"os"
)

// ErrModelNotFound is returned when the configured model file does not exist.
var ErrModelNotFound = errors.New("transcribe: model not found")

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Process transcribes mono 16kHz float32 audio samples to text.
	Process(samples []float32) (string, error)
	// Close releases backend resources.
	Close() error
}

// Options tunes whisper decoding.
type Options struct {
	Language string // "en", "de", "auto"; empty keeps the model default
	Threads  uint   // 0 = whisper default
}

// New loads the whisper model at modelPath.
func New(modelPath string, opts Options) (Transcriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}
	return NewWhisperTranscriber(modelPath, opts)
}
