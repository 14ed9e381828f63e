package transcribe

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	model whisper.Model
	opts  Options

	// whisper contexts share model state; one decode at a time.
	mu sync.Mutex
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, opts Options) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	if opts.Language != "" && opts.Language != "en" && !model.IsMultilingual() {
		slog.Warn("model is English-only, language setting ignored", "language", opts.Language)
		opts.Language = ""
	}
	return &WhisperTranscriber{model: model, opts: opts}, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples to text.
// Whisper annotations such as [BLANK_AUDIO] are removed.
func (t *WhisperTranscriber) Process(samples []float32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if t.opts.Language != "" {
		if err := ctx.SetLanguage(t.opts.Language); err != nil {
			slog.Warn("transcribe: failed to set language", "language", t.opts.Language, "error", err)
		}
	}
	if t.opts.Threads > 0 {
		ctx.SetThreads(t.opts.Threads)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return CleanText(strings.Join(segments, " ")), nil
}
