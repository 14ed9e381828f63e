// Package listen turns a continuous audio source into partial and final
// transcripts. Audio is taken in fixed chunks; chunks above the silence
// threshold accumulate into an utterance that is finalized on the first
// silent chunk or when it reaches the maximum length.
package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chaz8081/nova/internal/audio"
	"github.com/chaz8081/nova/internal/transcribe"
)

// Result is one transcript emitted by the listener.
type Result struct {
	Text     string
	Final    bool
	Duration time.Duration // audio covered by Text
}

// Options configures chunking and utterance detection.
type Options struct {
	ChunkSeconds        float64
	PollInterval        time.Duration
	SilenceThreshold    float64
	MaxUtteranceSeconds float64
	Partials            bool   // transcribe the growing utterance after each speech chunk
	DumpDir             string // write each finalized utterance here as WAV
}

// Listener runs the capture -> transcribe loop.
type Listener struct {
	src  audio.Source
	tr   transcribe.Transcriber
	opts Options

	chunkSamples     int
	maxUtteranceSize int

	utterance []float32
	dumpSeq   int
}

// New creates a Listener reading from src and transcribing with tr.
func New(src audio.Source, tr transcribe.Transcriber, opts Options) (*Listener, error) {
	chunkSamples := int(opts.ChunkSeconds * audio.TargetRate)
	if chunkSamples < 1 {
		return nil, fmt.Errorf("listen: chunk of %v s holds no samples", opts.ChunkSeconds)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.MaxUtteranceSeconds < opts.ChunkSeconds {
		opts.MaxUtteranceSeconds = opts.ChunkSeconds
	}
	if opts.DumpDir != "" {
		if err := os.MkdirAll(opts.DumpDir, 0755); err != nil {
			return nil, fmt.Errorf("listen: create dump dir: %w", err)
		}
	}
	return &Listener{
		src:              src,
		tr:               tr,
		opts:             opts,
		chunkSamples:     chunkSamples,
		maxUtteranceSize: int(opts.MaxUtteranceSeconds * audio.TargetRate),
	}, nil
}

// Run polls the source until ctx is cancelled or the source is exhausted,
// calling emit for every non-empty transcript. Emit is called from the Run
// goroutine. A pending utterance is finalized before Run returns on io.EOF.
func (l *Listener) Run(ctx context.Context, emit func(Result)) error {
	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything already buffered before sleeping again.
		for {
			chunk, err := l.src.Read(l.chunkSamples)
			if errors.Is(err, io.EOF) {
				l.finalize(emit)
				return nil
			}
			if err != nil {
				return fmt.Errorf("listen: read audio: %w", err)
			}
			if chunk == nil {
				break
			}
			l.handleChunk(chunk, emit)
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// handleChunk advances the utterance state machine by one chunk.
func (l *Listener) handleChunk(chunk []float32, emit func(Result)) {
	level := audio.RMS(chunk)
	speech := level >= l.opts.SilenceThreshold

	if !speech {
		if len(l.utterance) > 0 {
			slog.Debug("silence after speech, finalizing", "rms", level)
			l.finalize(emit)
		}
		return
	}

	l.utterance = append(l.utterance, chunk...)
	if len(l.utterance) >= l.maxUtteranceSize {
		slog.Debug("utterance reached max length, finalizing", "seconds", l.seconds(l.utterance))
		l.finalize(emit)
		return
	}

	if l.opts.Partials {
		text, err := l.tr.Process(l.utterance)
		if err != nil {
			slog.Error("partial transcription failed", "error", err)
			return
		}
		if text != "" {
			emit(Result{Text: text, Duration: l.duration(l.utterance)})
		}
	}
}

// finalize transcribes and clears the pending utterance, if any.
func (l *Listener) finalize(emit func(Result)) {
	if len(l.utterance) == 0 {
		return
	}
	samples := l.utterance
	l.utterance = nil

	l.dump(samples)

	start := time.Now()
	text, err := l.tr.Process(samples)
	if err != nil {
		slog.Error("transcription failed", "error", err)
		return
	}
	slog.Debug("utterance transcribed", "seconds", l.seconds(samples), "took", time.Since(start).Round(time.Millisecond), "text", text)
	if text == "" {
		return
	}
	emit(Result{Text: text, Final: true, Duration: l.duration(samples)})
}

func (l *Listener) dump(samples []float32) {
	if l.opts.DumpDir == "" {
		return
	}
	l.dumpSeq++
	name := fmt.Sprintf("utterance-%s-%03d.wav", time.Now().Format("20060102_150405"), l.dumpSeq)
	path := filepath.Join(l.opts.DumpDir, name)
	if err := audio.WriteWAV(path, samples, audio.TargetRate); err != nil {
		slog.Warn("failed to dump utterance", "path", path, "error", err)
	}
}

func (l *Listener) seconds(samples []float32) float64 {
	return float64(len(samples)) / audio.TargetRate
}

func (l *Listener) duration(samples []float32) time.Duration {
	return time.Duration(l.seconds(samples) * float64(time.Second))
}
