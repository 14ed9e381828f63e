// Package assistant ties transcripts to commands. It tracks whether the
// assistant is awake, reacts to wake phrases, and runs parsed commands
// through an executor, speaking each reply.
package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/nova/internal/history"
	"github.com/chaz8081/nova/internal/intent"
	"github.com/chaz8081/nova/internal/listen"
)

// Speaker says replies aloud.
type Speaker interface {
	Say(text string) error
}

// Executor runs an intent and returns the reply.
type Executor interface {
	Execute(in intent.Intent) (string, error)
}

// Recorder stores handled commands.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options controls wake behaviour.
type Options struct {
	BypassWake bool          // always awake
	Timeout    time.Duration // awake window without a command, 0 = no limit
}

// Assistant is safe for concurrent use.
type Assistant struct {
	mu         sync.Mutex
	wake       *intent.WakeDetector
	parser     *intent.Parser
	awake      bool
	awakeSince time.Time

	opts    Options
	exec    Executor
	speaker Speaker
	rec     Recorder
	now     func() time.Time
}

// New creates an Assistant. rec may be nil.
func New(wake *intent.WakeDetector, parser *intent.Parser, exec Executor, speaker Speaker, rec Recorder, opts Options) *Assistant {
	return &Assistant{
		wake:    wake,
		parser:  parser,
		awake:   opts.BypassWake,
		opts:    opts,
		exec:    exec,
		speaker: speaker,
		rec:     rec,
		now:     time.Now,
	}
}

// Handle routes a listener result to HandlePartial or HandleFinal.
func (a *Assistant) Handle(ctx context.Context, r listen.Result) {
	if r.Final {
		a.HandleFinal(ctx, r.Text)
		return
	}
	a.HandlePartial(r.Text)
}

// Awake reports whether commands are currently accepted.
func (a *Assistant) Awake() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireLocked()
	return a.awake
}

// Wake starts accepting commands, as if a wake phrase was heard.
func (a *Assistant) Wake() {
	a.mu.Lock()
	was := a.awake
	a.wakeLocked()
	a.mu.Unlock()
	if !was {
		a.say("Listening")
	}
}

// Sleep stops accepting commands until the next wake phrase. It has no
// effect when wake detection is bypassed.
func (a *Assistant) Sleep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.awake && !a.opts.BypassWake {
		slog.Info("Sleeping")
	}
	a.awake = a.opts.BypassWake
}

// Reload swaps the wake detector and parser, for configuration changes.
func (a *Assistant) Reload(wake *intent.WakeDetector, parser *intent.Parser) {
	a.mu.Lock()
	a.wake = wake
	a.parser = parser
	a.mu.Unlock()
	slog.Info("Vocabulary reloaded")
}

// HandlePartial reacts to an in-progress transcript. A wake phrase wakes
// the assistant early so the user hears "Listening" while still talking.
func (a *Assistant) HandlePartial(text string) {
	wake, parser := a.vocabulary()
	norm := parser.Clean(intent.Normalize(text))
	if norm == "" {
		return
	}

	a.mu.Lock()
	a.expireLocked()
	woke := false
	if !a.awake && wake.Detect(norm) {
		a.wakeLocked()
		woke = true
	}
	a.mu.Unlock()

	if woke {
		a.say("Listening")
	}
}

// HandleFinal processes a complete utterance.
func (a *Assistant) HandleFinal(ctx context.Context, text string) {
	wake, parser := a.vocabulary()
	norm := parser.Clean(intent.Normalize(text))
	if norm == "" {
		return
	}
	slog.Debug("Heard", "text", norm)

	a.mu.Lock()
	a.expireLocked()
	wasAwake := a.awake
	if !wasAwake {
		if !wake.Detect(norm) {
			a.mu.Unlock()
			slog.Debug("Ignored while asleep", "text", norm)
			return
		}
		a.wakeLocked()
	}
	a.mu.Unlock()

	rest := wake.Strip(norm)
	if rest == "" {
		if !wasAwake {
			a.say("Ready")
		}
		return
	}

	in := parser.Classify(rest)
	if in.Kind == intent.None {
		slog.Debug("Ignored chatter", "text", rest)
		return
	}
	if in.Kind == intent.Type {
		// Type what was said, not the lowercased matching form.
		if raw, ok := intent.TypedText(text); ok {
			in.Target = raw
		}
	}
	slog.Info("Command", "kind", in.Kind.String(), "target", in.Target)

	reply, err := a.exec.Execute(in)
	if err != nil {
		slog.Warn("Command failed", "kind", in.Kind.String(), "error", err)
	}
	a.say(reply)
	a.record(ctx, norm, in, reply, err)

	a.mu.Lock()
	a.awake = a.opts.BypassWake
	a.mu.Unlock()
}

func (a *Assistant) vocabulary() (*intent.WakeDetector, *intent.Parser) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wake, a.parser
}

func (a *Assistant) wakeLocked() {
	if !a.awake {
		slog.Info("Awake")
	}
	a.awake = true
	a.awakeSince = a.now()
}

func (a *Assistant) expireLocked() {
	if !a.awake || a.opts.BypassWake || a.opts.Timeout <= 0 {
		return
	}
	if a.now().Sub(a.awakeSince) > a.opts.Timeout {
		slog.Info("Wake timed out")
		a.awake = false
	}
}

func (a *Assistant) say(text string) {
	if text == "" {
		return
	}
	if err := a.speaker.Say(text); err != nil {
		slog.Warn("Speech failed", "error", err)
	}
}

func (a *Assistant) record(ctx context.Context, heard string, in intent.Intent, reply string, execErr error) {
	if a.rec == nil {
		return
	}
	e := history.Entry{
		Heard:  heard,
		Kind:   in.Kind.String(),
		Target: in.Target,
		Reply:  reply,
		At:     a.now(),
	}
	if execErr != nil {
		e.Error = execErr.Error()
	}
	if err := a.rec.Record(ctx, e); err != nil {
		slog.Warn("Recording history failed", "error", err)
	}
}
