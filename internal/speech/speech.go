// Package speech speaks replies aloud through the platform's
// text-to-speech command.
package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/chaz8081/nova/internal/config"
)

// ErrNoEngine is returned when no text-to-speech command is installed.
var ErrNoEngine = errors.New("speech: no text-to-speech engine found")

const sapiScript = `Add-Type -AssemblyName System.Speech; ` +
	`$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ` +
	`$s.Speak([Console]::In.ReadToEnd())`

// engine is a command line that speaks text, either as its final
// argument or read from stdin.
type engine struct {
	argv  []string
	stdin bool
}

// Speaker says text aloud, one utterance at a time.
type Speaker struct {
	mu  sync.Mutex
	eng *engine
	run func(eng *engine, text string) error
}

// New picks an engine for cfg. When speech is disabled or no engine is
// found, the returned Speaker only logs; the error reports why.
func New(cfg config.SpeechConfig) (*Speaker, error) {
	s := &Speaker{run: runEngine}
	if !cfg.Enabled {
		return s, nil
	}
	eng, err := pickEngine(cfg, runtime.GOOS, exec.LookPath)
	if err != nil {
		return s, err
	}
	s.eng = eng
	return s, nil
}

// Engine returns the program used to speak, or "" when speech is off.
func (s *Speaker) Engine() string {
	if s.eng == nil {
		return ""
	}
	return s.eng.argv[0]
}

// Say speaks text and blocks until it has been spoken.
func (s *Speaker) Say(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	slog.Info("Nova", "says", text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	if err := s.run(s.eng, text); err != nil {
		return fmt.Errorf("speech: %s: %w", s.eng.argv[0], err)
	}
	return nil
}

func pickEngine(cfg config.SpeechConfig, goos string, lookPath func(string) (string, error)) (*engine, error) {
	if len(cfg.Command) > 0 {
		if _, err := lookPath(cfg.Command[0]); err != nil {
			return nil, fmt.Errorf("speech: configured command %q: %w", cfg.Command[0], err)
		}
		return &engine{argv: append([]string(nil), cfg.Command...)}, nil
	}

	for _, eng := range candidates(goos, cfg.Rate) {
		if _, err := lookPath(eng.argv[0]); err == nil {
			return eng, nil
		}
	}
	return nil, ErrNoEngine
}

// candidates lists engines in order of preference. rate is words per
// minute; 0 keeps the engine default.
func candidates(goos string, rate int) []*engine {
	withRate := func(name, flag string) *engine {
		e := &engine{argv: []string{name}}
		if rate > 0 {
			e.argv = append(e.argv, flag, strconv.Itoa(rate))
		}
		return e
	}

	switch goos {
	case "darwin":
		return []*engine{withRate("say", "-r")}
	case "windows":
		return []*engine{
			{argv: []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", sapiScript}, stdin: true},
		}
	default:
		return []*engine{
			withRate("espeak-ng", "-s"),
			withRate("espeak", "-s"),
			{argv: []string{"spd-say", "-w"}},
		}
	}
}

func runEngine(eng *engine, text string) error {
	args := eng.argv[1:]
	if !eng.stdin {
		args = append(append([]string(nil), args...), text)
	}
	cmd := exec.Command(eng.argv[0], args...) //nolint:gosec // engine comes from a fixed list or the user's config
	if eng.stdin {
		cmd.Stdin = strings.NewReader(text)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
