package speech

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/nova/internal/config"
)

func lookPathFor(installed ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestPickEngine(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.SpeechConfig
		goos      string
		installed []string
		wantArgv  string
		wantStdin bool
		wantErr   bool
	}{
		{"mac say", config.SpeechConfig{Enabled: true}, "darwin", []string{"say"}, "say", false, false},
		{"mac say with rate", config.SpeechConfig{Enabled: true, Rate: 180}, "darwin", []string{"say"}, "say -r 180", false, false},
		{"linux prefers espeak-ng", config.SpeechConfig{Enabled: true}, "linux", []string{"espeak", "espeak-ng"}, "espeak-ng", false, false},
		{"linux falls back to espeak", config.SpeechConfig{Enabled: true, Rate: 150}, "linux", []string{"espeak"}, "espeak -s 150", false, false},
		{"linux spd-say", config.SpeechConfig{Enabled: true}, "linux", []string{"spd-say"}, "spd-say -w", false, false},
		{"linux nothing", config.SpeechConfig{Enabled: true}, "linux", nil, "", false, true},
		{"windows sapi", config.SpeechConfig{Enabled: true}, "windows", []string{"powershell"}, "powershell", true, false},
		{"configured command", config.SpeechConfig{Enabled: true, Command: []string{"piper-say", "--voice", "amy"}}, "linux", []string{"piper-say", "espeak-ng"}, "piper-say --voice amy", false, false},
		{"configured command missing", config.SpeechConfig{Enabled: true, Command: []string{"piper-say"}}, "linux", []string{"espeak-ng"}, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := pickEngine(tt.cfg, tt.goos, lookPathFor(tt.installed...))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("pickEngine() = %v, want error", eng.argv)
				}
				return
			}
			if err != nil {
				t.Fatalf("pickEngine() error = %v", err)
			}
			got := strings.Join(eng.argv, " ")
			if !strings.HasPrefix(got, tt.wantArgv) {
				t.Errorf("argv = %q, want prefix %q", got, tt.wantArgv)
			}
			if eng.stdin != tt.wantStdin {
				t.Errorf("stdin = %v, want %v", eng.stdin, tt.wantStdin)
			}
		})
	}
}

func TestPickEngineNoEngineSentinel(t *testing.T) {
	_, err := pickEngine(config.SpeechConfig{Enabled: true}, "linux", lookPathFor())
	if !errors.Is(err, ErrNoEngine) {
		t.Errorf("error = %v, want ErrNoEngine", err)
	}
}

func TestDisabledSpeakerOnlyLogs(t *testing.T) {
	s, err := New(config.SpeechConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Engine() != "" {
		t.Errorf("Engine() = %q, want empty", s.Engine())
	}
	if err := s.Say("hello"); err != nil {
		t.Errorf("Say() error = %v", err)
	}
}

func TestSaySerializes(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	var spoken []string

	s := &Speaker{
		eng: &engine{argv: []string{"fake"}},
		run: func(_ *engine, text string) error {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			spoken = append(spoken, text)
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Say("ready")
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent utterances = %d, want 1", maxActive)
	}
	if len(spoken) != 5 {
		t.Errorf("spoke %d times, want 5", len(spoken))
	}
}

func TestSaySkipsBlankAndWrapsErrors(t *testing.T) {
	calls := 0
	s := &Speaker{
		eng: &engine{argv: []string{"fake"}},
		run: func(*engine, string) error {
			calls++
			return errors.New("audio busy")
		},
	}
	if err := s.Say("   "); err != nil || calls != 0 {
		t.Errorf("Say(blank) = %v with %d calls, want nil and 0", err, calls)
	}
	if err := s.Say("hi"); err == nil || !strings.Contains(err.Error(), "fake") {
		t.Errorf("Say() error = %v, want wrapped engine error", err)
	}
}
