// Command test-command runs typed phrases through the same parsing and
// execution path as spoken ones, without a microphone or model.
// Each line read from stdin is treated as a final transcript.
//
// Usage:
//
//	go run ./cmd/test-command [--config path] [--dry-run] [--bypass-wake]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/chaz8081/nova/internal/action"
	"github.com/chaz8081/nova/internal/assistant"
	"github.com/chaz8081/nova/internal/config"
	"github.com/chaz8081/nova/internal/inject"
	"github.com/chaz8081/nova/internal/intent"
	"github.com/chaz8081/nova/internal/logging"
	"github.com/chaz8081/nova/internal/speech"
)

// dryRun prints what would happen instead of touching the desktop.
type dryRun struct{}

func (dryRun) Tap(key string, modifiers ...string) error {
	fmt.Printf("  [tap] %s\n", strings.Join(append(modifiers, key), "+"))
	return nil
}

func (dryRun) Capture() (image.Image, error) {
	fmt.Println("  [capture] screen")
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (dryRun) Launch(command string) error {
	fmt.Printf("  [launch] %s\n", command)
	return nil
}

func (dryRun) OpenURL(rawURL string) error {
	fmt.Printf("  [open] %s\n", rawURL)
	return nil
}

func (dryRun) Inject(text string) error {
	fmt.Printf("  [type] %q\n", text)
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: built-in defaults)")
	dry := flag.Bool("dry-run", true, "print actions instead of performing them")
	bypass := flag.Bool("bypass-wake", false, "accept commands without a wake phrase")
	flag.Parse()

	logging.Setup(slog.LevelDebug, os.Stderr)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	if *dry {
		cfg.Commands.ScreenshotDir = os.TempDir()
	}

	var backends action.Backends
	if *dry {
		backends = action.Backends{Keyboard: dryRun{}, Screen: dryRun{}, Launcher: dryRun{}, Typist: dryRun{}}
	} else {
		d := action.NewDesktop()
		backends = action.Backends{Keyboard: d, Screen: d, Launcher: d, Typist: inject.NewInjector(cfg.Inject.Method)}
	}

	wake, err := intent.NewWakeDetector(cfg.Wake.Words)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wake words: %v\n", err)
		os.Exit(1)
	}
	speaker, _ := speech.New(config.SpeechConfig{Enabled: !*dry})
	asst := assistant.New(wake, intent.NewParser(cfg.Commands.Confusions),
		action.NewExecutor(cfg.Commands, backends), speaker, nil,
		assistant.Options{BypassWake: *bypass})

	fmt.Println("Type a phrase (e.g. \"hey nova open chrome\"). Ctrl+D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		asst.HandleFinal(context.Background(), scanner.Text())
		fmt.Printf("  awake: %v\n", asst.Awake())
	}
	fmt.Println()
}
