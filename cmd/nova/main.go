// Command nova is an offline voice assistant. It listens on the microphone,
// transcribes speech locally with whisper.cpp, and runs desktop commands
// after hearing its wake phrase.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/nova/internal/action"
	"github.com/chaz8081/nova/internal/assistant"
	"github.com/chaz8081/nova/internal/audio"
	"github.com/chaz8081/nova/internal/config"
	"github.com/chaz8081/nova/internal/history"
	"github.com/chaz8081/nova/internal/hotkey"
	"github.com/chaz8081/nova/internal/inject"
	"github.com/chaz8081/nova/internal/intent"
	"github.com/chaz8081/nova/internal/listen"
	"github.com/chaz8081/nova/internal/logging"
	"github.com/chaz8081/nova/internal/models"
	"github.com/chaz8081/nova/internal/speech"
	"github.com/chaz8081/nova/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/nova/config.yaml)")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	device := flag.Int("device", -1, "input device index from -list-devices (-1 = system default)")
	model := flag.String("model", "", "whisper model size, e.g. base.en, small, medium")
	language := flag.String("language", "", "spoken language code, or auto")
	debug := flag.Bool("debug", false, "verbose logging")
	bypassWake := flag.Bool("bypass-wake", false, "accept commands without a wake phrase")
	wavPath := flag.String("wav", "", "run on a WAV file instead of the microphone")
	download := flag.Bool("download", false, "interactively download a whisper model and exit")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	showHistory := flag.Int("history", 0, "print the last N handled commands and exit")
	flag.Parse()

	logging.Setup(slog.LevelInfo, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *listDevices:
		exitOn(printDevices())
		return
	case *initConfig:
		path, err := config.WriteDefault()
		exitOn(err)
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		} else {
			fmt.Printf("Wrote default config to %s\n", path)
		}
		return
	case *download:
		exitOn(models.RunInteractiveDownload(ctx))
		return
	}

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		fatal("config", err)
	}

	// Flags override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Audio.Device = *device
		case "model":
			cfg.Transcribe.Model = *model
			cfg.Transcribe.ModelPath = ""
		case "language":
			cfg.Transcribe.Language = *language
		case "bypass-wake":
			cfg.Wake.BypassWake = *bypassWake
		case "debug":
			if *debug {
				cfg.LogLevel = "debug"
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}
	logging.Setup(config.ParseLogLevel(cfg.LogLevel), os.Stderr)

	if *showHistory > 0 {
		exitOn(printHistory(ctx, cfg.History.Path, *showHistory))
		return
	}

	printBanner(cfg, *wavPath)

	if err := run(ctx, cfg, loadedFrom, *wavPath); err != nil {
		fatal("nova", err)
	}
	slog.Info("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

func run(ctx context.Context, cfg *config.Config, configFile, wavPath string) error {
	tr, err := loadTranscriber(ctx, cfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	src, closeSrc, err := openSource(cfg, wavPath)
	if err != nil {
		return err
	}
	defer closeSrc()

	lst, err := listen.New(src, tr, listen.Options{
		ChunkSeconds:        cfg.Audio.ChunkSeconds,
		PollInterval:        cfg.Audio.PollInterval,
		SilenceThreshold:    cfg.Audio.SilenceThreshold,
		MaxUtteranceSeconds: cfg.Audio.MaxUtteranceSeconds,
		Partials:            cfg.Audio.Partials,
		DumpDir:             cfg.Audio.DumpDir,
	})
	if err != nil {
		return err
	}

	speaker, err := speech.New(cfg.Speech)
	if err != nil {
		slog.Warn("Spoken replies disabled", "error", err)
	} else if speaker.Engine() != "" {
		slog.Info("Speech ready", "engine", speaker.Engine())
	}

	injector := inject.NewInjector(cfg.Inject.Method)
	desktop := action.NewDesktop()
	exec := action.NewExecutor(cfg.Commands, action.Backends{
		Keyboard: desktop,
		Screen:   desktop,
		Launcher: desktop,
		Typist:   injector,
	})

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("History disabled", "error", err)
		store, _ = history.Open("")
	}
	defer store.Close()

	wake, err := intent.NewWakeDetector(cfg.Wake.Words)
	if err != nil {
		return err
	}
	asst := assistant.New(wake, intent.NewParser(cfg.Commands.Confusions), exec, speaker, store, assistant.Options{
		BypassWake: cfg.Wake.BypassWake,
		Timeout:    cfg.Wake.Timeout,
	})

	var hk *hotkey.Listener
	if cfg.Hotkey.Enabled {
		hk = startHotkey(cfg.Hotkey, asst)
		defer hk.Stop()
	}

	if configFile != "" {
		w, err := config.NewWatcher(configFile, 0, func(c *config.Config) {
			wake, err := intent.NewWakeDetector(c.Wake.Words)
			if err != nil {
				slog.Warn("Reloaded wake words invalid", "error", err)
				return
			}
			asst.Reload(wake, intent.NewParser(c.Commands.Confusions))
			exec.UpdateCommands(c.Commands)
		})
		if err != nil {
			slog.Warn("Config hot reload disabled", "error", err)
		} else {
			w.Start()
			defer w.Stop()
		}
	}

	if err := speaker.Say("Nova online."); err != nil {
		slog.Warn("Speech failed", "error", err)
	}
	if cfg.Wake.BypassWake {
		slog.Info("Ready! Wake phrase bypassed, speak a command. Ctrl+C to quit.")
	} else {
		slog.Info("Ready! Say \"hey nova\" to wake me. Ctrl+C to quit.")
	}

	err = lst.Run(ctx, func(r listen.Result) {
		logResult(r)
		asst.Handle(ctx, r)
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		slog.Info("Shutting down...")
	}
	return nil
}

// loadTranscriber loads the configured whisper model, downloading it first
// when it is missing and auto_download is on.
func loadTranscriber(ctx context.Context, cfg *config.Config) (transcribe.Transcriber, error) {
	path := cfg.ModelPath()
	if _, err := os.Stat(path); err != nil && cfg.Transcribe.ModelPath == "" && cfg.Transcribe.AutoDownload {
		slog.Info("Model missing, downloading", "model", cfg.Transcribe.Model)
		if path, err = models.EnsureWhisper(ctx, cfg.Transcribe.Model, config.DefaultModelsDir()); err != nil {
			return nil, fmt.Errorf("downloading model %s: %w", cfg.Transcribe.Model, err)
		}
	}

	slog.Info("Loading whisper model...", "path", path)
	start := time.Now()
	tr, err := transcribe.New(path, transcribe.Options{
		Language: cfg.Transcribe.Language,
		Threads:  cfg.Transcribe.Threads,
	})
	if errors.Is(err, transcribe.ErrModelNotFound) {
		return nil, fmt.Errorf("%w\n\nRun 'nova -download' to fetch a model", err)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("Model loaded", "took", time.Since(start).Round(time.Millisecond))
	return tr, nil
}

// openSource returns the microphone recorder, or a file source when
// wavPath is set.
func openSource(cfg *config.Config, wavPath string) (audio.Source, func(), error) {
	if wavPath != "" {
		samples, err := audio.LoadWAV(wavPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Replaying WAV", "path", wavPath, "seconds", float64(len(samples))/audio.TargetRate)
		return audio.NewFileSource(samples), func() {}, nil
	}

	rec, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.Device, cfg.Audio.FallbackRates)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing audio: %w\n\nEnsure microphone access is granted to your terminal", err)
	}
	if err := rec.Start(); err != nil {
		rec.Close()
		return nil, nil, fmt.Errorf("starting microphone: %w", err)
	}
	slog.Info("Microphone open", "capture_rate", rec.CaptureRate())
	return rec, func() { rec.Close() }, nil
}

// logResult logs each transcript at debug level, partials included.
func logResult(r listen.Result) {
	if r.Final {
		slog.Debug("Transcript", "text", r.Text, "audio", r.Duration)
		return
	}
	slog.Debug("Partial", "text", r.Text)
}

func startHotkey(cfg config.HotkeyConfig, asst *assistant.Assistant) *hotkey.Listener {
	hk := hotkey.NewListener(cfg.Keys, cfg.Mode)
	hk.TrackState(asst.Awake)
	go hk.Start()
	go func() {
		for ev := range hk.Events() {
			slog.Debug("Hotkey", "event", ev.Type.String())
			switch ev.Type {
			case hotkey.EventWake:
				asst.Wake()
			case hotkey.EventSleep:
				asst.Sleep()
			}
		}
	}()
	slog.Info("Hotkey listener ready", "keys", strings.Join(cfg.Keys, "+"), "mode", cfg.Mode)
	return hk
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults. It also returns the
// file the config came from, if any.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("Config loaded", "path", defaultPath)
		return cfg, defaultPath, nil
	}

	slog.Info("No config file found, using defaults (nova -init-config writes one)")
	return config.Default(), "", nil
}

func printDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s\n", marker, d.Index, d.Name)
	}
	return nil
}

func printHistory(ctx context.Context, path string, n int) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Enabled() {
		fmt.Println("History is disabled (history.path is empty).")
		return nil
	}

	entries, err := store.Recent(ctx, n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-11s %q -> %q", e.At.Format("2006-01-02 15:04:05"), e.Kind, e.Heard, e.Reply)
		if e.Error != "" {
			line += "  (error: " + e.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, wavPath string) {
	input := "microphone"
	if cfg.Audio.Device >= 0 {
		input = fmt.Sprintf("device %d", cfg.Audio.Device)
	}
	if wavPath != "" {
		input = wavPath
	}
	wake := "wake phrase"
	if cfg.Wake.BypassWake {
		wake = "bypassed"
	}

	fmt.Println("=== nova ===")
	fmt.Printf("  Model:    %s (%s)\n", cfg.ModelPath(), cfg.Transcribe.Language)
	fmt.Printf("  Input:    %s, %dHz, %dch\n", input, cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Wake:     %s\n", wake)
	if cfg.Hotkey.Enabled {
		fmt.Printf("  Hotkey:   %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	}
	fmt.Printf("  Speech:   %v\n", cfg.Speech.Enabled)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("============")
}

func exitOn(err error) {
	if err != nil {
		fatal("nova", err)
	}
}

func fatal(what string, err error) {
	slog.Error(what, "error", err)
	os.Exit(1)
}
