package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transcribe.Model != "small" {
		t.Errorf("Transcribe.Model = %q, want %q", cfg.Transcribe.Model, "small")
	}
	if cfg.Transcribe.Language != "en" {
		t.Errorf("Transcribe.Language = %q, want %q", cfg.Transcribe.Language, "en")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.Device != -1 {
		t.Errorf("Audio.Device = %d, want -1", cfg.Audio.Device)
	}
	if cfg.Audio.ChunkSeconds != 1.5 {
		t.Errorf("Audio.ChunkSeconds = %v, want 1.5", cfg.Audio.ChunkSeconds)
	}
	if len(cfg.Wake.Words) != 4 {
		t.Errorf("Wake.Words length = %d, want 4", len(cfg.Wake.Words))
	}
	if cfg.Commands.FuzzyCutoff != 0.7 {
		t.Errorf("Commands.FuzzyCutoff = %v, want 0.7", cfg.Commands.FuzzyCutoff)
	}
	if cfg.Commands.VolumeSteps != 10 {
		t.Errorf("Commands.VolumeSteps = %d, want 10", cfg.Commands.VolumeSteps)
	}
	if _, ok := cfg.Commands.Apps["chrome"]; !ok {
		t.Error("Commands.Apps should contain chrome")
	}
	if cfg.Inject.Method != "type" {
		t.Errorf("Inject.Method = %q, want %q", cfg.Inject.Method, "type")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestDefaultAppsPerOS(t *testing.T) {
	for _, goos := range []string{"windows", "darwin", "linux"} {
		apps := defaultApps(goos)
		if _, ok := apps["chrome"]; !ok {
			t.Errorf("defaultApps(%q) missing chrome", goos)
		}
		if _, ok := apps["vscode"]; !ok {
			t.Errorf("defaultApps(%q) missing vscode", goos)
		}
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
transcribe:
  model: base.en
  language: de
  threads: 4
audio:
  device: 2
  chunk_seconds: 2
  poll_interval: 100ms
wake:
  words: ["\\bcomputer\\b"]
  bypass_wake: true
  timeout: 5s
commands:
  apps:
    terminal: alacritty
  fuzzy_cutoff: 0.8
inject:
  method: paste
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transcribe.Model != "base.en" {
		t.Errorf("Transcribe.Model = %q, want %q", cfg.Transcribe.Model, "base.en")
	}
	if cfg.Transcribe.Language != "de" {
		t.Errorf("Transcribe.Language = %q, want %q", cfg.Transcribe.Language, "de")
	}
	if cfg.Transcribe.Threads != 4 {
		t.Errorf("Transcribe.Threads = %d, want 4", cfg.Transcribe.Threads)
	}
	if cfg.Audio.Device != 2 {
		t.Errorf("Audio.Device = %d, want 2", cfg.Audio.Device)
	}
	if cfg.Audio.ChunkSeconds != 2 {
		t.Errorf("Audio.ChunkSeconds = %v, want 2", cfg.Audio.ChunkSeconds)
	}
	if cfg.Audio.PollInterval != 100*time.Millisecond {
		t.Errorf("Audio.PollInterval = %v, want 100ms", cfg.Audio.PollInterval)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want default 16000", cfg.Audio.SampleRate)
	}
	if len(cfg.Wake.Words) != 1 || cfg.Wake.Words[0] != `\bcomputer\b` {
		t.Errorf("Wake.Words = %v, want [\\bcomputer\\b]", cfg.Wake.Words)
	}
	if !cfg.Wake.BypassWake {
		t.Error("Wake.BypassWake = false, want true")
	}
	if cfg.Wake.Timeout != 5*time.Second {
		t.Errorf("Wake.Timeout = %v, want 5s", cfg.Wake.Timeout)
	}
	if cfg.Commands.Apps["terminal"] != "alacritty" {
		t.Errorf("Commands.Apps[terminal] = %q, want %q", cfg.Commands.Apps["terminal"], "alacritty")
	}
	if _, ok := cfg.Commands.Apps["chrome"]; ok {
		t.Error("apps from the file should replace the default apps")
	}
	if _, ok := cfg.Commands.Sites["youtube"]; !ok {
		t.Error("default sites should be kept when the file has no sites")
	}
	if cfg.Commands.FuzzyCutoff != 0.8 {
		t.Errorf("Commands.FuzzyCutoff = %v, want 0.8", cfg.Commands.FuzzyCutoff)
	}
	if cfg.Inject.Method != "paste" {
		t.Errorf("Inject.Method = %q, want %q", cfg.Inject.Method, "paste")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadVocabularyReplacesDefaults(t *testing.T) {
	yamlContent := `
commands:
  app_aliases:
    google: chrome
  confusions:
    blows: close
  site_aliases: {}
`
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Commands.AppAliases) != 1 || cfg.Commands.AppAliases["google"] != "chrome" {
		t.Errorf("AppAliases = %v, want only google: chrome", cfg.Commands.AppAliases)
	}
	if _, ok := cfg.Commands.AppAliases["code"]; ok {
		t.Error("alias removed from the file is still active")
	}
	if _, ok := cfg.Commands.Confusions["rome"]; ok {
		t.Error("confusion removed from the file is still active")
	}
	if len(cfg.Commands.SiteAliases) != 0 {
		t.Errorf("SiteAliases = %v, want empty", cfg.Commands.SiteAliases)
	}

	def := Default()
	if len(cfg.Commands.Apps) != len(def.Commands.Apps) {
		t.Errorf("Apps has %d entries, want the %d defaults", len(cfg.Commands.Apps), len(def.Commands.Apps))
	}
	if len(cfg.Commands.Sites) != len(def.Commands.Sites) {
		t.Errorf("Sites has %d entries, want the %d defaults", len(cfg.Commands.Sites), len(def.Commands.Sites))
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
transcribe:
  model_path: ~/models/test.bin
commands:
  screenshot_dir: ~/shots
history:
  path: ~/nova/history.db
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "models/test.bin"); cfg.Transcribe.ModelPath != want {
		t.Errorf("Transcribe.ModelPath = %q, want %q", cfg.Transcribe.ModelPath, want)
	}
	if want := filepath.Join(home, "shots"); cfg.Commands.ScreenshotDir != want {
		t.Errorf("Commands.ScreenshotDir = %q, want %q", cfg.Commands.ScreenshotDir, want)
	}
	if want := filepath.Join(home, "nova/history.db"); cfg.History.Path != want {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("audio: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for malformed YAML")
	}
}

func TestModelPath(t *testing.T) {
	cfg := Default()
	cfg.Transcribe.Model = "base.en"
	want := filepath.Join(DefaultModelsDir(), "ggml-base.en.bin")
	if got := cfg.ModelPath(); got != want {
		t.Errorf("ModelPath() = %q, want %q", got, want)
	}

	cfg.Transcribe.ModelPath = "/opt/whisper/custom.bin"
	if got := cfg.ModelPath(); got != "/opt/whisper/custom.bin" {
		t.Errorf("ModelPath() with override = %q, want %q", got, "/opt/whisper/custom.bin")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "no model",
			modify:  func(c *Config) { c.Transcribe.Model = ""; c.Transcribe.ModelPath = "" },
			wantErr: true,
		},
		{
			name:    "model path only",
			modify:  func(c *Config) { c.Transcribe.Model = ""; c.Transcribe.ModelPath = "/m.bin" },
			wantErr: false,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Audio.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "zero chunk seconds",
			modify:  func(c *Config) { c.Audio.ChunkSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "chunk shorter than one sample",
			modify:  func(c *Config) { c.Audio.ChunkSeconds = 0.00001 },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Audio.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "utterance shorter than chunk",
			modify:  func(c *Config) { c.Audio.MaxUtteranceSeconds = 1 },
			wantErr: true,
		},
		{
			name:    "invalid wake pattern",
			modify:  func(c *Config) { c.Wake.Words = []string{"hey (nova"} },
			wantErr: true,
		},
		{
			name:    "no wake words",
			modify:  func(c *Config) { c.Wake.Words = nil },
			wantErr: true,
		},
		{
			name:    "no wake words with bypass",
			modify:  func(c *Config) { c.Wake.Words = nil; c.Wake.BypassWake = true },
			wantErr: false,
		},
		{
			name:    "invalid hotkey mode when enabled",
			modify:  func(c *Config) { c.Hotkey.Enabled = true; c.Hotkey.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid hotkey mode when disabled",
			modify:  func(c *Config) { c.Hotkey.Mode = "invalid" },
			wantErr: false,
		},
		{
			name:    "empty hotkey keys when enabled",
			modify:  func(c *Config) { c.Hotkey.Enabled = true; c.Hotkey.Keys = nil },
			wantErr: true,
		},
		{
			name:    "fuzzy cutoff zero",
			modify:  func(c *Config) { c.Commands.FuzzyCutoff = 0 },
			wantErr: true,
		},
		{
			name:    "fuzzy cutoff above one",
			modify:  func(c *Config) { c.Commands.FuzzyCutoff = 1.5 },
			wantErr: true,
		},
		{
			name:    "search url without placeholder",
			modify:  func(c *Config) { c.Commands.SearchURL = "https://example.com/" },
			wantErr: true,
		},
		{
			name:    "invalid inject method",
			modify:  func(c *Config) { c.Inject.Method = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "nova", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# nova") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.PollInterval != 200*time.Millisecond {
		t.Errorf("written config Audio.PollInterval = %v, want 200ms", cfg.Audio.PollInterval)
	}

	// The written file must load and validate as-is.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load(written) error = %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "nova")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
