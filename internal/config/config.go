package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Audio      AudioConfig      `yaml:"audio"`
	Wake       WakeConfig       `yaml:"wake"`
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Commands   CommandsConfig   `yaml:"commands"`
	Speech     SpeechConfig     `yaml:"speech"`
	Inject     InjectConfig     `yaml:"inject"`
	History    HistoryConfig    `yaml:"history"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig holds speech-to-text settings.
type TranscribeConfig struct {
	Model        string `yaml:"model"`      // tiny, base, small, medium, large-v3 (with optional .en)
	ModelPath    string `yaml:"model_path"` // overrides the path derived from Model
	Language     string `yaml:"language"`
	Threads      uint   `yaml:"threads"` // 0 = whisper default
	AutoDownload bool   `yaml:"auto_download"`
}

// AudioConfig holds audio capture and chunking settings.
type AudioConfig struct {
	SampleRate          uint32        `yaml:"sample_rate"`
	Channels            uint32        `yaml:"channels"`
	Device              int           `yaml:"device"` // -1 = system default
	FallbackRates       []uint32      `yaml:"fallback_rates"`
	ChunkSeconds        float64       `yaml:"chunk_seconds"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	SilenceThreshold    float64       `yaml:"silence_threshold"` // RMS below this is silence
	MaxUtteranceSeconds float64       `yaml:"max_utterance_seconds"`
	Partials            bool          `yaml:"partials"`
	DumpDir             string        `yaml:"dump_dir"`
}

// WakeConfig holds wake phrase settings.
type WakeConfig struct {
	Words      []string      `yaml:"words"` // regular expressions
	BypassWake bool          `yaml:"bypass_wake"`
	Timeout    time.Duration `yaml:"timeout"` // 0 = stay awake until a command
}

// HotkeyConfig holds the optional global wake hotkey.
type HotkeyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Keys    []string `yaml:"keys"`
	Mode    string   `yaml:"mode"` // "hold" or "toggle"
}

// CommandsConfig holds the command vocabulary.
type CommandsConfig struct {
	Apps          map[string]string `yaml:"apps"`
	Sites         map[string]string `yaml:"sites"`
	AppAliases    map[string]string `yaml:"app_aliases"`
	SiteAliases   map[string]string `yaml:"site_aliases"`
	Confusions    map[string]string `yaml:"confusions"`
	SearchURL     string            `yaml:"search_url"`
	FuzzyCutoff   float64           `yaml:"fuzzy_cutoff"`
	VolumeSteps   int               `yaml:"volume_steps"`
	ScreenshotDir string            `yaml:"screenshot_dir"`
}

// SpeechConfig holds spoken feedback settings.
type SpeechConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"` // text is appended as the last argument
	Rate    int      `yaml:"rate"`    // words per minute, 0 = engine default
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "type" or "paste"
}

// HistoryConfig holds command history settings.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nova")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the directory for models and history.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "nova")
}

// DefaultModelsDir returns the directory whisper models are downloaded to.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Transcribe: TranscribeConfig{
			Model:        "small",
			Language:     "en",
			AutoDownload: true,
		},
		Audio: AudioConfig{
			SampleRate:          16000,
			Channels:            1,
			Device:              -1,
			FallbackRates:       []uint32{16000, 44100, 48000},
			ChunkSeconds:        1.5,
			PollInterval:        200 * time.Millisecond,
			SilenceThreshold:    0.01,
			MaxUtteranceSeconds: 12,
			Partials:            true,
		},
		Wake: WakeConfig{
			Words: []string{
				`\bhey\s+nova\b`,
				`\bhello\s+nova\b`,
				`\bhey\s+noah\b`,
				`\bhey\s+novaa\b`,
			},
			Timeout: 10 * time.Second,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "n"},
			Mode: "toggle",
		},
		Commands: CommandsConfig{
			Apps: defaultApps(runtime.GOOS),
			Sites: map[string]string{
				"google":        "https://www.google.com",
				"youtube":       "https://www.youtube.com",
				"gmail":         "https://mail.google.com",
				"google drive":  "https://drive.google.com",
				"drive":         "https://drive.google.com",
				"chatgpt":       "https://chat.openai.com",
				"github":        "https://github.com",
				"stackoverflow": "https://stackoverflow.com",
			},
			AppAliases: map[string]string{
				"google":             "chrome",
				"visual studio code": "vscode",
				"code":               "vscode",
			},
			SiteAliases: map[string]string{
				"yt":       "youtube",
				"you tube": "youtube",
				"g mail":   "gmail",
				"mail":     "gmail",
				"drive":    "google drive",
			},
			Confusions: map[string]string{
				"grown":    "chrome",
				"grow":     "chrome",
				"goal":     "chrome",
				"rome":     "chrome",
				"googly":   "google",
				"googling": "google",
				"goole":    "google",
				"orban":    "open",
				"oh been":  "open",
				"or been":  "open",
				"opening":  "open",
				"blows":    "close",
			},
			SearchURL:     "https://www.google.com/search?q=%s",
			FuzzyCutoff:   0.7,
			VolumeSteps:   10,
			ScreenshotDir: filepath.Join(home, "Pictures"),
		},
		Speech: SpeechConfig{
			Enabled: true,
		},
		Inject: InjectConfig{
			Method: "type",
		},
		History: HistoryConfig{
			Path: filepath.Join(DefaultDataDir(), "history.db"),
		},
		LogLevel: "info",
	}
}

// defaultApps returns launcher commands for common apps on the given OS.
func defaultApps(goos string) map[string]string {
	switch goos {
	case "windows":
		return map[string]string{
			"chrome":     `C:\Program Files\Google\Chrome\Application\chrome.exe`,
			"edge":       `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			"brave":      `C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
			"vscode":     `C:\Users\%USERNAME%\AppData\Local\Programs\Microsoft VS Code\Code.exe`,
			"notepad":    `notepad.exe`,
			"spotify":    `C:\Users\%USERNAME%\AppData\Roaming\Spotify\Spotify.exe`,
			"calculator": `calc.exe`,
		}
	case "darwin":
		return map[string]string{
			"chrome":     "/Applications/Google Chrome.app",
			"brave":      "/Applications/Brave Browser.app",
			"vscode":     "/Applications/Visual Studio Code.app",
			"notes":      "/System/Applications/Notes.app",
			"spotify":    "/Applications/Spotify.app",
			"calculator": "/System/Applications/Calculator.app",
		}
	default:
		return map[string]string{
			"chrome":     "google-chrome",
			"firefox":    "firefox",
			"brave":      "brave-browser",
			"vscode":     "code",
			"editor":     "gedit",
			"spotify":    "spotify",
			"calculator": "gnome-calculator",
		}
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	defaults := cfg.Commands

	// Vocabulary maps from the file replace the defaults rather than
	// merging into them, so entries can be removed.
	cfg.Commands.Apps = nil
	cfg.Commands.Sites = nil
	cfg.Commands.AppAliases = nil
	cfg.Commands.SiteAliases = nil
	cfg.Commands.Confusions = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	keepDefault(&cfg.Commands.Apps, defaults.Apps)
	keepDefault(&cfg.Commands.Sites, defaults.Sites)
	keepDefault(&cfg.Commands.AppAliases, defaults.AppAliases)
	keepDefault(&cfg.Commands.SiteAliases, defaults.SiteAliases)
	keepDefault(&cfg.Commands.Confusions, defaults.Confusions)

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)
	cfg.Audio.DumpDir = expandTilde(cfg.Audio.DumpDir)
	cfg.Commands.ScreenshotDir = expandTilde(cfg.Commands.ScreenshotDir)
	cfg.History.Path = expandTilde(cfg.History.Path)

	return cfg, nil
}

// keepDefault restores def when the file left the map out.
func keepDefault(m *map[string]string, def map[string]string) {
	if *m == nil {
		*m = def
	}
}

// ModelPath returns the whisper model file to load: transcribe.model_path
// when set, otherwise ggml-<model>.bin in the default models directory.
func (c *Config) ModelPath() string {
	if c.Transcribe.ModelPath != "" {
		return c.Transcribe.ModelPath
	}
	return filepath.Join(DefaultModelsDir(), "ggml-"+c.Transcribe.Model+".bin")
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Transcribe.Model == "" && c.Transcribe.ModelPath == "" {
		return fmt.Errorf("transcribe.model or transcribe.model_path must be set")
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	// Chunks are cut from 16 kHz audio and must hold at least one sample.
	if c.Audio.ChunkSeconds*16000 < 1 {
		return fmt.Errorf("audio.chunk_seconds must be at least 1/16000 s, got %v", c.Audio.ChunkSeconds)
	}

	if c.Audio.PollInterval <= 0 {
		return fmt.Errorf("audio.poll_interval must be > 0")
	}

	if c.Audio.MaxUtteranceSeconds < c.Audio.ChunkSeconds {
		return fmt.Errorf("audio.max_utterance_seconds must be >= audio.chunk_seconds")
	}

	if len(c.Wake.Words) == 0 && !c.Wake.BypassWake {
		return fmt.Errorf("wake.words must not be empty unless wake.bypass_wake is set")
	}
	for _, w := range c.Wake.Words {
		if _, err := regexp.Compile(w); err != nil {
			return fmt.Errorf("wake.words: invalid pattern %q: %w", w, err)
		}
	}

	if c.Hotkey.Enabled {
		if len(c.Hotkey.Keys) == 0 {
			return fmt.Errorf("hotkey.keys must not be empty")
		}
		switch c.Hotkey.Mode {
		case "hold", "toggle":
		default:
			return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
		}
	}

	if c.Commands.FuzzyCutoff <= 0 || c.Commands.FuzzyCutoff > 1 {
		return fmt.Errorf("commands.fuzzy_cutoff must be in (0, 1], got %v", c.Commands.FuzzyCutoff)
	}

	if !strings.Contains(c.Commands.SearchURL, "%s") {
		return fmt.Errorf("commands.search_url must contain %%s")
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# nova configuration
#
# Wake words are regular expressions matched against the lowercased transcript.
# Apps map a spoken name to an executable (or .app bundle on macOS).
# Edits to this file are picked up while nova is running.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path written, or "" if a config already
// existed.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
