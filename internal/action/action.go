// Package action executes parsed intents against the desktop and produces
// the reply the assistant speaks back.
package action

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chaz8081/nova/internal/config"
	"github.com/chaz8081/nova/internal/intent"
)

// ErrUnavailable is returned when a command needs a desktop capability
// that is not available on this system.
var ErrUnavailable = errors.New("action: capability unavailable")

// Keyboard taps keys, optionally with modifiers.
type Keyboard interface {
	Tap(key string, modifiers ...string) error
}

// Screen captures the whole screen.
type Screen interface {
	Capture() (image.Image, error)
}

// Launcher starts programs and opens URLs in the default browser.
type Launcher interface {
	Launch(command string) error
	OpenURL(rawURL string) error
}

// Typist types text into the focused window.
type Typist interface {
	Inject(text string) error
}

// Backends groups the capabilities an Executor drives. Nil members make
// the matching commands report ErrUnavailable.
type Backends struct {
	Keyboard Keyboard
	Screen   Screen
	Launcher Launcher
	Typist   Typist
}

// Executor turns intents into desktop actions.
type Executor struct {
	mu       sync.RWMutex
	cmds     config.CommandsConfig
	apps     map[string]string
	sites    map[string]string
	resolver *intent.Resolver

	b    Backends
	goos string
	now  func() time.Time
}

// NewExecutor creates an Executor for the given vocabulary and backends.
func NewExecutor(cmds config.CommandsConfig, b Backends) *Executor {
	e := &Executor{b: b, goos: runtime.GOOS, now: time.Now}
	e.UpdateCommands(cmds)
	return e
}

// UpdateCommands swaps in a new vocabulary. Safe for concurrent use with
// Execute.
func (e *Executor) UpdateCommands(cmds config.CommandsConfig) {
	apps := lowerKeys(cmds.Apps)
	sites := lowerKeys(cmds.Sites)
	r := intent.NewResolver(cmds.Apps, cmds.Sites, cmds.AppAliases, cmds.SiteAliases, cmds.FuzzyCutoff)

	e.mu.Lock()
	e.cmds = cmds
	e.apps = apps
	e.sites = sites
	e.resolver = r
	e.mu.Unlock()
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Execute runs in and returns the reply to speak. The reply is set even
// when err is non-nil.
func (e *Executor) Execute(in intent.Intent) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch in.Kind {
	case intent.None:
		return "", nil
	case intent.Search:
		return e.search(in.Target)
	case intent.Open:
		return e.open(in.Target)
	case intent.Close:
		return e.closeWindow()
	case intent.Time:
		return "It's " + e.now().Format("03:04 PM") + ".", nil
	case intent.VolumeUp:
		return e.tapVolume("audio_vol_up", e.cmds.VolumeSteps, "Volume up.")
	case intent.VolumeDown:
		return e.tapVolume("audio_vol_down", e.cmds.VolumeSteps, "Volume down.")
	case intent.Mute:
		return e.tapVolume("audio_mute", 1, "Muted.")
	case intent.Screenshot:
		return e.screenshot()
	case intent.Type:
		return e.typeText(in.Target)
	case intent.Sleep:
		return "Going to sleep.", nil
	default:
		return "I didn't catch a supported command.", nil
	}
}

func (e *Executor) search(query string) (string, error) {
	if e.b.Launcher == nil {
		return "Search isn't available.", fmt.Errorf("search: %w", ErrUnavailable)
	}
	u := strings.Replace(e.cmds.SearchURL, "%s", url.QueryEscape(query), 1)
	if err := e.b.Launcher.OpenURL(u); err != nil {
		return "Couldn't open the browser.", fmt.Errorf("search %q: %w", query, err)
	}
	return "Searching for " + query + ".", nil
}

// openTarget drops trailing qualifiers like "chrome for me" or
// "notepad on screen two".
func openTarget(target string) string {
	if i := strings.Index(target, " for "); i >= 0 {
		target = target[:i]
	}
	if i := strings.Index(target, " on "); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}

func (e *Executor) open(target string) (string, error) {
	if e.b.Launcher == nil {
		return "Opening things isn't available.", fmt.Errorf("open: %w", ErrUnavailable)
	}
	name := openTarget(target)

	if key, ok := e.resolver.ResolveApp(name); ok {
		if err := e.b.Launcher.Launch(e.apps[key]); err != nil {
			return "Couldn't open " + key + ".", fmt.Errorf("launch %s: %w", key, err)
		}
		return "Opening " + key + ".", nil
	}

	// "open google <query>" would otherwise fuzzy-match the google site.
	if q, ok := strings.CutPrefix(name, "google "); ok {
		return e.search(q)
	}

	if key, ok := e.resolver.ResolveSite(name); ok {
		if err := e.b.Launcher.OpenURL(e.sites[key]); err != nil {
			return "Couldn't open " + key + ".", fmt.Errorf("open site %s: %w", key, err)
		}
		return "Opening " + key + ".", nil
	}

	return "I couldn't find " + name + ".", nil
}

func (e *Executor) closeWindow() (string, error) {
	if e.b.Keyboard == nil {
		return "Close isn't available.", fmt.Errorf("close: %w", ErrUnavailable)
	}
	key, mod := "f4", "alt"
	if e.goos == "darwin" {
		key, mod = "w", "cmd"
	}
	if err := e.b.Keyboard.Tap(key, mod); err != nil {
		return "Couldn't close the window.", fmt.Errorf("close: %w", err)
	}
	return "Closed.", nil
}

func (e *Executor) tapVolume(key string, times int, reply string) (string, error) {
	if e.b.Keyboard == nil {
		return "Volume control isn't available.", fmt.Errorf("volume: %w", ErrUnavailable)
	}
	for i := 0; i < times; i++ {
		if err := e.b.Keyboard.Tap(key); err != nil {
			return "Couldn't change the volume.", fmt.Errorf("volume key %s: %w", key, err)
		}
	}
	return reply, nil
}

// ScreenshotName returns the file name used for a screenshot taken at t.
func ScreenshotName(t time.Time) string {
	return "Nova_Screenshot_" + t.Format("20060102_150405") + ".png"
}

func (e *Executor) screenshot() (string, error) {
	if e.b.Screen == nil {
		return "Screenshots aren't available.", fmt.Errorf("screenshot: %w", ErrUnavailable)
	}
	img, err := e.b.Screen.Capture()
	if err != nil {
		return "Couldn't take a screenshot.", fmt.Errorf("capture screen: %w", err)
	}

	dir := e.cmds.ScreenshotDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "Couldn't save the screenshot.", fmt.Errorf("creating screenshot dir: %w", err)
	}
	path := filepath.Join(dir, ScreenshotName(e.now()))
	if err := savePNG(path, img); err != nil {
		return "Couldn't save the screenshot.", err
	}
	slog.Info("Screenshot saved", "path", path)
	return "Screenshot saved in " + filepath.Base(dir) + ".", nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding screenshot: %w", err)
	}
	return f.Close()
}

func (e *Executor) typeText(text string) (string, error) {
	if e.b.Typist == nil {
		return "Typing isn't available.", fmt.Errorf("type: %w", ErrUnavailable)
	}
	if err := e.b.Typist.Inject(text); err != nil {
		return "Couldn't type that.", fmt.Errorf("type: %w", err)
	}
	return "Typed.", nil
}
