package action

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-vgo/robotgo"
)

// Desktop implements Keyboard, Screen and Launcher for the local machine.
type Desktop struct {
	goos string
}

// NewDesktop returns a Desktop for the running OS.
func NewDesktop() *Desktop {
	return &Desktop{goos: runtime.GOOS}
}

// Tap presses and releases key while holding modifiers.
func (d *Desktop) Tap(key string, modifiers ...string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("key tap %s: %w", key, err)
	}
	return nil
}

// Capture grabs the full screen.
func (d *Desktop) Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return img, nil
}

// Launch starts command without waiting for it to exit.
func (d *Desktop) Launch(command string) error {
	name, args := launchCommand(d.goos, expandEnv(command))
	if name == "" {
		return fmt.Errorf("launch: empty command")
	}
	return start(name, args...)
}

// OpenURL opens rawURL in the default browser.
func (d *Desktop) OpenURL(rawURL string) error {
	name, args := openURLCommand(d.goos, rawURL)
	return start(name, args...)
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...) //nolint:gosec // commands come from the user's config
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// launchCommand splits a configured app entry into a program and arguments.
// Paths to existing files are used whole so spaces survive; macOS bundles
// go through "open -a".
func launchCommand(goos, command string) (string, []string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil
	}
	if goos == "darwin" && strings.HasSuffix(command, ".app") {
		return "open", []string{"-a", command}
	}
	if _, err := os.Stat(command); err == nil {
		return command, nil
	}
	fields := strings.Fields(command)
	return fields[0], fields[1:]
}

func openURLCommand(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}

var percentVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// expandEnv expands $VAR, ${VAR} and Windows-style %VAR% references.
// Unset %VAR% references are left as written.
func expandEnv(s string) string {
	s = percentVar.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := os.LookupEnv(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
	if strings.Contains(s, "$") {
		s = os.ExpandEnv(s)
	}
	return s
}
