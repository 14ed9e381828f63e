// Package inject provides text injection into the active application
// using robotgo for keystroke simulation or clipboard paste.
package inject

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method   string // "type" or "paste"
	modifier string // paste shortcut modifier
}

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{method: method, modifier: pasteModifier(runtime.GOOS)}
}

// pasteModifier returns the modifier used with "v" to paste on goos.
func pasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Method returns the configured injection method.
func (inj *Injector) Method() string {
	if inj.method == "paste" {
		return "paste"
	}
	return "type"
}

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.Method() {
	case "paste":
		return inj.paste(text)
	default:
		return inj.typeText(text)
	}
}

// typeText simulates individual keystrokes. Preserves clipboard contents
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to the clipboard and pastes it with the platform
// shortcut. The previous clipboard contents are restored afterwards.
func (inj *Injector) paste(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := robotgo.KeyTap("v", inj.modifier); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", inj.modifier, err)
	}

	// best effort
	_ = robotgo.WriteAll(prev)

	return nil
}
