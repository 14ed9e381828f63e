// Package hotkey provides a global wake hotkey using gohook.
// In "toggle" mode a press wakes the assistant and the next press puts it
// back to sleep. In "hold" mode it is awake while the keys are held.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType indicates whether the assistant should wake or sleep.
type EventType int

const (
	// EventWake signals that the hotkey was activated.
	EventWake EventType = iota
	// EventSleep signals that the hotkey was deactivated.
	EventSleep
)

func (t EventType) String() string {
	if t == EventWake {
		return "wake"
	}
	return "sleep"
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages a global hotkey and emits wake/sleep events.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	ch   chan Event
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	awake bool        // toggle state
	state func() bool // current assistant state, if tracked
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "n"]).
// mode must be "hold" or "toggle".
func NewListener(keys []string, mode string) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener exits.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	switch l.mode {
	case "toggle":
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(l.toggle()) })
	default: // "hold"
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(EventWake) })
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.emit(EventSleep) })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// toggle flips the toggle state and returns the event for the new state.
func (l *Listener) toggle() EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != nil {
		l.awake = l.state()
	}
	l.awake = !l.awake
	if l.awake {
		return EventWake
	}
	return EventSleep
}

// TrackState makes a toggle listener read the assistant's state on every
// press, so a press after the assistant fell asleep on its own wakes it.
func (l *Listener) TrackState(awake func() bool) {
	l.mu.Lock()
	l.state = awake
	l.mu.Unlock()
}

func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default: // don't block if channel is full
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
