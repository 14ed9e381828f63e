// Command test-hotkey is a manual test for the global wake hotkey.
// Run it, then press Ctrl+Shift+N to see wake/sleep events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode hold|toggle] [--keys ctrl+shift+n]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/nova/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "toggle", "hotkey mode: hold or toggle")
	combo := flag.String("keys", "ctrl+shift+n", "key combination, joined with +")
	flag.Parse()

	keys := strings.Split(strings.ToLower(*combo), "+")
	fmt.Printf("Listening for %s in %q mode...\n", *combo, *mode)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(keys, *mode)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventWake:
				fmt.Println(">>> WAKE  (listening for a command)")
			case hotkey.EventSleep:
				fmt.Println("<<< SLEEP (waiting for wake phrase)")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
