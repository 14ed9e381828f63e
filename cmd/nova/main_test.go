package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/nova/internal/listen"
)

func TestLogResultIncludesPartials(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	logResult(listen.Result{Text: "hey no"})
	logResult(listen.Result{Text: "hey nova mute", Final: true, Duration: 2 * time.Second})

	out := buf.String()
	if !strings.Contains(out, `msg=Partial text="hey no"`) {
		t.Errorf("partial not logged:\n%s", out)
	}
	if !strings.Contains(out, `msg=Transcript text="hey nova mute"`) {
		t.Errorf("final not logged:\n%s", out)
	}
}
