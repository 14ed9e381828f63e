package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// WakeDetector matches wake phrases in normalized transcripts.
type WakeDetector struct {
	patterns []*regexp.Regexp
}

// NewWakeDetector compiles the wake phrase patterns. Matching is
// case-insensitive.
func NewWakeDetector(patterns []string) (*WakeDetector, error) {
	w := &WakeDetector{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("intent: wake pattern %q: %w", p, err)
		}
		w.patterns = append(w.patterns, re)
	}
	return w, nil
}

// Detect reports whether any wake phrase occurs in text.
func (w *WakeDetector) Detect(text string) bool {
	for _, re := range w.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Strip removes every wake phrase from text.
func (w *WakeDetector) Strip(text string) string {
	for _, re := range w.patterns {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
