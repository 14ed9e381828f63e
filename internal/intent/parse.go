// Package intent turns normalized transcripts into commands: it cleans up
// common recognition errors, detects wake phrases, filters chatter, and
// matches the remaining text against the supported command patterns.
package intent

import (
	"regexp"
	"strings"
)

// Kind identifies a command.
type Kind int

const (
	// None means the text was not addressed to the assistant (chatter).
	None Kind = iota
	// Unknown means the text looked like a command but matched no pattern.
	Unknown
	Search
	Close
	Open
	Time
	VolumeUp
	VolumeDown
	Mute
	Screenshot
	Type
	Sleep
)

var kindNames = map[Kind]string{
	None:       "none",
	Unknown:    "unknown",
	Search:     "search",
	Close:      "close",
	Open:       "open",
	Time:       "time",
	VolumeUp:   "volume_up",
	VolumeDown: "volume_down",
	Mute:       "mute",
	Screenshot: "screenshot",
	Type:       "type",
	Sleep:      "sleep",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Intent is a parsed command.
type Intent struct {
	Kind   Kind
	Target string // search query, app/site name, or text to type
	Text   string // cleaned command text the intent was parsed from
}

// gateWords are the first words a command may start with. Anything else is
// treated as chatter and ignored.
var gateWords = map[string]bool{
	"open": true, "launch": true, "start": true,
	"search": true, "google": true, "lookup": true, "look": true,
	"close": true,
	"time": true, "what": true, "what's": true,
	"volume": true, "increase": true, "decrease": true, "mute": true,
	"take": true, "screenshot": true,
	"type": true,
	"stop": true, "sleep": true, "go": true,
}

type rule struct {
	kind  Kind
	re    *regexp.Regexp
	group int // capture group holding the target, 0 for none
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{Search, regexp.MustCompile(`^(search for|search|google|lookup|look up)\s+(.+)$`), 2},
	{Close, regexp.MustCompile(`^close(\s+(.+))?$`), 2},
	{Open, regexp.MustCompile(`^(open|launch|start)\s+(.+)$`), 2},
	{Time, regexp.MustCompile(`^(what\s+time\s+is\s+it|time|what's the time|what is the time)$`), 0},
	{VolumeUp, regexp.MustCompile(`^(volume up|increase volume|increase the volume)$`), 0},
	{VolumeDown, regexp.MustCompile(`^(volume down|decrease volume|decrease the volume)$`), 0},
	{Mute, regexp.MustCompile(`^(mute|mute volume|mute the volume)$`), 0},
	{Screenshot, regexp.MustCompile(`^(take a screenshot|take screenshot|screenshot)$`), 0},
	{Type, regexp.MustCompile(`^type\s+(.+)$`), 1},
	{Sleep, regexp.MustCompile(`^(stop|sleep|go to sleep)$`), 0},
}

// Parser classifies cleaned command text.
type Parser struct {
	confusions *Confusions
}

// NewParser creates a Parser applying the given confusion table.
func NewParser(confusions map[string]string) *Parser {
	return &Parser{confusions: NewConfusions(confusions)}
}

// Clean applies the confusion table to normalized text. It runs before
// wake detection so mis-heard wake words can be corrected too.
func (p *Parser) Clean(text string) string {
	return p.confusions.Apply(text)
}

// Parse cleans and classifies normalized text (wake phrase already removed).
func (p *Parser) Parse(text string) Intent {
	return p.Classify(p.Clean(text))
}

// Classify matches cleaned text with the wake phrase removed against the
// command rules.
func (p *Parser) Classify(clean string) Intent {
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return Intent{Kind: None}
	}

	first := clean
	if i := strings.IndexByte(clean, ' '); i >= 0 {
		first = clean[:i]
	}
	if !gateWords[first] {
		return Intent{Kind: None, Text: clean}
	}

	for _, r := range rules {
		m := r.re.FindStringSubmatch(clean)
		if m == nil {
			continue
		}
		in := Intent{Kind: r.kind, Text: clean}
		if r.group > 0 {
			in.Target = strings.TrimSpace(m[r.group])
		}
		return in
	}

	return Intent{Kind: Unknown, Text: clean}
}

var typeVerb = regexp.MustCompile(`(?is)\btype\b[\s,:;.!-]*(.*)$`)

// TypedText returns what follows the first "type" in a raw transcript,
// with its case and punctuation intact.
func TypedText(raw string) (string, bool) {
	m := typeVerb.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	text := strings.TrimSpace(m[1])
	return text, text != ""
}
