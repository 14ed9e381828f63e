package intent

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases text, replaces punctuation with spaces, and collapses
// whitespace. Dots, apostrophes, plus and minus signs survive inside words so
// "github.com", "it's" and "notepad++" stay intact.
func Normalize(text string) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '.', r == '\'', r == '+', r == '-':
			return r
		default:
			return ' '
		}
	}, text)

	words := strings.Fields(text)
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".'-")
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// Confusions rewrites common mis-hearings to canonical words.
type Confusions struct {
	rules []confusionRule
}

type confusionRule struct {
	re          *regexp.Regexp
	replacement string
}

// NewConfusions compiles a replacement table. Longer keys are applied first
// so multi-word phrases win over their single-word parts.
func NewConfusions(table map[string]string) *Confusions {
	keys := make([]string, 0, len(table))
	for k := range table {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	c := &Confusions{rules: make([]confusionRule, 0, len(keys))}
	for _, k := range keys {
		c.rules = append(c.rules, confusionRule{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(k)) + `\b`),
			replacement: table[k],
		})
	}
	return c
}

// Apply replaces every whole-word occurrence of each key and collapses spaces.
func (c *Confusions) Apply(text string) string {
	for _, r := range c.rules {
		text = r.re.ReplaceAllLiteralString(text, r.replacement)
	}
	return strings.Join(strings.Fields(text), " ")
}
