package transcribe

import (
	"regexp"
	"strings"
)

// annotationPattern matches non-speech markers whisper emits for silence,
// music and noises: [BLANK_AUDIO], (music), *cough*, ♪ ... ♪.
var annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*|♪[^♪]*♪?`)

// CleanText strips whisper annotations and collapses whitespace.
func CleanText(text string) string {
	text = annotationPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
