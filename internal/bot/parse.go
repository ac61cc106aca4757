package bot

import (
	"strings"

	"github.com/emojistats/emojistats/internal/arg"
)

// stripNoise removes the whitespace and commas people leave between the bot
// mention and the command word.
func stripNoise(s string) string {
	return strings.TrimLeft(s, ", \t\n\v\f\r")
}

// firstWord splits the command word off the front of s and returns it with
// the remaining arguments, which keep only their leading whitespace removed.
func firstWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	i := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r'
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t\n\v\f\r")
}

// leadingRef extracts a reference token from the front of s, if one is
// there, and returns it with the remainder. Plain text never matches.
func leadingRef(s string) (arg.Ref, string, bool) {
	trimmed := strings.TrimLeft(s, " \t\n\v\f\r")
	if !strings.HasPrefix(trimmed, "<") {
		return arg.Ref{}, s, false
	}
	end := strings.Index(trimmed, ">")
	if end < 0 {
		return arg.Ref{}, s, false
	}
	ref := arg.Classify(trimmed[:end+1])
	if ref.Kind == arg.Text {
		return arg.Ref{}, s, false
	}
	return ref, trimmed[end+1:], true
}
