package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuneLen returns the length of s in characters.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// Truncate cuts s to at most max characters. The result never exceeds max.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max]), unicode.IsSpace)
}

// SafeName reduces s to letters, digits, dashes and underscores, replacing
// runs of anything else with a single underscore and capping the result at
// max characters. It is meant for file names derived from free text.
func SafeName(s string, max int) string {
	var b strings.Builder
	lastUnderscore := false
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if max > 0 && n >= max {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if lastUnderscore {
				continue
			}
			b.WriteByte('_')
			lastUnderscore = true
		}
		n++
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "untitled"
	}
	return out
}
