package summary

import (
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/util"
)

// DefaultMaxKeyPoints caps the number of extracted key points.
const DefaultMaxKeyPoints = 10

// ExtractKeyPoints returns the bullet or numbered lines of text as key points,
// attributing each to the first speaker whose name it mentions. max <= 0
// means no cap.
func ExtractKeyPoints(text string, speakers []string, max int) []core.KeyPoint {
	var out []core.KeyPoint
	for _, line := range strings.Split(text, "\n") {
		point, ok := stripMarker(strings.TrimSpace(line))
		if !ok || point == "" {
			continue
		}
		kp := core.KeyPoint{Text: point}
		for _, s := range speakers {
			if s != "" && strings.Contains(point, s) {
				kp.Speaker = s
				break
			}
		}
		out = append(out, kp)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// LastWordsLength caps the text of a key point taken from a message.
const LastWordsLength = 200

// LastWords returns one key point per speaker holding that speaker's last
// message, in order of first appearance.
func LastWords(msgs []core.Message, max int) []core.KeyPoint {
	last := lo.Associate(msgs, func(m core.Message) (string, string) { return m.Speaker, m.Text })
	out := lo.Map(lo.Uniq(lo.Map(msgs, func(m core.Message, _ int) string { return m.Speaker })), func(s string, _ int) core.KeyPoint {
		return core.KeyPoint{Speaker: s, Text: util.Truncate(last[s], LastWordsLength)}
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// stripMarker removes a leading "-", "*", "•" or "N." / "N)" list marker.
func stripMarker(line string) (string, bool) {
	for _, m := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):]), true
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) {
		return "", false
	}
	if (line[i] == '.' || line[i] == ')') && unicode.IsSpace(rune(line[i+1])) {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}
