package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Hello {{.Name}}, {{default \"n/a\" .Missing}}", map[string]any{"Name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann, n/a", out)

	out, err = RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	_, err = RenderTemplate("{{.Broken", nil)
	assert.Error(t, err)
}

func TestRenderTemplate_DoesNotEscape(t *testing.T) {
	out, err := RenderTemplate("{{.Text}}", struct{ Text string }{"<b>&'quote'"})
	require.NoError(t, err)
	assert.Equal(t, "<b>&'quote'", out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "ab", Truncate("ab   cd", 4))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.LessOrEqual(t, RuneLen(Truncate("ääääää", 3)), 3)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "AI_in_education", SafeName("AI in education?", 0))
	assert.Equal(t, "remote-work", SafeName("  remote-work!!! ", 0))
	assert.Equal(t, "abc", SafeName("abcdef", 3))
	assert.Equal(t, "untitled", SafeName("???", 0))
	assert.Equal(t, "教育のAI", SafeName("教育のAI", 0))
}
