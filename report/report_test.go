package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
	"github.com/hupe1980/roundtable/store"
)

func sample() *core.SessionResult {
	msgs := testutil.NewTranscriptBuilder().
		Say("Persona 1", 1, "Remote work widens the hiring pool.").
		Say("Persona 2", 1, strings.Repeat("Office time builds trust. ", 10)).Flagged().
		Messages()

	r := testutil.NewResultBuilder("remote work").
		Participants(testutil.Personas("business", 2)...).
		Messages(msgs...).
		Summary("- Persona 1 likes remote hiring\n- Persona 2 values the office").
		Key("discussion_20250102_030405_abcdef12").
		Build()
	r.Summary.KeyPoints = []core.KeyPoint{{Speaker: "Persona 1", Text: "likes remote hiring"}, {Text: "office matters"}}
	return r
}

func TestWriteTranscript(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	WriteTranscript(&buf, sample())

	out := buf.String()
	req.Contains(out, "SPEAKER")
	req.Contains(out, "Remote work widens the hiring pool.")
	req.Contains(out, "violation")
	req.Contains(out, "...")
}

func TestWriteStats(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	WriteStats(&buf, sample())

	out := buf.String()
	req.Contains(out, "Persona 1")
	req.Contains(out, "role 2")
	req.Contains(out, "TOTAL")
	req.Contains(out, "length violations: 1")
}

func TestWriteOverview(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	WriteOverview(&buf, []*core.SessionResult{sample()})

	req.Contains(buf.String(), "discussion_20250102_030405_abcdef12")
	req.Contains(buf.String(), "Persona 1, Persona 2")
}

func TestSummaryDocument(t *testing.T) {
	req := require.New(t)

	doc := SummaryDocument(sample())
	req.True(strings.HasPrefix(doc, "Discussion summary - 2025-01-02 03:04:05\n"))
	req.Contains(doc, "Topic: remote work")
	req.Contains(doc, "- [Persona 1] likes remote hiring")
	req.Contains(doc, "- office matters")
	req.NotContains(doc, "Partial result")

	r := sample()
	r.Partial = true
	r.AbortReason = "turn failed"
	r.Summary = core.Summary{Error: "empty transcript"}
	doc = SummaryDocument(r)
	req.Contains(doc, "Partial result: turn failed")
	req.Contains(doc, "(no summary: empty transcript)")
	req.Contains(doc, "outside 500-3000")
}

func TestWriteMarkdown(t *testing.T) {
	req := require.New(t)

	tech := make([]*core.SessionResult, 7)
	for i := range tech {
		tech[i] = testutil.NewResultBuilder(fmt.Sprintf("AI topic %d", i+1)).
			Participants(testutil.Personas("technology", 2)...).
			Summary("Robots were discussed.").
			Build()
	}
	tech[6].State = core.StateAborted
	trends := store.GroupByTheme(append(tech, sample()), store.DefaultThemes())
	req.Len(trends, 2)

	var buf bytes.Buffer
	WriteMarkdown(&buf, trends, time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC))
	out := buf.String()

	req.True(strings.HasPrefix(out, "# Discussion log summary\n\nGenerated: 2025-05-06 07:08:09\n"))
	req.Contains(out, "- Discussions: 8\n")
	req.Contains(out, "- Themes: 2\n")
	req.Contains(out, "- Persona categories: 2\n")
	req.Contains(out, "| technology |")
	req.Contains(out, "### technology (7)")
	req.Contains(out, "### business (1)")
	req.Contains(out, "- **AI topic 5** (2025-01-02)")
	req.NotContains(out, "AI topic 6")
	req.Contains(out, "*...and 2 more*")
	req.Contains(out, "  - Participants: Persona 1, Persona 2")
	req.Contains(out, "  - Summary: Robots were discussed.")
}

func TestWriteMarkdown_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteMarkdown(&buf, nil, time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC))
	require.Contains(t, buf.String(), "- Discussions: 0\n")
	require.NotContains(t, buf.String(), "###")
}
