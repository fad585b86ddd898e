// Package report renders session results as plain-text tables, summary
// documents and a Markdown overview of stored results.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/util"
	"github.com/hupe1980/roundtable/store"
)

// PreviewLength caps message text shown in transcript tables.
const PreviewLength = 80

// MarkdownPerTheme caps the results listed under each theme by WriteMarkdown.
const MarkdownPerTheme = 5

const rule = "============================================================"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if util.RuneLen(s) <= max {
		return s
	}
	return util.Truncate(s, max-3) + "..."
}

func flag(ok bool) string {
	if ok {
		return "ok"
	}
	return "violation"
}

// WriteTranscript renders the messages of r as a table.
func WriteTranscript(w io.Writer, r *core.SessionResult) {
	table := newTable(w, "#", "Round", "Speaker", "Chars", "Length", "Text")
	for _, m := range r.Messages {
		table.Append([]string{
			strconv.Itoa(m.Sequence),
			strconv.Itoa(m.Round),
			m.Speaker,
			strconv.Itoa(m.Length()),
			flag(m.LengthOK),
			preview(m.Text, PreviewLength),
		})
	}
	table.Render()
}

// WriteStats renders per-speaker counters and session totals.
func WriteStats(w io.Writer, r *core.SessionResult) {
	st := r.Stats
	table := newTable(w, "Speaker", "Role", "Category", "Messages", "Chars", "Average")
	for _, s := range st.Speakers {
		table.Append([]string{
			s.Speaker,
			s.Role,
			s.Category,
			strconv.Itoa(s.Messages),
			strconv.Itoa(s.Characters),
			fmt.Sprintf("%.1f", s.AverageLength),
		})
	}
	table.SetFooter([]string{"", "", "Total", strconv.Itoa(st.TotalMessages), strconv.Itoa(st.TotalCharacters), fmt.Sprintf("%.1f", st.AverageLength)})
	table.Render()

	fmt.Fprintf(w, "rounds completed: %d/%d, length violations: %d, retries: %d, model calls: %d, duration: %s\n",
		st.RoundsCompleted, r.Constraints.RoundCount, st.LengthViolations, st.Retries, st.ModelCalls, st.Duration.Round(time.Millisecond))
}

// WriteOverview renders one line per stored result.
func WriteOverview(w io.Writer, results []*core.SessionResult) {
	table := newTable(w, "Key", "Finished", "Topic", "Participants", "Messages", "State")
	for _, r := range results {
		table.Append([]string{
			r.Key,
			r.FinishedAt.Format("2006-01-02 15:04"),
			preview(r.Topic, 40),
			strings.Join(r.SpeakerNames(), ", "),
			strconv.Itoa(len(r.Messages)),
			string(r.State),
		})
	}
	table.Render()
}

// SummaryDocument renders the full summary text file of a result.
func SummaryDocument(r *core.SessionResult) string {
	var b bytes.Buffer

	fmt.Fprintf(&b, "Discussion summary - %s\n%s\n\n", r.FinishedAt.Format("2006-01-02 15:04:05"), rule)
	fmt.Fprintf(&b, "Topic: %s\n", r.Topic)
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(r.SpeakerNames(), ", "))
	fmt.Fprintf(&b, "State: %s\n", r.State)
	if r.Partial {
		fmt.Fprintf(&b, "Partial result: %s\n", r.AbortReason)
	}
	b.WriteString("\n")

	if r.Summary.Text != "" {
		b.WriteString(r.Summary.Text)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "(no summary: %s)\n", r.Summary.Error)
	}
	if !r.Summary.LengthOK {
		fmt.Fprintf(&b, "\n[summary length %d outside %d-%d]\n", util.RuneLen(r.Summary.Text), r.Constraints.MinSummaryLength, r.Constraints.MaxSummaryLength)
	}

	if len(r.Summary.KeyPoints) > 0 {
		b.WriteString("\nKey points:\n")
		for _, kp := range r.Summary.KeyPoints {
			if kp.Speaker != "" {
				fmt.Fprintf(&b, "- [%s] %s\n", kp.Speaker, kp.Text)
			} else {
				fmt.Fprintf(&b, "- %s\n", kp.Text)
			}
		}
	}

	b.WriteString("\n" + rule + "\n")
	WriteStats(&b, r)
	return b.String()
}

// WriteMarkdown renders stored results grouped by theme as a Markdown
// document: totals, a per-theme table and the newest results of each theme.
func WriteMarkdown(w io.Writer, trends []store.TopicTrend, generated time.Time) {
	results := lo.FlatMap(trends, func(t store.TopicTrend, _ int) []*core.SessionResult { return t.Results })
	categories := lo.Uniq(lo.FlatMap(results, func(r *core.SessionResult, _ int) []string { return r.Categories() }))

	fmt.Fprintf(w, "# Discussion log summary\n\nGenerated: %s\n\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "## Statistics\n\n- Discussions: %d\n- Themes: %d\n- Persona categories: %d\n\n", len(results), len(trends), len(categories))

	if len(trends) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Theme", "Discussions", "Messages", "Aborted"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	for _, t := range trends {
		table.Append([]string{
			t.Theme,
			strconv.Itoa(len(t.Results)),
			strconv.Itoa(lo.SumBy(t.Results, func(r *core.SessionResult) int { return len(r.Messages) })),
			strconv.Itoa(lo.CountBy(t.Results, (*core.SessionResult).Aborted)),
		})
	}
	table.Render()

	fmt.Fprint(w, "\n## Discussions by theme\n")
	for _, t := range trends {
		fmt.Fprintf(w, "\n### %s (%d)\n\n", t.Theme, len(t.Results))
		for _, r := range lo.Slice(t.Results, 0, MarkdownPerTheme) {
			summary := preview(r.Summary.Text, PreviewLength)
			if summary == "" {
				summary = "(no summary)"
			}
			fmt.Fprintf(w, "- **%s** (%s)\n", r.Topic, r.FinishedAt.Format("2006-01-02"))
			fmt.Fprintf(w, "  - Participants: %s\n", strings.Join(r.SpeakerNames(), ", "))
			fmt.Fprintf(w, "  - Summary: %s\n", summary)
		}
		if more := len(t.Results) - MarkdownPerTheme; more > 0 {
			fmt.Fprintf(w, "\n*...and %d more*\n", more)
		}
	}
}
