package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/roundtable/core"
)

// Personas returns n distinct personas named "Persona 1".."Persona n" in category.
func Personas(category string, n int) []core.Persona {
	out := make([]core.Persona, n)
	for i := range out {
		out[i] = core.Persona{
			ID:          fmt.Sprintf("%s:persona-%d", category, i+1),
			Name:        fmt.Sprintf("Persona %d", i+1),
			Role:        fmt.Sprintf("role %d", i+1),
			Personality: "curious and concise",
			Category:    category,
		}
	}
	return out
}

// Text returns a string of exactly n characters.
func Text(n int) string { return strings.Repeat("x", n) }

// TranscriptBuilder helps construct transcripts with fluent chaining for tests.
// Example:
//
//	tr := NewTranscriptBuilder().Say("Ann", 1, "hello").Say("Bob", 1, "hi").Build()
type TranscriptBuilder struct {
	msgs []core.Message
	now  time.Time
}

// NewTranscriptBuilder creates an empty builder with a fixed base timestamp.
func NewTranscriptBuilder() *TranscriptBuilder {
	return &TranscriptBuilder{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// Say appends a length-conforming message (chainable).
func (b *TranscriptBuilder) Say(speaker string, round int, text string) *TranscriptBuilder {
	b.msgs = append(b.msgs, core.Message{
		Speaker:   speaker,
		Round:     round,
		Text:      text,
		Timestamp: b.now.Add(time.Duration(len(b.msgs)) * time.Second),
		LengthOK:  true,
		Attempts:  1,
	})
	return b
}

// Flagged marks the last appended message as outside its length bounds (chainable).
func (b *TranscriptBuilder) Flagged() *TranscriptBuilder {
	if len(b.msgs) > 0 {
		b.msgs[len(b.msgs)-1].LengthOK = false
	}
	return b
}

// Build returns a *core.Transcript containing the messages in order.
func (b *TranscriptBuilder) Build() *core.Transcript {
	t := core.NewTranscript()
	for _, m := range b.msgs {
		t.Append(m)
	}
	return t
}

// Messages returns the messages with sequence numbers assigned.
func (b *TranscriptBuilder) Messages() []core.Message { return b.Build().Messages() }

// ResultBuilder helps construct session results for store tests.
type ResultBuilder struct {
	r core.SessionResult
}

// NewResultBuilder creates a completed result with default constraints.
func NewResultBuilder(topic string) *ResultBuilder {
	finished := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &ResultBuilder{r: core.SessionResult{
		ID:          core.NewID(),
		Topic:       topic,
		Scope:       core.ScopeMixed,
		Constraints: core.DefaultConstraints(),
		State:       core.StateCompleted,
		StartedAt:   finished.Add(-time.Minute),
		FinishedAt:  finished,
	}}
}

// Participants sets the participants from personas (chainable).
func (b *ResultBuilder) Participants(ps ...core.Persona) *ResultBuilder {
	b.r.Participants = nil
	for _, p := range core.NewParticipants(ps) {
		b.r.Participants = append(b.r.Participants, *p)
	}
	return b
}

// Messages sets the transcript messages (chainable).
func (b *ResultBuilder) Messages(msgs ...core.Message) *ResultBuilder {
	b.r.Messages = msgs
	return b
}

// Summary sets the summary text (chainable).
func (b *ResultBuilder) Summary(text string) *ResultBuilder {
	b.r.Summary = core.Summary{Text: text, LengthOK: true, Attempts: 1}
	return b
}

// FinishedAt overrides the finish time (chainable).
func (b *ResultBuilder) FinishedAt(t time.Time) *ResultBuilder {
	b.r.StartedAt = t.Add(-time.Minute)
	b.r.FinishedAt = t
	return b
}

// Key sets an explicit storage key (chainable).
func (b *ResultBuilder) Key(k string) *ResultBuilder {
	b.r.Key = k
	return b
}

// Build returns the result with stats computed from its messages.
func (b *ResultBuilder) Build() *core.SessionResult {
	r := b.r
	r.Stats = core.ComputeStats(r.Participants, r.Messages)
	return r.Clone()
}
