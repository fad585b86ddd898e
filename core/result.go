package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// State is the lifecycle state of a session's round scheduler.
type State string

const (
	StateIdle            State = "idle"
	StateRoundInProgress State = "round_in_progress"
	StateCompleted       State = "completed"
	StateAborted         State = "aborted"
	StateCancelled       State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateCancelled
}

// KeyPoint is a salient statement extracted from a summary.
type KeyPoint struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Summary is the condensed account of a transcript.
type Summary struct {
	Text      string     `json:"text"`
	KeyPoints []KeyPoint `json:"key_points,omitempty"`
	LengthOK  bool       `json:"length_ok"`
	Attempts  int        `json:"attempts"`
	Retries   int        `json:"retries"`
	Partial   bool       `json:"partial,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SpeakerStats aggregates the contribution of one participant.
type SpeakerStats struct {
	Speaker       string  `json:"speaker"`
	Role          string  `json:"role"`
	Category      string  `json:"category,omitempty"`
	Messages      int     `json:"messages"`
	Characters    int     `json:"characters"`
	AverageLength float64 `json:"average_length"`
}

// PhaseTimings records how long each session phase took.
type PhaseTimings struct {
	Selection  time.Duration `json:"selection"`
	Discussion time.Duration `json:"discussion"`
	Summary    time.Duration `json:"summary"`
	Persist    time.Duration `json:"persist"`
}

// Stats are derived counters of a finished session.
type Stats struct {
	TotalMessages    int            `json:"total_messages"`
	TotalCharacters  int            `json:"total_characters"`
	AverageLength    float64        `json:"average_length"`
	Speakers         []SpeakerStats `json:"speakers"`
	RoundsCompleted  int            `json:"rounds_completed"`
	LengthViolations int            `json:"length_violations"`
	Retries          int            `json:"retries"`
	ModelCalls       int            `json:"model_calls"`
	Timings          PhaseTimings   `json:"timings"`
	Duration         time.Duration  `json:"duration"`
}

// ComputeStats derives message and speaker counters from a transcript.
// Speakers are listed in participant order.
func ComputeStats(participants []Participant, messages []Message) Stats {
	bySpeaker := lo.GroupBy(messages, func(m Message) string { return m.Speaker })

	speakers := lo.Map(participants, func(p Participant, _ int) SpeakerStats {
		own := bySpeaker[p.Persona.Name]
		chars := lo.SumBy(own, func(m Message) int { return m.Length() })
		s := SpeakerStats{
			Speaker:    p.Persona.Name,
			Role:       p.Persona.Role,
			Category:   p.Persona.Category,
			Messages:   len(own),
			Characters: chars,
		}
		if len(own) > 0 {
			s.AverageLength = float64(chars) / float64(len(own))
		}
		return s
	})

	total := lo.SumBy(messages, func(m Message) int { return m.Length() })
	st := Stats{
		TotalMessages:   len(messages),
		TotalCharacters: total,
		Speakers:        speakers,
	}
	if len(messages) > 0 {
		st.AverageLength = float64(total) / float64(len(messages))
	}
	st.LengthViolations = lo.CountBy(messages, func(m Message) bool { return !m.LengthOK })
	return st
}

// SessionResult is the aggregated, immutable outcome of one discussion.
type SessionResult struct {
	ID           string        `json:"id"`
	Key          string        `json:"key"`
	Topic        string        `json:"topic"`
	Scope        string        `json:"scope"`
	Constraints  Constraints   `json:"constraints"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
	Summary      Summary       `json:"summary"`
	Stats        Stats         `json:"stats"`
	State        State         `json:"state"`
	Partial      bool          `json:"partial"`
	AbortReason  string        `json:"abort_reason,omitempty"`
	PersistError string        `json:"persist_error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Aborted reports whether the session ended on a failed turn.
func (r *SessionResult) Aborted() bool { return r.State == StateAborted }

// SpeakerNames returns participant names in turn order.
func (r *SessionResult) SpeakerNames() []string {
	return lo.Map(r.Participants, func(p Participant, _ int) string { return p.Persona.Name })
}

// Categories returns the distinct persona categories of the participants.
func (r *SessionResult) Categories() []string {
	return lo.Uniq(lo.FilterMap(r.Participants, func(p Participant, _ int) (string, bool) {
		return p.Persona.Category, p.Persona.Category != ""
	}))
}

// Clone returns a deep copy.
func (r *SessionResult) Clone() *SessionResult {
	c := *r
	c.Participants = slices.Clone(r.Participants)
	c.Messages = slices.Clone(r.Messages)
	c.Summary.KeyPoints = slices.Clone(r.Summary.KeyPoints)
	c.Stats.Speakers = slices.Clone(r.Stats.Speakers)
	return &c
}

// ResultKeyPrefix starts every derived result key.
const ResultKeyPrefix = "discussion_"

// ResultKey derives the storage key of a result finished at t. The id
// suffix keeps keys unique for sessions finishing within the same second.
func ResultKey(t time.Time, id string) string {
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s%s_%s", ResultKeyPrefix, t.Format("20060102_150405"), suffix)
}

// ResultStore persists finished sessions.
type ResultStore interface {
	// Save stores the result under its Key (deriving one when empty) and
	// returns the key used.
	Save(ctx context.Context, result *SessionResult) (string, error)
	// Get loads a result; unknown keys yield ErrNotFound.
	Get(ctx context.Context, key string) (*SessionResult, error)
	// List returns all stored results, newest first.
	List(ctx context.Context) ([]*SessionResult, error)
}
