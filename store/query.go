package store

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
)

// Predicate selects stored results.
type Predicate func(r *core.SessionResult) bool

// Find lists s and keeps the results matching every predicate, newest first.
func Find(ctx context.Context, s core.ResultStore, preds ...Predicate) ([]*core.SessionResult, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(r *core.SessionResult, _ int) bool {
		return lo.EveryBy(preds, func(p Predicate) bool { return p(r) })
	}), nil
}

// Search finds results mentioning query, ignoring case.
func Search(ctx context.Context, s core.ResultStore, query string) ([]*core.SessionResult, error) {
	return Find(ctx, s, MatchText(query))
}

// FilterByAgent finds results a persona called name took part in.
func FilterByAgent(ctx context.Context, s core.ResultStore, name string) ([]*core.SessionResult, error) {
	return Find(ctx, s, ByAgent(name))
}

// FilterByCategory finds results with a participant from category.
func FilterByCategory(ctx context.Context, s core.ResultStore, category string) ([]*core.SessionResult, error) {
	return Find(ctx, s, ByCategory(category))
}

// FilterByDate finds results finished within [from, to]. A zero bound is open.
func FilterByDate(ctx context.Context, s core.ResultStore, from, to time.Time) ([]*core.SessionResult, error) {
	return Find(ctx, s, Between(from, to))
}

// MatchText matches topic, participant names and roles, categories, summary
// and message text.
func MatchText(query string) Predicate {
	q := strings.ToLower(query)
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	return func(r *core.SessionResult) bool {
		if contains(r.Topic) || contains(r.Summary.Text) {
			return true
		}
		if lo.SomeBy(r.Participants, func(p core.Participant) bool {
			return contains(p.Persona.Name) || contains(p.Persona.Role) || contains(p.Persona.Category)
		}) {
			return true
		}
		return lo.SomeBy(r.Messages, func(m core.Message) bool { return contains(m.Text) })
	}
}

// ByAgent matches results with a participant called name.
func ByAgent(name string) Predicate {
	return func(r *core.SessionResult) bool {
		return lo.Contains(r.SpeakerNames(), name)
	}
}

// ByCategory matches results with a participant from category.
func ByCategory(category string) Predicate {
	return func(r *core.SessionResult) bool {
		return lo.Contains(r.Categories(), category)
	}
}

// Between matches results finished within [from, to]. A zero bound is open.
func Between(from, to time.Time) Predicate {
	return func(r *core.SessionResult) bool {
		if !from.IsZero() && r.FinishedAt.Before(from) {
			return false
		}
		if !to.IsZero() && r.FinishedAt.After(to) {
			return false
		}
		return true
	}
}

// ByState matches results that ended in state.
func ByState(state core.State) Predicate {
	return func(r *core.SessionResult) bool { return r.State == state }
}
