package store

import (
	"context"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
)

// OtherTheme collects results no theme keyword matched.
const OtherTheme = "other"

// Theme is a named group of topic keywords. Keywords match whole words of
// the topic and the participant categories, ignoring case.
type Theme struct {
	Name     string
	Keywords []string
}

// TopicTrend lists the results classified under one theme, newest first.
type TopicTrend struct {
	Theme   string
	Results []*core.SessionResult
}

// DefaultThemes returns the built-in classification, one theme per preset
// persona category.
func DefaultThemes() []Theme {
	return []Theme{
		{Name: "technology", Keywords: []string{"ai", "tech", "technology", "software", "programming", "digital", "robots", "robotics", "data", "internet"}},
		{Name: "business", Keywords: []string{"business", "management", "strategy", "company", "companies", "market", "economy", "work"}},
		{Name: "education", Keywords: []string{"education", "school", "schools", "learning", "university", "teaching", "teachers", "students", "research"}},
		{Name: "social", Keywords: []string{"society", "social", "politics", "policy", "law", "public", "community", "citizens"}},
		{Name: "sustainability", Keywords: []string{"environment", "climate", "sustainability", "sustainable", "energy", "renewable", "green"}},
		{Name: "healthcare", Keywords: []string{"health", "healthcare", "medical", "medicine", "hospital", "patients", "doctors"}},
	}
}

// Classify returns the first theme with a keyword in the topic or the
// participant categories of r, or OtherTheme.
func Classify(r *core.SessionResult, themes []Theme) string {
	text := strings.ToLower(r.Topic + " " + strings.Join(r.Categories(), " "))
	words := strings.FieldsFunc(text, func(c rune) bool { return !unicode.IsLetter(c) && !unicode.IsDigit(c) })

	theme, ok := lo.Find(themes, func(t Theme) bool {
		return lo.SomeBy(t.Keywords, func(k string) bool { return lo.Contains(words, strings.ToLower(k)) })
	})
	if !ok {
		return OtherTheme
	}
	return theme.Name
}

// GroupByTheme classifies results and returns the non-empty groups in theme
// order with OtherTheme last. Result order is kept within each group.
func GroupByTheme(results []*core.SessionResult, themes []Theme) []TopicTrend {
	groups := lo.GroupBy(results, func(r *core.SessionResult) string { return Classify(r, themes) })

	names := append(lo.Map(themes, func(t Theme, _ int) string { return t.Name }), OtherTheme)
	return lo.FilterMap(lo.Uniq(names), func(name string, _ int) (TopicTrend, bool) {
		rs, ok := groups[name]
		return TopicTrend{Theme: name, Results: rs}, ok
	})
}

// TopicTrends groups every stored result by theme. DefaultThemes is used
// when themes is empty.
func TopicTrends(ctx context.Context, s core.ResultStore, themes ...Theme) ([]TopicTrend, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(themes) == 0 {
		themes = DefaultThemes()
	}
	return GroupByTheme(all, themes), nil
}
