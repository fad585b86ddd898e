package core

import (
	"fmt"
	"math/rand/v2"
	"unicode/utf8"
)

// ScopeMixed selects personas across every category of a registry.
const ScopeMixed = "mixed"

// Persona is an immutable role/personality template used to bias prompts.
type Persona struct {
	ID          string `json:"id" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Personality string `json:"personality" yaml:"personality"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// String renders the persona as "Name (Role): Personality".
func (p Persona) String() string {
	return fmt.Sprintf("%s (%s): %s", p.Name, p.Role, p.Personality)
}

// PersonaRegistry supplies personas for a session.
type PersonaRegistry interface {
	// Select returns count distinct personas drawn from scope (a category
	// name or ScopeMixed). All randomness comes from rng; a nil rng yields
	// the first count personas in catalog order.
	Select(rng *rand.Rand, count int, scope string) ([]Persona, error)
	// Lookup returns the personas of a category.
	Lookup(category string) ([]Persona, error)
}

// Participant binds a persona to a fixed position in the turn order of a
// session and tracks its contribution counters.
type Participant struct {
	Persona      Persona `json:"persona"`
	Position     int     `json:"position"`
	MessageCount int     `json:"message_count"`
	CharCount    int     `json:"char_count"`
}

// NewParticipants assigns positions 1..n in the given order.
func NewParticipants(personas []Persona) []*Participant {
	out := make([]*Participant, len(personas))
	for i, p := range personas {
		out[i] = &Participant{Persona: p, Position: i + 1}
	}
	return out
}

// Name returns the persona name.
func (p *Participant) Name() string { return p.Persona.Name }

// Record updates the contribution counters with an accepted message.
func (p *Participant) Record(text string) {
	p.MessageCount++
	p.CharCount += utf8.RuneCountInString(text)
}
