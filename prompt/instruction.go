// Package prompt renders the instructions sent to the model for participant
// turns and for summaries. An Instruction is either a text/template evaluated
// against Data or a dynamic Provider.
package prompt

import "github.com/hupe1980/roundtable/internal/util"

// Data is the template input for turn and summary prompts. Turn prompts use
// the persona fields; summary prompts use Participants.
type Data struct {
	Name         string
	Role         string
	Personality  string
	Topic        string
	History      string
	Participants string
	Round        int
	Rounds       int
	MinLength    int
	MaxLength    int
	Emphasize    bool // previous attempt was too short
	Partial      bool // the discussion ended early
	Language     string
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(Data) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(Data) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(d Data) (string, error) { return f(d) }

// Instruction represents either a static template or a dynamic provider.
// The zero value renders an empty string.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a text/template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(Data) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether the instruction was never set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(d Data) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(d)
	}
	return util.RenderTemplate(i.text, d)
}
