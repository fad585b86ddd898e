package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Request captures the normalized model input.
type Request struct {
	// Instructions is an optional system-level preamble.
	Instructions string `json:"instructions,omitempty"`
	// Prompt is the fully rendered user prompt.
	Prompt string `json:"prompt"`
	// MaxLength is a soft output length hint in characters; 0 means none.
	MaxLength int `json:"max_length,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion of a generation call.
type Response struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// TotalTokens returns the reported token usage, or 0 when the backend did not
// report any.
func (r Response) TotalTokens() int {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "gemini", "stub"
}

// Model is the minimal interface required by the turn executor and the
// summarizer. Implementations must honor ctx cancellation and deadlines.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TokenBudget converts a character length hint into an output token budget.
// Roughly one token per character leaves headroom for multi-byte scripts;
// fallback applies when no hint is set.
func TokenBudget(maxLength int, fallback int64) int64 {
	if maxLength <= 0 {
		return fallback
	}
	budget := int64(maxLength) + 64
	if fallback > 0 && budget > fallback {
		return fallback
	}
	return budget
}

// StubReply is one scripted StubModel outcome.
type StubReply struct {
	Text  string
	Err   error
	Delay time.Duration
	Usage *TokenUsage
}

// StubModel is a deterministic in‑memory Model useful for tests & examples.
// Scripted replies are consumed in order and the last one repeats. Without
// replies (or a reply func) it echoes the prompt.
type StubModel struct {
	info    Info
	replies []StubReply
	fn      func(call int, req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

// NewStubModel constructs a StubModel returning the scripted replies.
func NewStubModel(name string, replies ...StubReply) *StubModel {
	return &StubModel{info: Info{Name: name, Provider: "stub"}, replies: replies}
}

// NewStubModelFunc constructs a StubModel delegating to fn. call is 1-based.
func NewStubModelFunc(name string, fn func(call int, req Request) (string, error)) *StubModel {
	return &StubModel{info: Info{Name: name, Provider: "stub"}, fn: fn}
}

// Generate implements Model.
func (m *StubModel) Generate(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	call := len(m.calls)
	m.mu.Unlock()

	if m.fn != nil {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		text, err := m.fn(call, req)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: text, FinishReason: "stop"}, nil
	}

	if len(m.replies) == 0 {
		return Response{Text: fmt.Sprintf("Stub response to: %s", req.Prompt), FinishReason: "stop"}, nil
	}

	reply := m.replies[min(call, len(m.replies))-1]
	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if reply.Err != nil {
		return Response{}, reply.Err
	}
	return Response{Text: reply.Text, FinishReason: "stop", Usage: reply.Usage}, nil
}

// Calls returns a copy of every request received so far.
func (m *StubModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate invocations.
func (m *StubModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Info implements Model interface.
func (m *StubModel) Info() Info { return m.info }
