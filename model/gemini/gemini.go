// Package gemini provides a model wrapper for the Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

// DefaultModel is the Gemini model used when Options.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
}

// Model wraps the Gemini GenerateContent API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini client for the Gemini API backend. Without an
// explicit APIKey the client reads GOOGLE_API_KEY / GEMINI_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:           DefaultModel,
		Temperature:     0.8,
		MaxOutputTokens: 4096,
	}
}

// Generate sends one GenerateContent request.
func (m *Model) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: int32(model.TokenBudget(req.MaxLength, int64(m.opts.MaxOutputTokens))),
	}
	if req.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return model.Response{}, fmt.Errorf("gemini api error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return model.Response{}, fmt.Errorf("%w: gemini returned no candidates", core.ErrGenerationFailure)
	}

	out := model.Response{
		Text:         resp.Text(),
		FinishReason: string(resp.Candidates[0].FinishReason),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     m.opts.Model,
		Provider: "gemini",
	}
}
