// Package summary condenses a discussion transcript into a bounded-length
// summary with speaker-attributed key points.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/retry"
	"github.com/hupe1980/roundtable/internal/util"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/prompt"
)

// Defaults applied by New.
const (
	DefaultRetryBudget = 3
	DefaultCallTimeout = 120 * time.Second
)

// ErrEmptyTranscript is recorded when there is nothing to summarize.
var ErrEmptyTranscript = errors.New("empty transcript")

// Input is what the summarizer condenses.
type Input struct {
	Topic        string
	Messages     []core.Message
	Participants []core.Participant
	Constraints  core.Constraints
	// Partial marks a transcript of a session that ended early.
	Partial bool
}

// Options configures a Summarizer.
type Options struct {
	Instruction  prompt.Instruction
	RetryBudget  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	CallTimeout  time.Duration
	Language     string
	MaxKeyPoints int
	Budget       *core.CallBudget
	Logger       logging.Logger
}

// Summarizer produces summaries with a model.
type Summarizer struct {
	llm  model.Model
	opts Options
}

// New creates a Summarizer with three retries and a 120s per-call deadline.
func New(llm model.Model, optFns ...func(o *Options)) *Summarizer {
	opts := Options{
		Instruction:  prompt.DefaultSummaryInstruction(),
		RetryBudget:  DefaultRetryBudget,
		BaseDelay:    retry.DefaultBaseDelay,
		MaxDelay:     retry.DefaultMaxDelay,
		CallTimeout:  DefaultCallTimeout,
		MaxKeyPoints: DefaultMaxKeyPoints,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = prompt.DefaultSummaryInstruction()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Summarizer{llm: llm, opts: opts}
}

// Summarize condenses the transcript. It always returns a Summary: either
// within the summary bounds, or the best available text flagged with
// LengthOK=false (empty with Error set when nothing usable came back).
func (s *Summarizer) Summarize(ctx context.Context, in Input) core.Summary {
	out := core.Summary{Partial: in.Partial}
	if len(in.Messages) == 0 {
		out.Error = ErrEmptyTranscript.Error()
		return out
	}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}

	c := in.Constraints
	data := prompt.Data{
		Topic:        in.Topic,
		History:      core.FormatMessages(in.Messages),
		Participants: participantList(in),
		MinLength:    c.MinSummaryLength,
		MaxLength:    c.MaxSummaryLength,
		Partial:      in.Partial,
		Language:     s.opts.Language,
	}

	policy := retry.Policy{Retries: s.opts.RetryBudget, BaseDelay: s.opts.BaseDelay, MaxDelay: s.opts.MaxDelay}

	var (
		best     string
		lastErr  error
		failures int
	)

	for attempt := 1; attempt <= policy.Attempts(); attempt++ {
		if attempt > 1 {
			out.Retries++
			if lastErr != nil {
				if err := retry.Wait(ctx, policy.Backoff(failures)); err != nil {
					lastErr = err
					break
				}
			}
		}
		out.Attempts = attempt

		p, err := s.opts.Instruction.Resolve(data)
		if err != nil {
			lastErr = fmt.Errorf("render summary prompt: %w", err)
			break
		}

		text, err := s.call(ctx, p, c.MaxSummaryLength, attempt)
		if err != nil {
			lastErr = err
			failures++
			if !retry.Retryable(ctx, err) {
				break
			}
			continue
		}
		lastErr = nil

		text = strings.TrimSpace(text)
		n := util.RuneLen(text)

		if n > c.MaxSummaryLength {
			return s.finish(out, util.Truncate(text, c.MaxSummaryLength), false, in.Messages)
		}
		if c.SummaryLengthOK(n) {
			return s.finish(out, text, true, in.Messages)
		}

		if n > util.RuneLen(best) {
			best = text
		}
		data.Emphasize = true
	}

	if best == "" && lastErr != nil {
		out.Error = retry.Classify(lastErr).Error()
	}
	return s.finish(out, best, false, in.Messages)
}

func (s *Summarizer) call(ctx context.Context, p string, maxLength int, attempt int) (string, error) {
	if err := s.opts.Budget.Spend(); err != nil {
		return "", err
	}

	callCtx := ctx
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	began := time.Now()
	resp, err := s.llm.Generate(callCtx, model.Request{Prompt: p, MaxLength: maxLength})
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = errors.Join(core.ErrGenerationTimeout, err)
	}
	elapsed := time.Since(began)

	if l, ok := s.opts.Logger.(*logging.ContextLogger); ok {
		l.WithComponent("summarizer").LogModelCall(s.llm.Info().Name, attempt, resp.TotalTokens(), elapsed, err)
	} else if err != nil {
		s.opts.Logger.Warn("summary call failed", "attempt", attempt, "duration", elapsed, "error", err)
	} else {
		s.opts.Logger.Debug("summary call completed", "attempt", attempt, "tokens", resp.TotalTokens(), "duration", elapsed)
	}
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *Summarizer) finish(out core.Summary, text string, lengthOK bool, msgs []core.Message) core.Summary {
	out.Text = text
	out.LengthOK = lengthOK
	speakers := lo.Uniq(lo.Map(msgs, func(m core.Message, _ int) string { return m.Speaker }))
	out.KeyPoints = ExtractKeyPoints(text, speakers, s.opts.MaxKeyPoints)
	if len(out.KeyPoints) == 0 && text != "" {
		out.KeyPoints = LastWords(msgs, s.opts.MaxKeyPoints)
	}
	if !lengthOK {
		s.opts.Logger.Warn("summary outside length bounds", "length", util.RuneLen(text), "attempts", out.Attempts)
	}
	return out
}

func participantList(in Input) string {
	if len(in.Participants) > 0 {
		return strings.Join(lo.Map(in.Participants, func(p core.Participant, _ int) string {
			return fmt.Sprintf("%s (%s)", p.Persona.Name, p.Persona.Role)
		}), ", ")
	}
	return strings.Join(lo.Uniq(lo.Map(in.Messages, func(m core.Message, _ int) string { return m.Speaker })), ", ")
}
