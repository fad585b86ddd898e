package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/retry"
	"github.com/hupe1980/roundtable/internal/util"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/prompt"
)

// Defaults applied by NewExecutor.
const (
	DefaultRetryBudget   = 2
	DefaultCallTimeout   = 60 * time.Second
	DefaultContextWindow = 10
)

// Status classifies the outcome of a turn.
type Status int

const (
	// StatusSuccess means the reply satisfied the length bounds.
	StatusSuccess Status = iota
	// StatusDegraded means a reply was accepted outside the bounds.
	StatusDegraded
	// StatusFailed means no usable reply was produced.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Turn is the input of one participant turn.
type Turn struct {
	Speaker     core.Persona
	Topic       string
	Round       int
	Rounds      int
	History     []core.Message
	Constraints core.Constraints
}

// Outcome is the result of one participant turn.
type Outcome struct {
	Text      string
	LengthOK  bool
	Status    Status
	Attempts  int
	Retries   int
	Truncated bool
	// Responded is set when the model answered at least once, even with
	// unusable text.
	Responded bool
	Err       error
	Elapsed   time.Duration
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Instruction   prompt.Instruction
	RetryBudget   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	CallTimeout   time.Duration
	ContextWindow int
	Language      string
	Budget        *core.CallBudget
	Logger        logging.Logger
}

// Executor produces participant messages with a model.
type Executor struct {
	llm  model.Model
	opts ExecutorOptions
}

// NewExecutor creates an executor with sensible defaults:
//   - the default turn prompt
//   - two retries with 2s..15s exponential backoff
//   - a 60s per-call deadline
//   - the last 10 messages as context
func NewExecutor(llm model.Model, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Instruction:   prompt.DefaultTurnInstruction(),
		RetryBudget:   DefaultRetryBudget,
		BaseDelay:     retry.DefaultBaseDelay,
		MaxDelay:      retry.DefaultMaxDelay,
		CallTimeout:   DefaultCallTimeout,
		ContextWindow: DefaultContextWindow,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = prompt.DefaultTurnInstruction()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Executor{llm: llm, opts: opts}
}

// Produce runs one turn. It never returns a nil Outcome; failures are
// reported through Status and Err.
func (e *Executor) Produce(ctx context.Context, turn Turn) Outcome {
	start := time.Now()
	out := Outcome{Status: StatusFailed}
	c := turn.Constraints

	data := prompt.Data{
		Name:        turn.Speaker.Name,
		Role:        turn.Speaker.Role,
		Personality: turn.Speaker.Personality,
		Topic:       turn.Topic,
		History:     core.FormatMessages(core.Window(turn.History, e.opts.ContextWindow)),
		Round:       turn.Round,
		Rounds:      turn.Rounds,
		MinLength:   c.MinMessageLength,
		MaxLength:   c.MaxMessageLength,
		Language:    e.opts.Language,
	}

	policy := retry.Policy{Retries: e.opts.RetryBudget, BaseDelay: e.opts.BaseDelay, MaxDelay: e.opts.MaxDelay}

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

		p, err := e.opts.Instruction.Resolve(data)
		if err != nil {
			lastErr = fmt.Errorf("render turn prompt: %w", err)
			break
		}

		text, err := e.call(ctx, p, c.MaxMessageLength, turn.Speaker.Name, attempt)
		if err != nil {
			lastErr = err
			failures++
			if !retry.Retryable(ctx, err) {
				break
			}
			continue
		}
		lastErr = nil
		out.Responded = true

		text = strings.TrimSpace(text)
		n := util.RuneLen(text)

		if n > c.MaxMessageLength {
			out.Text = util.Truncate(text, c.MaxMessageLength)
			out.Truncated = true
			out.Status = StatusDegraded
			return e.finish(out, turn, start)
		}
		if c.MessageLengthOK(n) {
			out.Text = text
			out.LengthOK = true
			out.Status = StatusSuccess
			return e.finish(out, turn, start)
		}

		if n > util.RuneLen(best) {
			best = text
		}
		data.Emphasize = true
	}

	if best != "" {
		out.Text = best
		out.Status = StatusDegraded
		return e.finish(out, turn, start)
	}

	cause := retry.Classify(lastErr)
	if cause == nil {
		cause = fmt.Errorf("%w: model returned no text", core.ErrLengthViolation)
	}
	out.Err = &core.TurnError{Speaker: turn.Speaker.Name, Round: turn.Round, Attempts: out.Attempts, Err: cause}
	return e.finish(out, turn, start)
}

// call performs one model invocation under the per-call deadline.
func (e *Executor) call(ctx context.Context, p string, maxLength int, speaker string, attempt int) (string, error) {
	if err := e.opts.Budget.Spend(); err != nil {
		return "", err
	}

	callCtx := ctx
	if e.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
	}

	began := time.Now()
	resp, err := e.llm.Generate(callCtx, model.Request{Prompt: p, MaxLength: maxLength})
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = errors.Join(core.ErrGenerationTimeout, err)
	}

	elapsed := time.Since(began)

	if l, ok := e.opts.Logger.(*logging.ContextLogger); ok {
		l.WithContext("speaker", speaker).LogModelCall(e.llm.Info().Name, attempt, resp.TotalTokens(), elapsed, err)
	} else {
		args := []any{"speaker", speaker, "model", e.llm.Info().Name, "attempt", attempt, "tokens", resp.TotalTokens(), "duration", elapsed}
		if err != nil {
			e.opts.Logger.Warn("model call failed", append(args, "error", err)...)
		} else {
			e.opts.Logger.Debug("model call completed", args...)
		}
	}
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *Executor) finish(out Outcome, turn Turn, start time.Time) Outcome {
	out.Elapsed = time.Since(start)
	switch out.Status {
	case StatusFailed:
		e.opts.Logger.Error("turn failed", "speaker", turn.Speaker.Name, "round", turn.Round, "attempts", out.Attempts, "error", out.Err)
	case StatusDegraded:
		e.opts.Logger.Warn("turn accepted outside length bounds", "speaker", turn.Speaker.Name, "round", turn.Round,
			"length", util.RuneLen(out.Text), "truncated", out.Truncated, "attempts", out.Attempts)
	}
	return out
}
