package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/retry"
	"github.com/hupe1980/roundtable/logging"
)

// ErrAlreadyRun is returned when Run is invoked on a used Scheduler.
var ErrAlreadyRun = errors.New("scheduler already ran")

// TurnProducer produces the outcome of one participant turn.
type TurnProducer interface {
	Produce(ctx context.Context, turn agent.Turn) agent.Outcome
}

// Options configures a Scheduler.
type Options struct {
	// RoundInterval is an optional pause between rounds.
	RoundInterval time.Duration

	// Callbacks receives lifecycle hooks. New allocates an empty manager.
	Callbacks *CallbackManager

	// Logger defaults to a NoOp logger if nil.
	Logger logging.Logger
}

// Plan describes the session a Scheduler runs.
type Plan struct {
	Topic        string
	Participants []*core.Participant
	Constraints  core.Constraints
}

// Report is the outcome of a scheduler run. Transcript is never nil.
type Report struct {
	State           core.State
	Transcript      *core.Transcript
	RoundsCompleted int
	Retries         int
	Err             error
	Elapsed         time.Duration
}

// Partial reports whether fewer messages than planned were produced.
func (r Report) Partial() bool { return r.State != core.StateCompleted }

// Scheduler drives the rounds of a single session. State and Round are safe
// to read from other goroutines while Run executes.
type Scheduler struct {
	producer TurnProducer
	opts     Options

	mu    sync.RWMutex
	state core.State
	round int
}

// New creates an idle Scheduler.
func New(producer TurnProducer, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Callbacks: NewCallbackManager(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Scheduler{producer: producer, opts: opts, state: core.StateIdle}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Round returns the round currently (or last) in progress; 0 before start.
func (s *Scheduler) Round() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// Run executes the plan until completion, a failed turn, or cancellation.
func (s *Scheduler) Run(ctx context.Context, plan Plan) Report {
	start := time.Now()
	report := Report{State: core.StateIdle, Transcript: core.NewTranscript()}

	if st := s.State(); st != core.StateIdle {
		report.State = st
		report.Err = ErrAlreadyRun
		return report
	}
	if len(plan.Participants) == 0 || plan.Constraints.RoundCount < 1 {
		report.Err = fmt.Errorf("%w: plan needs participants and at least one round", core.ErrInvalidConfiguration)
		return s.finish(ctx, report, core.StateAborted, start)
	}

	rounds := plan.Constraints.RoundCount
	for r := 1; r <= rounds; r++ {
		s.setRound(r)
		s.transition(ctx, core.StateRoundInProgress)
		s.opts.Logger.Debug("round started", "round", r, "of", rounds)

		for _, p := range plan.Participants {
			if err := ctx.Err(); err != nil {
				report.Err = err
				return s.finish(ctx, report, core.StateCancelled, start)
			}

			state, err := s.turn(ctx, plan, p, r, &report)
			if err != nil {
				report.Err = err
				return s.finish(ctx, report, state, start)
			}
		}

		report.RoundsCompleted = r
		if err := s.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnRoundComplete, &CallbackContext{Topic: plan.Topic, Round: r}); err != nil {
			report.Err = err
			return s.finish(ctx, report, core.StateAborted, start)
		}

		if r < rounds && s.opts.RoundInterval > 0 {
			if err := retry.Wait(ctx, s.opts.RoundInterval); err != nil {
				report.Err = err
				return s.finish(ctx, report, core.StateCancelled, start)
			}
		}
	}

	return s.finish(ctx, report, core.StateCompleted, start)
}

// turn runs one participant turn and appends its message. A non-nil error
// carries the terminal state the session must move to.
func (s *Scheduler) turn(ctx context.Context, plan Plan, p *core.Participant, round int, report *Report) (core.State, error) {
	cc := &CallbackContext{Topic: plan.Topic, Round: round, Speaker: p}
	if err := s.opts.Callbacks.ExecuteCallbacks(ctx, CallbackBeforeTurn, cc); err != nil {
		return core.StateAborted, err
	}

	out := s.producer.Produce(ctx, agent.Turn{
		Speaker:     p.Persona,
		Topic:       plan.Topic,
		Round:       round,
		Rounds:      plan.Constraints.RoundCount,
		History:     report.Transcript.Messages(),
		Constraints: plan.Constraints,
	})
	report.Retries += out.Retries

	if out.Status == agent.StatusFailed {
		if out.Responded {
			msg := report.Transcript.Append(s.message(p, round, out))
			p.Record(msg.Text)
		}
		err := out.Err
		if err == nil {
			err = &core.TurnError{Speaker: p.Name(), Round: round, Attempts: out.Attempts, Err: core.ErrGenerationFailure}
		}
		_ = s.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnError, &CallbackContext{Topic: plan.Topic, Round: round, Speaker: p, Err: err})
		if ctx.Err() != nil {
			return core.StateCancelled, err
		}
		return core.StateAborted, err
	}

	msg := report.Transcript.Append(s.message(p, round, out))
	p.Record(msg.Text)

	if l, ok := s.opts.Logger.(*logging.ContextLogger); ok {
		l.LogTurn(msg.Speaker, round, msg.Sequence, msg.Length(), msg.LengthOK, msg.Attempts)
	} else {
		s.opts.Logger.Info("turn completed", "speaker", msg.Speaker, "round", round, "sequence", msg.Sequence, "length_ok", msg.LengthOK)
	}

	cc.Message = &msg
	if err := s.opts.Callbacks.ExecuteCallbacks(ctx, CallbackAfterTurn, cc); err != nil {
		return core.StateAborted, err
	}
	return "", nil
}

func (s *Scheduler) message(p *core.Participant, round int, out agent.Outcome) core.Message {
	return core.Message{
		Speaker:  p.Name(),
		Role:     p.Persona.Role,
		Position: p.Position,
		Round:    round,
		Text:     out.Text,
		LengthOK: out.LengthOK,
		Attempts: out.Attempts,
	}
}

func (s *Scheduler) setRound(r int) {
	s.mu.Lock()
	s.round = r
	s.mu.Unlock()
}

func (s *Scheduler) transition(ctx context.Context, to core.State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	round := s.round
	s.mu.Unlock()

	if from == to && to != core.StateRoundInProgress {
		return
	}
	if err := s.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnStateChange, &CallbackContext{Round: round, From: from, To: to}); err != nil {
		s.opts.Logger.Warn("state change callback failed", "from", from, "to", to, "error", err)
	}
}

func (s *Scheduler) finish(ctx context.Context, report Report, state core.State, start time.Time) Report {
	s.transition(context.WithoutCancel(ctx), state)
	report.State = state
	report.Elapsed = time.Since(start)

	args := []any{"state", state, "messages", report.Transcript.Len(), "rounds_completed", report.RoundsCompleted, "duration", report.Elapsed}
	if report.Err != nil {
		s.opts.Logger.Warn("discussion stopped early", append(args, "error", report.Err)...)
	} else {
		s.opts.Logger.Info("discussion completed", args...)
	}
	return report
}
