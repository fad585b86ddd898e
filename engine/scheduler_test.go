package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
	"github.com/hupe1980/roundtable/model"
)

func newPlan(participants, rounds int) Plan {
	c := core.DefaultConstraints()
	c.ParticipantCount = participants
	c.RoundCount = rounds
	return Plan{
		Topic:        "remote work",
		Participants: core.NewParticipants(testutil.Personas("business", participants)),
		Constraints:  c,
	}
}

func fastExecutor(llm model.Model) *agent.Executor {
	return agent.NewExecutor(llm, func(o *agent.ExecutorOptions) {
		o.BaseDelay = time.Millisecond
		o.MaxDelay = time.Millisecond
	})
}

// producerFunc adapts a function to TurnProducer.
type producerFunc func(ctx context.Context, turn agent.Turn) agent.Outcome

func (f producerFunc) Produce(ctx context.Context, turn agent.Turn) agent.Outcome { return f(ctx, turn) }

func ok(text string) agent.Outcome {
	return agent.Outcome{Text: text, LengthOK: true, Status: agent.StatusSuccess, Attempts: 1}
}

func TestScheduler_RoundRobinOrder(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: testutil.Text(100)})
	plan := newPlan(3, 2)

	s := New(fastExecutor(stub))
	report := s.Run(context.Background(), plan)

	require.NoError(t, report.Err)
	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, core.StateCompleted, s.State())
	assert.False(t, report.Partial())
	assert.Equal(t, 2, report.RoundsCompleted)

	msgs := report.Transcript.Messages()
	require.Len(t, msgs, 6)

	wantSpeakers := []string{"Persona 1", "Persona 2", "Persona 3", "Persona 1", "Persona 2", "Persona 3"}
	wantRounds := []int{1, 1, 1, 2, 2, 2}
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Sequence)
		assert.Equal(t, wantSpeakers[i], m.Speaker)
		assert.Equal(t, wantRounds[i], m.Round)
		assert.True(t, m.LengthOK)
		assert.GreaterOrEqual(t, m.Length(), plan.Constraints.MinMessageLength)
		assert.LessOrEqual(t, m.Length(), plan.Constraints.MaxMessageLength)
	}

	for _, p := range plan.Participants {
		assert.Equal(t, 2, p.MessageCount)
		assert.Equal(t, 200, p.CharCount)
	}
}

func TestScheduler_EachTurnSeesAllPriorMessages(t *testing.T) {
	var seen []int
	producer := producerFunc(func(_ context.Context, turn agent.Turn) agent.Outcome {
		seen = append(seen, len(turn.History))
		return ok(testutil.Text(60))
	})

	report := New(producer).Run(context.Background(), newPlan(2, 3))

	require.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seen)
}

func TestScheduler_TurnOrderIsStableAcrossRuns(t *testing.T) {
	speakers := func() []string {
		stub := model.NewStubModel("stub", model.StubReply{Text: testutil.Text(80)})
		report := New(fastExecutor(stub)).Run(context.Background(), newPlan(4, 3))
		out := make([]string, 0, report.Transcript.Len())
		for _, m := range report.Transcript.Messages() {
			out = append(out, m.Speaker)
		}
		return out
	}
	assert.Equal(t, speakers(), speakers())
}

func TestScheduler_LengthViolationsAreFlagged(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: testutil.Text(900)})

	report := New(fastExecutor(stub)).Run(context.Background(), newPlan(2, 1))

	require.Equal(t, core.StateCompleted, report.State)
	for _, m := range report.Transcript.Messages() {
		assert.False(t, m.LengthOK)
		assert.Equal(t, 500, m.Length())
	}
}

func TestScheduler_AbortsOnFailedTurnKeepingPartialTranscript(t *testing.T) {
	boom := errors.New("upstream unavailable")
	stub := model.NewStubModelFunc("stub", func(call int, _ model.Request) (string, error) {
		if call <= 2 {
			return testutil.Text(100), nil
		}
		return "", boom
	})

	report := New(fastExecutor(stub)).Run(context.Background(), newPlan(3, 2))

	assert.Equal(t, core.StateAborted, report.State)
	assert.True(t, report.Partial())
	assert.Equal(t, 2, report.Transcript.Len())
	assert.Equal(t, 0, report.RoundsCompleted)
	assert.ErrorIs(t, report.Err, core.ErrTurnFailed)
	assert.ErrorIs(t, report.Err, boom)
	assert.Equal(t, 2, report.Retries)
}

func TestScheduler_AlwaysEmptyAbortsAfterFirstTurn(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: ""})

	report := New(fastExecutor(stub)).Run(context.Background(), newPlan(3, 3))

	assert.Equal(t, core.StateAborted, report.State)
	require.Equal(t, 1, report.Transcript.Len())
	m := report.Transcript.Messages()[0]
	assert.Equal(t, "Persona 1", m.Speaker)
	assert.False(t, m.LengthOK)
	assert.Equal(t, 3, m.Attempts)
	assert.ErrorIs(t, report.Err, core.ErrTurnFailed)
}

func TestScheduler_FlaggedFailedTurnCountsForSpeaker(t *testing.T) {
	req := require.New(t)
	plan := newPlan(2, 2)

	produce := producerFunc(func(_ context.Context, turn agent.Turn) agent.Outcome {
		if len(turn.History) == 1 {
			return agent.Outcome{Text: "no", Status: agent.StatusFailed, Responded: true, Attempts: 3, Retries: 2}
		}
		return ok(testutil.Text(100))
	})

	report := New(produce).Run(context.Background(), plan)

	req.Equal(core.StateAborted, report.State)
	req.Equal(2, report.Transcript.Len())
	flagged := report.Transcript.Messages()[1]
	req.False(flagged.LengthOK)

	req.Equal(1, plan.Participants[0].MessageCount)
	req.Equal(1, plan.Participants[1].MessageCount)
	req.Equal(2, plan.Participants[1].CharCount)
}

func TestScheduler_CancellationReturnsPartialTranscript(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	producer := producerFunc(func(_ context.Context, turn agent.Turn) agent.Outcome {
		if len(turn.History) == 3 {
			cancel()
		}
		return ok(testutil.Text(60))
	})

	report := New(producer).Run(ctx, newPlan(3, 3))

	assert.Equal(t, core.StateCancelled, report.State)
	assert.Equal(t, 4, report.Transcript.Len())
	assert.Equal(t, 1, report.RoundsCompleted)
	assert.ErrorIs(t, report.Err, context.Canceled)
}

func TestScheduler_FailedTurnAfterCancelIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	producer := producerFunc(func(context.Context, agent.Turn) agent.Outcome {
		cancel()
		return agent.Outcome{Status: agent.StatusFailed, Err: context.Canceled}
	})

	report := New(producer).Run(ctx, newPlan(2, 1))
	assert.Equal(t, core.StateCancelled, report.State)
	assert.Equal(t, 0, report.Transcript.Len())
}

func TestScheduler_RoundIntervalHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	s := New(producerFunc(func(context.Context, agent.Turn) agent.Outcome { return ok(testutil.Text(60)) }),
		func(o *Options) { o.RoundInterval = time.Hour })
	report := s.Run(ctx, newPlan(2, 3))

	assert.Equal(t, core.StateCancelled, report.State)
	assert.Equal(t, 2, report.Transcript.Len())
	assert.Equal(t, 1, report.RoundsCompleted)
}

func TestScheduler_RunsOnce(t *testing.T) {
	s := New(producerFunc(func(context.Context, agent.Turn) agent.Outcome { return ok(testutil.Text(60)) }))
	first := s.Run(context.Background(), newPlan(2, 1))
	require.Equal(t, core.StateCompleted, first.State)

	second := s.Run(context.Background(), newPlan(2, 1))
	assert.ErrorIs(t, second.Err, ErrAlreadyRun)
	assert.Equal(t, 0, second.Transcript.Len())
}

func TestScheduler_InvalidPlan(t *testing.T) {
	report := New(producerFunc(func(context.Context, agent.Turn) agent.Outcome { return ok("x") })).
		Run(context.Background(), Plan{Constraints: core.DefaultConstraints()})

	assert.Equal(t, core.StateAborted, report.State)
	assert.ErrorIs(t, report.Err, core.ErrInvalidConfiguration)
}

func TestScheduler_Callbacks(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
		messages    []string
		rounds      []int
		before      int
	)
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnStateChange, func(_ context.Context, cc *CallbackContext) error {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, string(cc.From)+">"+string(cc.To))
		return nil
	}))
	cm.RegisterCallback(NewMessageCallback(func(m core.Message) { messages = append(messages, m.Speaker) }))
	cm.RegisterCallback(NewFunctionCallback(CallbackOnRoundComplete, func(_ context.Context, cc *CallbackContext) error {
		rounds = append(rounds, cc.Round)
		return nil
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeTurn, func(_ context.Context, cc *CallbackContext) error {
		require.NotNil(t, cc.Speaker)
		before++
		return nil
	}))

	s := New(producerFunc(func(context.Context, agent.Turn) agent.Outcome { return ok(testutil.Text(60)) }),
		func(o *Options) { o.Callbacks = cm })
	report := s.Run(context.Background(), newPlan(2, 2))

	require.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []string{"idle>round_in_progress", "round_in_progress>round_in_progress", "round_in_progress>completed"}, transitions)
	assert.Equal(t, []string{"Persona 1", "Persona 2", "Persona 1", "Persona 2"}, messages)
	assert.Equal(t, []int{1, 2}, rounds)
	assert.Equal(t, 4, before)
}

func TestScheduler_CallbackErrorAborts(t *testing.T) {
	veto := errors.New("veto")
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackAfterTurn, func(context.Context, *CallbackContext) error { return veto }))

	var failures int
	cm.RegisterCallback(NewFunctionCallback(CallbackOnError, func(context.Context, *CallbackContext) error {
		failures++
		return nil
	}))

	s := New(producerFunc(func(context.Context, agent.Turn) agent.Outcome { return ok(testutil.Text(60)) }),
		func(o *Options) { o.Callbacks = cm })
	report := s.Run(context.Background(), newPlan(2, 2))

	assert.Equal(t, core.StateAborted, report.State)
	assert.ErrorIs(t, report.Err, veto)
	assert.Equal(t, 1, report.Transcript.Len())
	assert.Equal(t, 0, failures)
}

func TestLoggingCallback(t *testing.T) {
	var lines []string
	cb := NewLoggingCallback(CallbackAfterTurn, func(msg string) { lines = append(lines, msg) })
	msg := core.Message{Speaker: "Ann", Sequence: 3, Text: "hello"}

	require.NoError(t, cb.Execute(context.Background(), &CallbackContext{Round: 2, Message: &msg}))
	require.NoError(t, cb.Execute(context.Background(), &CallbackContext{From: core.StateIdle, To: core.StateRoundInProgress}))

	require.Len(t, lines, 2)
	assert.True(t, strings.Contains(lines[0], "round 2 #3 Ann (5 chars)"))
	assert.True(t, strings.Contains(lines[1], "idle -> round_in_progress"))
}

func TestCallbackManager_Clone(t *testing.T) {
	var calls int
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnError, func(context.Context, *CallbackContext) error {
		calls++
		return nil
	}))

	clone := cm.Clone()
	clone.RegisterCallback(NewFunctionCallback(CallbackOnError, func(context.Context, *CallbackContext) error {
		calls += 10
		return nil
	}))

	require.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackOnError, &CallbackContext{}))
	assert.Equal(t, 1, calls)
	require.NoError(t, clone.ExecuteCallbacks(context.Background(), CallbackOnError, &CallbackContext{}))
	assert.Equal(t, 12, calls)

	var nilManager *CallbackManager
	assert.NotNil(t, nilManager.Clone())
}
