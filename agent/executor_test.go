package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/prompt"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Response), args.Error(1)
}

func (m *mockModel) Info() model.Info { return model.Info{Name: "mock", Provider: "test"} }

func fastExecutor(llm model.Model, optFns ...func(o *ExecutorOptions)) *Executor {
	return NewExecutor(llm, append([]func(o *ExecutorOptions){func(o *ExecutorOptions) {
		o.BaseDelay = time.Millisecond
		o.MaxDelay = 2 * time.Millisecond
	}}, optFns...)...)
}

func newTurn(minLen, maxLen int) Turn {
	c := core.DefaultConstraints()
	c.MinMessageLength = minLen
	c.MaxMessageLength = maxLen
	return Turn{
		Speaker:     core.Persona{Name: "Ann", Role: "teacher", Personality: "patient"},
		Topic:       "AI in schools",
		Round:       1,
		Rounds:      2,
		Constraints: c,
	}
}

func TestExecutor_Success(t *testing.T) {
	reply := strings.Repeat("a", 60)
	stub := model.NewStubModel("stub", model.StubReply{Text: "  " + reply + "\n"})

	out := fastExecutor(stub).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, reply, out.Text)
	assert.True(t, out.LengthOK)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 0, out.Retries)
	assert.NoError(t, out.Err)
	assert.Equal(t, 100, stub.Calls()[0].MaxLength)
}

func TestExecutor_TruncatesLongReply(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: strings.Repeat("b", 250)})

	out := fastExecutor(stub).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusDegraded, out.Status)
	assert.True(t, out.Truncated)
	assert.False(t, out.LengthOK)
	assert.Equal(t, 100, len([]rune(out.Text)))
	assert.Equal(t, 1, stub.CallCount())
}

func TestExecutor_RetriesShortReplyWithEmphasis(t *testing.T) {
	stub := model.NewStubModel("stub",
		model.StubReply{Text: "too short"},
		model.StubReply{Text: strings.Repeat("c", 70)},
	)

	out := fastExecutor(stub).Produce(context.Background(), newTurn(50, 100))

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 1, out.Retries)

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[0].Prompt, "too short")
	assert.Contains(t, calls[1].Prompt, "Your previous reply was too short")
}

func TestExecutor_AcceptsBestShortReply(t *testing.T) {
	stub := model.NewStubModelFunc("stub", func(call int, _ model.Request) (string, error) {
		return strings.Repeat("d", call*5), nil
	})

	out := fastExecutor(stub).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusDegraded, out.Status)
	assert.False(t, out.LengthOK)
	assert.Equal(t, strings.Repeat("d", 15), out.Text)
	assert.Equal(t, 3, out.Attempts)
	assert.NoError(t, out.Err)
}

func TestExecutor_AlwaysEmptyFails(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: "   "})

	out := fastExecutor(stub).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, out.Responded)
	assert.Equal(t, "", out.Text)
	assert.Equal(t, 3, stub.CallCount())
	assert.ErrorIs(t, out.Err, core.ErrTurnFailed)
	assert.ErrorIs(t, out.Err, core.ErrLengthViolation)
}

func TestExecutor_RemoteFailureExhaustsRetries(t *testing.T) {
	boom := errors.New("503 service unavailable")
	stub := model.NewStubModel("stub", model.StubReply{Err: boom})

	out := fastExecutor(stub, func(o *ExecutorOptions) { o.RetryBudget = 1 }).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.Responded)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, stub.CallCount())
	assert.ErrorIs(t, out.Err, core.ErrTurnFailed)
	assert.ErrorIs(t, out.Err, core.ErrGenerationFailure)
	assert.ErrorIs(t, out.Err, boom)
}

func TestExecutor_RecoversAfterFailure(t *testing.T) {
	m := &mockModel{}
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, errors.New("reset")).Once()
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{Text: strings.Repeat("e", 55)}, nil).Once()

	out := fastExecutor(m).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 1, out.Retries)
	m.AssertExpectations(t)
}

func TestExecutor_PerCallTimeoutCountsAsFailedAttempt(t *testing.T) {
	stub := model.NewStubModel("slow",
		model.StubReply{Text: "late", Delay: time.Second},
		model.StubReply{Text: strings.Repeat("f", 60)},
	)

	out := fastExecutor(stub, func(o *ExecutorOptions) { o.CallTimeout = 20 * time.Millisecond }).
		Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 2, out.Attempts)
}

func TestExecutor_TimeoutClassified(t *testing.T) {
	stub := model.NewStubModel("slow", model.StubReply{Delay: time.Second})

	out := fastExecutor(stub, func(o *ExecutorOptions) {
		o.CallTimeout = 5 * time.Millisecond
		o.RetryBudget = 0
	}).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, core.ErrGenerationTimeout)
}

func TestExecutor_BudgetExceededStopsRetries(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Err: errors.New("boom")})
	budget := core.NewCallBudget(1)

	out := fastExecutor(stub, func(o *ExecutorOptions) { o.Budget = budget }).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, stub.CallCount())
	assert.ErrorIs(t, out.Err, core.ErrBudgetExceeded)
}

func TestExecutor_ParentCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := model.NewStubModelFunc("stub", func(int, model.Request) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	})

	out := fastExecutor(stub).Produce(ctx, newTurn(50, 100))

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, stub.CallCount())
}

func TestExecutor_ContextWindow(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: strings.Repeat("g", 60)})
	turn := newTurn(50, 100)
	for i, s := range []string{"first", "second", "third"} {
		turn.History = append(turn.History, core.Message{Speaker: "P", Text: s, Sequence: i + 1})
	}

	fastExecutor(stub, func(o *ExecutorOptions) { o.ContextWindow = 2 }).Produce(context.Background(), turn)

	p := stub.Calls()[0].Prompt
	assert.NotContains(t, p, "P: first")
	assert.Contains(t, p, "P: second")
	assert.Contains(t, p, "P: third")
	assert.Contains(t, p, "You are Ann")
}

func TestExecutor_CustomInstruction(t *testing.T) {
	stub := model.NewStubModel("stub", model.StubReply{Text: strings.Repeat("h", 60)})

	fastExecutor(stub, func(o *ExecutorOptions) {
		o.Instruction = prompt.NewInstructionFromText("{{.Name}}|{{.Topic}}|{{.MaxLength}}")
	}).Produce(context.Background(), newTurn(50, 100))

	assert.Equal(t, "Ann|AI in schools|100", stub.Calls()[0].Prompt)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestExecutor_LogsModelCallWithTokenUsage(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})
	stub := model.NewStubModel("stub", model.StubReply{
		Text:  strings.Repeat("a", 60),
		Usage: &model.TokenUsage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42},
	})

	out := fastExecutor(stub, func(o *ExecutorOptions) { o.Logger = logger }).Produce(context.Background(), newTurn(50, 100))
	req.Equal(StatusSuccess, out.Status)

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		req.NoError(json.Unmarshal(line, &e))
		if e["msg"] == "model call completed" {
			entry = e
		}
	}
	req.NotNil(entry)
	req.EqualValues(42, entry["token_count"])
	req.Equal("Ann", entry["speaker"])
	req.Equal("stub", entry["model"])
	req.EqualValues(1, entry["attempt"])
	req.Equal(true, entry["success"])
}
