package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/engine"
	"github.com/hupe1980/roundtable/internal/retry"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/persona"
	"github.com/hupe1980/roundtable/prompt"
	"github.com/hupe1980/roundtable/store"
	"github.com/hupe1980/roundtable/summary"
)

// Request describes one discussion session.
type Request struct {
	// ID identifies the session; generated when empty. Use it with Cancel.
	ID    string
	Topic string
	// Scope is a persona category or core.ScopeMixed (the default).
	Scope string
	// Constraints default to core.DefaultConstraints when zero.
	Constraints core.Constraints
	// Personas, when set, are used as participants in this order instead of
	// a registry selection. ParticipantCount is taken from their number.
	Personas []core.Persona
	// Rand drives persona selection. Nil selects the first personas of the
	// scope in catalog order.
	Rand *rand.Rand
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Registry supplies participants. Defaults to the built-in presets.
	Registry core.PersonaRegistry
	// Store receives every finished session. Nil disables persistence.
	Store core.ResultStore
	// SummaryModel generates the summary. Defaults to the turn model.
	SummaryModel model.Model

	TurnRetries    int
	SummaryRetries int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	TurnTimeout    time.Duration
	SummaryTimeout time.Duration
	// ContextWindow bounds the messages shown to a speaker; 0 shows all.
	ContextWindow int
	RoundInterval time.Duration
	// MaxModelCalls caps remote calls per session; 0 means unlimited.
	MaxModelCalls int
	Language      string

	TurnInstruction    prompt.Instruction
	SummaryInstruction prompt.Instruction

	// Callbacks are shared by all sessions; OnMessage is called for every
	// appended message.
	Callbacks *engine.CallbackManager
	OnMessage func(sessionID string, m core.Message)

	// Clock stamps StartedAt and FinishedAt.
	Clock func() time.Time

	Logger logging.Logger
}

// Runner runs discussion sessions end to end: validation, participant
// selection, rounds, summary, statistics and persistence. Public methods are
// safe for concurrent use; each Run owns its transcript and participants.
type Runner struct {
	llm  model.Model
	opts Options

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// DefaultOptions returns the settings New starts from.
func DefaultOptions() Options {
	return Options{
		Registry:       persona.NewPresetRegistry(),
		Store:          store.NewInMemoryStore(),
		TurnRetries:    agent.DefaultRetryBudget,
		SummaryRetries: summary.DefaultRetryBudget,
		BaseDelay:      retry.DefaultBaseDelay,
		MaxDelay:       retry.DefaultMaxDelay,
		TurnTimeout:    agent.DefaultCallTimeout,
		SummaryTimeout: summary.DefaultCallTimeout,
		ContextWindow:  agent.DefaultContextWindow,
		Clock:          time.Now,
		Logger:         logging.NoOpLogger{},
	}
}

// New constructs a Runner with optional overrides.
func New(llm model.Model, optFns ...func(o *Options)) *Runner {
	opts := DefaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SummaryModel == nil {
		opts.SummaryModel = llm
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runner{
		llm:        llm,
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Run executes one session. Only setup failures (invalid configuration,
// insufficient personas) return an error; a session that aborts, is
// cancelled or cannot be persisted still yields its (partial) result.
func (r *Runner) Run(ctx context.Context, req Request) (*core.SessionResult, error) {
	started := time.Now()

	c, scope, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = core.NewID()
	}

	logger := r.opts.Logger
	if cl, ok := logger.(*logging.ContextLogger); ok {
		logger = cl.WithSession(id)
	}

	personas, err := r.selectPersonas(req, c, scope)
	if err != nil {
		logger.Warn("participant selection failed", "scope", scope, "count", c.ParticipantCount, "error", err)
		return nil, err
	}
	selection := time.Since(started)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.register(id, cancel); err != nil {
		return nil, err
	}
	defer r.unregister(id)

	result := &core.SessionResult{
		ID:          id,
		Topic:       req.Topic,
		Scope:       scope,
		Constraints: c,
		StartedAt:   r.opts.Clock(),
	}
	logger.Info("session started", "topic", req.Topic, "scope", scope,
		"participants", lo.Map(personas, func(p core.Persona, _ int) string { return p.Name }),
		"rounds", c.RoundCount, "expected_messages", c.ExpectedMessages())

	budget := core.NewCallBudget(r.opts.MaxModelCalls)
	participants := core.NewParticipants(personas)

	// Discussion
	report := r.scheduler(id, budget, logger).Run(ctx, engine.Plan{
		Topic:        req.Topic,
		Participants: participants,
		Constraints:  c,
	})
	messages := report.Transcript.Messages()

	// Summary
	summaryStart := time.Now()
	sum := r.summarizer(budget, logger).Summarize(ctx, summary.Input{
		Topic:        req.Topic,
		Messages:     messages,
		Participants: lo.Map(participants, func(p *core.Participant, _ int) core.Participant { return *p }),
		Constraints:  c,
		Partial:      report.Partial(),
	})
	summaryElapsed := time.Since(summaryStart)

	// Assembly
	result.Participants = lo.Map(participants, func(p *core.Participant, _ int) core.Participant { return *p })
	result.Messages = messages
	result.Summary = sum
	result.State = report.State
	result.Partial = report.Partial()
	if report.Err != nil {
		result.AbortReason = report.Err.Error()
	}

	result.Stats = core.ComputeStats(result.Participants, messages)
	result.Stats.RoundsCompleted = report.RoundsCompleted
	result.Stats.Retries = report.Retries + sum.Retries
	result.Stats.ModelCalls = budget.Count()
	// An attempted summary outside its bounds is a violation too. A summary
	// that failed remotely or was never attempted carries an Error instead.
	if !sum.LengthOK && sum.Error == "" {
		result.Stats.LengthViolations++
	}
	result.Stats.Timings = core.PhaseTimings{
		Selection:  selection,
		Discussion: report.Elapsed,
		Summary:    summaryElapsed,
	}
	result.FinishedAt = r.opts.Clock()
	result.Key = core.ResultKey(result.FinishedAt, id)
	result.Stats.Duration = time.Since(started)

	// Persistence; the stored record lacks the persist timing.
	persistStart := time.Now()
	r.persist(ctx, result, logger)
	result.Stats.Timings.Persist = time.Since(persistStart)
	result.Stats.Duration = time.Since(started)

	if cl, ok := logger.(*logging.ContextLogger); ok {
		cl.LogSession(req.Topic, string(result.State), len(messages), result.Stats.Duration, report.Err)
	} else {
		logger.Info("session finished", "state", result.State, "messages", len(messages), "duration", result.Stats.Duration)
	}
	return result, nil
}

// Cancel cancels a running session by ID.
func (r *Runner) Cancel(id string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[id]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}

	cancel()
	return nil
}

// Active returns the IDs of running sessions.
func (r *Runner) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.activeRuns)
}

func (r *Runner) register(id string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.activeRuns[id]; exists {
		return fmt.Errorf("session %s: %w", id, core.ErrAlreadyExists)
	}
	r.activeRuns[id] = cancel
	return nil
}

func (r *Runner) unregister(id string) {
	r.mu.Lock()
	delete(r.activeRuns, id)
	r.mu.Unlock()
}

func (r *Runner) validate(req Request) (core.Constraints, string, error) {
	c := req.Constraints
	if c == (core.Constraints{}) {
		c = core.DefaultConstraints()
	}
	if len(req.Personas) > 0 {
		c.ParticipantCount = len(req.Personas)
	}

	cerr := &core.ConfigError{}
	if strings.TrimSpace(req.Topic) == "" {
		cerr.Addf("topic is empty")
	}
	if err := c.Validate(); err != nil {
		var ce *core.ConfigError
		if errors.As(err, &ce) {
			cerr.Problems = append(cerr.Problems, ce.Problems...)
		} else {
			cerr.Addf("%v", err)
		}
	}
	names := lo.Map(req.Personas, func(p core.Persona, _ int) string { return p.Name })
	if dup := lo.FindDuplicates(names); len(dup) > 0 {
		cerr.Addf("duplicate participants %v", dup)
	}
	if err := cerr.Err(); err != nil {
		return c, "", err
	}

	scope := req.Scope
	if scope == "" {
		scope = core.ScopeMixed
	}
	return c, scope, nil
}

func (r *Runner) selectPersonas(req Request, c core.Constraints, scope string) ([]core.Persona, error) {
	if len(req.Personas) > 0 {
		return req.Personas, nil
	}
	if r.opts.Registry == nil {
		return nil, fmt.Errorf("%w: no persona registry", core.ErrInsufficientPersonas)
	}
	return r.opts.Registry.Select(req.Rand, c.ParticipantCount, scope)
}

func (r *Runner) scheduler(id string, budget *core.CallBudget, logger logging.Logger) *engine.Scheduler {
	executor := agent.NewExecutor(r.llm, func(o *agent.ExecutorOptions) {
		o.Instruction = r.opts.TurnInstruction
		o.RetryBudget = r.opts.TurnRetries
		o.BaseDelay = r.opts.BaseDelay
		o.MaxDelay = r.opts.MaxDelay
		o.CallTimeout = r.opts.TurnTimeout
		o.ContextWindow = r.opts.ContextWindow
		o.Language = r.opts.Language
		o.Budget = budget
		o.Logger = logger
	})

	callbacks := r.opts.Callbacks.Clone()
	if r.opts.OnMessage != nil {
		callbacks.RegisterCallback(engine.NewMessageCallback(func(m core.Message) { r.opts.OnMessage(id, m) }))
	}

	return engine.New(executor, func(o *engine.Options) {
		o.RoundInterval = r.opts.RoundInterval
		o.Callbacks = callbacks
		o.Logger = logger
	})
}

func (r *Runner) summarizer(budget *core.CallBudget, logger logging.Logger) *summary.Summarizer {
	return summary.New(r.opts.SummaryModel, func(o *summary.Options) {
		o.Instruction = r.opts.SummaryInstruction
		o.RetryBudget = r.opts.SummaryRetries
		o.BaseDelay = r.opts.BaseDelay
		o.MaxDelay = r.opts.MaxDelay
		o.CallTimeout = r.opts.SummaryTimeout
		o.Language = r.opts.Language
		o.Budget = budget
		o.Logger = logger
	})
}

// persist hands the result to the store. Cancellation of the session does
// not prevent saving its partial result.
func (r *Runner) persist(ctx context.Context, result *core.SessionResult, logger logging.Logger) {
	if r.opts.Store == nil {
		return
	}
	if cl, ok := logger.(*logging.ContextLogger); ok {
		defer cl.WithComponent("store").StartTimer("persist")()
	}

	key, err := r.opts.Store.Save(context.WithoutCancel(ctx), result)
	if err != nil {
		result.PersistError = err.Error()
		logger.Error("saving result failed", "key", result.Key, "error", err)
		return
	}
	result.Key = key
	logger.Debug("result saved", "key", key)
}
