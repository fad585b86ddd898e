// Package roundtable provides a high-level façade over the discussion runner
// and its collaborators (persona registry, result store, model and logging).
// Most applications interact with this package by:
//  1. Creating a Roundtable via New() or FromConfig()
//  2. Running a single session with Run, or several independent sessions with RunBatch
//  3. Browsing saved results through Store() and the store query helpers
//
// All defaults are safe for local development and testing: built-in personas,
// an in-memory result store and a NoOp logger.
package roundtable

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/roundtable/config"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/model/anthropic"
	"github.com/hupe1980/roundtable/model/gemini"
	"github.com/hupe1980/roundtable/model/openai"
	"github.com/hupe1980/roundtable/persona"
	"github.com/hupe1980/roundtable/runner"
	"github.com/hupe1980/roundtable/store"
	"github.com/hupe1980/roundtable/store/badgerstore"
	"github.com/hupe1980/roundtable/store/filestore"
)

// DefaultMaxConcurrentSessions bounds RunBatch when no limit is configured.
const DefaultMaxConcurrentSessions = 2

// Request describes one discussion session.
type Request = runner.Request

// Options configures the Roundtable instance.
type Options struct {
	runner.Options

	// MaxConcurrentSessions limits how many RunBatch sessions execute at
	// once. Values below 1 fall back to DefaultMaxConcurrentSessions.
	MaxConcurrentSessions int
}

// Roundtable is the high-level façade aggregating the runner and its services.
type Roundtable struct {
	opts   Options
	runner *runner.Runner
}

// New creates a Roundtable generating turns (and, unless overridden, the
// summary) with llm.
func New(llm model.Model, optFns ...func(o *Options)) *Roundtable {
	opts := Options{
		Options:               runner.DefaultOptions(),
		MaxConcurrentSessions: DefaultMaxConcurrentSessions,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentSessions < 1 {
		opts.MaxConcurrentSessions = DefaultMaxConcurrentSessions
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	r := runner.New(llm, func(o *runner.Options) { *o = opts.Options })

	return &Roundtable{opts: opts, runner: r}
}

// Run executes one session. See runner.Runner.Run for the error contract.
func (rt *Roundtable) Run(ctx context.Context, req Request) (*core.SessionResult, error) {
	return rt.runner.Run(ctx, req)
}

// RunBatch executes independent sessions concurrently and returns their
// results in request order. A request that fails setup leaves a nil entry
// and contributes to the joined error; the other sessions are unaffected.
func (rt *Roundtable) RunBatch(ctx context.Context, reqs []Request) ([]*core.SessionResult, error) {
	results := make([]*core.SessionResult, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(rt.opts.MaxConcurrentSessions)

	for i, req := range reqs {
		g.Go(func() error {
			res, err := rt.runner.Run(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("request %d (%q): %w", i, req.Topic, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Cancel stops a running session by ID.
func (rt *Roundtable) Cancel(id string) error { return rt.runner.Cancel(id) }

// Active returns the IDs of running sessions.
func (rt *Roundtable) Active() []string { return rt.runner.Active() }

// Store returns the result store sessions are saved to (nil when disabled).
func (rt *Roundtable) Store() core.ResultStore { return rt.opts.Store }

// Registry returns the persona registry participants are drawn from.
func (rt *Roundtable) Registry() core.PersonaRegistry { return rt.opts.Registry }

// NewRequest builds the session request described by cfg.
func NewRequest(cfg config.Config) Request {
	return Request{
		Topic:       cfg.Topic,
		Scope:       cfg.Scope,
		Constraints: cfg.Constraints(),
		Rand:        cfg.Rand(),
	}
}

// FromConfig wires a Roundtable from cfg: model provider, persona registry,
// result store and logger. The returned close function releases the store.
func FromConfig(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*Roundtable, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, err)
	}
	logger := logging.NewSlogLogger(level, cfg.LogFormat, false)

	llm, err := NewModel(ctx, cfg.Provider, cfg.Model, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}
	summaryLLM := llm
	if cfg.SummaryModel != "" {
		if summaryLLM, err = NewModel(ctx, cfg.Provider, cfg.SummaryModel, cfg.APIKey); err != nil {
			return nil, nil, err
		}
	}

	var registry *persona.Registry
	if cfg.PersonaFile != "" {
		registry, err = persona.LoadFile(cfg.PersonaFile, func(o *persona.Options) { o.Logger = logger })
		if err != nil {
			return nil, nil, err
		}
	} else {
		registry = persona.NewPresetRegistry(func(o *persona.Options) { o.Logger = logger })
	}

	results, closeFn, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	rt := New(llm, func(o *Options) {
		o.Registry = registry
		o.Store = results
		o.SummaryModel = summaryLLM
		o.TurnRetries = cfg.TurnRetries
		o.SummaryRetries = cfg.SummaryRetries
		o.BaseDelay = cfg.BaseDelay
		o.MaxDelay = cfg.MaxDelay
		o.TurnTimeout = cfg.TurnTimeout
		o.SummaryTimeout = cfg.SummaryTimeout
		o.ContextWindow = cfg.ContextWindow
		o.RoundInterval = cfg.RoundInterval
		o.MaxModelCalls = cfg.MaxModelCalls
		o.Language = cfg.Language
		o.MaxConcurrentSessions = cfg.MaxConcurrentSessions
		o.Logger = logger

		for _, fn := range optFns {
			fn(o)
		}
	})

	return rt, closeFn, nil
}

// NewModel creates the generation backend for provider. An empty name keeps
// the adapter's default model; an empty key lets the SDK read its usual
// environment variable.
func NewModel(ctx context.Context, provider, name, apiKey string) (model.Model, error) {
	switch provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if name != "" {
				o.Model = name
			}
			o.APIKey = apiKey
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if name != "" {
				o.Model = sdk.Model(name)
			}
			o.APIKey = apiKey
		}), nil
	case config.ProviderGemini, "":
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if name != "" {
				o.Model = name
			}
			o.APIKey = apiKey
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", core.ErrInvalidConfiguration, provider)
	}
}

func openStore(cfg config.Config, logger logging.Logger) (core.ResultStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		return store.NewInMemoryStore(), noop, nil
	case config.StoreBadger:
		s, err := badgerstore.Open(cfg.BadgerPath, func(o *badgerstore.Options) { o.Logger = logger })
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := filestore.New(cfg.ResultsDir, func(o *filestore.Options) { o.Logger = logger })
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}
