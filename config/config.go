// Package config loads roundtable settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/roundtable/core"
)

// Provider names accepted by Config.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Store names accepted by Config.Store.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// FileEnv names the environment variable pointing at a YAML config file.
const FileEnv = "ROUNDTABLE_CONFIG"

var validate = validator.New()

// Config is the full settings surface.
type Config struct {
	Topic string `env:"ROUNDTABLE_TOPIC" yaml:"topic"`
	Scope string `env:"ROUNDTABLE_SCOPE" yaml:"scope" validate:"required"`

	Participants     int  `env:"ROUNDTABLE_PARTICIPANTS" yaml:"participants"`
	Rounds           int  `env:"ROUNDTABLE_ROUNDS" yaml:"rounds"`
	MinMessageLength int  `env:"ROUNDTABLE_MIN_MESSAGE_LENGTH" yaml:"min_message_length"`
	MaxMessageLength int  `env:"ROUNDTABLE_MAX_MESSAGE_LENGTH" yaml:"max_message_length"`
	MinSummaryLength int  `env:"ROUNDTABLE_MIN_SUMMARY_LENGTH" yaml:"min_summary_length"`
	MaxSummaryLength int  `env:"ROUNDTABLE_MAX_SUMMARY_LENGTH" yaml:"max_summary_length"`
	Extended         bool `env:"ROUNDTABLE_EXTENDED" yaml:"extended"`

	Provider     string `env:"ROUNDTABLE_PROVIDER" yaml:"provider" validate:"oneof=gemini openai anthropic"`
	Model        string `env:"ROUNDTABLE_MODEL" yaml:"model"`
	SummaryModel string `env:"ROUNDTABLE_SUMMARY_MODEL" yaml:"summary_model"`
	APIKey       string `env:"ROUNDTABLE_API_KEY" yaml:"-"`

	TurnRetries    int           `env:"ROUNDTABLE_TURN_RETRIES" yaml:"turn_retries" validate:"min=0,max=10"`
	SummaryRetries int           `env:"ROUNDTABLE_SUMMARY_RETRIES" yaml:"summary_retries" validate:"min=0,max=10"`
	BaseDelay      time.Duration `env:"ROUNDTABLE_BASE_DELAY" yaml:"base_delay" validate:"min=0"`
	MaxDelay       time.Duration `env:"ROUNDTABLE_MAX_DELAY" yaml:"max_delay" validate:"gtefield=BaseDelay"`
	TurnTimeout    time.Duration `env:"ROUNDTABLE_TURN_TIMEOUT" yaml:"turn_timeout" validate:"gt=0"`
	SummaryTimeout time.Duration `env:"ROUNDTABLE_SUMMARY_TIMEOUT" yaml:"summary_timeout" validate:"gt=0"`
	ContextWindow  int           `env:"ROUNDTABLE_CONTEXT_WINDOW" yaml:"context_window" validate:"min=0"`
	RoundInterval  time.Duration `env:"ROUNDTABLE_ROUND_INTERVAL" yaml:"round_interval" validate:"min=0"`
	MaxModelCalls  int           `env:"ROUNDTABLE_MAX_MODEL_CALLS" yaml:"max_model_calls" validate:"min=0"`
	Language       string        `env:"ROUNDTABLE_LANGUAGE" yaml:"language"`
	Seed           uint64        `env:"ROUNDTABLE_SEED" yaml:"seed"`

	PersonaFile string `env:"ROUNDTABLE_PERSONA_FILE" yaml:"persona_file"`
	Store       string `env:"ROUNDTABLE_STORE" yaml:"store" validate:"oneof=file badger memory"`
	ResultsDir  string `env:"ROUNDTABLE_RESULTS_DIR" yaml:"results_dir" validate:"required_if=Store file"`
	BadgerPath  string `env:"ROUNDTABLE_BADGER_PATH" yaml:"badger_path"`

	LogLevel  string `env:"ROUNDTABLE_LOG_LEVEL" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `env:"ROUNDTABLE_LOG_FORMAT" yaml:"log_format" validate:"oneof=text json"`

	MaxConcurrentSessions int `env:"ROUNDTABLE_MAX_CONCURRENT_SESSIONS" yaml:"max_concurrent_sessions" validate:"min=1,max=64"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	c := core.DefaultConstraints()
	return Config{
		Scope:                 core.ScopeMixed,
		Participants:          c.ParticipantCount,
		Rounds:                c.RoundCount,
		MinMessageLength:      c.MinMessageLength,
		MaxMessageLength:      c.MaxMessageLength,
		MinSummaryLength:      c.MinSummaryLength,
		MaxSummaryLength:      c.MaxSummaryLength,
		Provider:              ProviderGemini,
		TurnRetries:           2,
		SummaryRetries:        3,
		BaseDelay:             2 * time.Second,
		MaxDelay:              15 * time.Second,
		TurnTimeout:           60 * time.Second,
		SummaryTimeout:        120 * time.Second,
		ContextWindow:         10,
		Store:                 StoreFile,
		ResultsDir:            "results",
		BadgerPath:            "results/badger",
		LogLevel:              "info",
		LogFormat:             "text",
		MaxConcurrentSessions: 2,
	}
}

// LoadFile returns Default overlaid with the YAML file at path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %w", core.ErrInvalidConfiguration, path, err)
	}
	return cfg, nil
}

// FromEnv loads the given .env files (".env" when none are named; missing
// files are ignored), then the YAML file named by ROUNDTABLE_CONFIG if set,
// then the ROUNDTABLE_* variables. The result is validated.
func FromEnv(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: environment: %w", core.ErrInvalidConfiguration, err)
	}
	return cfg, cfg.Validate()
}

// Constraints returns the session constraints described by c.
func (c Config) Constraints() core.Constraints {
	return core.Constraints{
		MinMessageLength: c.MinMessageLength,
		MaxMessageLength: c.MaxMessageLength,
		MinSummaryLength: c.MinSummaryLength,
		MaxSummaryLength: c.MaxSummaryLength,
		ParticipantCount: c.Participants,
		RoundCount:       c.Rounds,
		Extended:         c.Extended,
	}
}

// Validate reports every problem as a *core.ConfigError.
func (c Config) Validate() error {
	cerr := &core.ConfigError{}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, err)
		}
		for _, fe := range verrs {
			if fe.Param() != "" {
				cerr.Addf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
			} else {
				cerr.Addf("%s fails %s (got %v)", fe.Field(), fe.Tag(), fe.Value())
			}
		}
	}

	var constraintsErr *core.ConfigError
	if errors.As(c.Constraints().Validate(), &constraintsErr) {
		cerr.Problems = append(cerr.Problems, constraintsErr.Problems...)
	}

	return cerr.Err()
}

// Rand returns the random source for persona selection: deterministic when
// Seed is set, randomly seeded otherwise.
func (c Config) Rand() *rand.Rand {
	if c.Seed != 0 {
		return rand.New(rand.NewPCG(c.Seed, c.Seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
