package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
)

func TestDefault_IsValid(t *testing.T) {
	req := require.New(t)
	cfg := Default()

	req.NoError(cfg.Validate())
	req.Equal(core.DefaultConstraints(), cfg.Constraints())
	req.Equal(core.ScopeMixed, cfg.Scope)
}

func TestValidate_CollectsProblems(t *testing.T) {
	req := require.New(t)
	cfg := Default()
	cfg.Provider = "llama"
	cfg.Store = "s3"
	cfg.MinMessageLength = 600
	cfg.Rounds = 0
	cfg.MaxDelay = time.Second

	err := cfg.Validate()
	req.ErrorIs(err, core.ErrInvalidConfiguration)

	var cerr *core.ConfigError
	req.ErrorAs(err, &cerr)
	req.Len(cerr.Problems, 5)
	req.Contains(err.Error(), "Provider fails oneof")
	req.Contains(err.Error(), "MaxDelay fails gtefield=BaseDelay")
	req.Contains(err.Error(), "min message length 600 exceeds max 500")
	req.Contains(err.Error(), "round count 0 outside [1, 10]")
}

func TestValidate_ExtendedRanges(t *testing.T) {
	req := require.New(t)
	cfg := Default()
	cfg.Participants = 20
	cfg.Rounds = 50
	req.ErrorIs(cfg.Validate(), core.ErrInvalidConfiguration)

	cfg.Extended = true
	req.NoError(cfg.Validate())
}

func TestValidate_ResultsDirRequiredForFileStore(t *testing.T) {
	req := require.New(t)
	cfg := Default()
	cfg.ResultsDir = ""
	req.Error(cfg.Validate())

	cfg.Store = StoreMemory
	req.NoError(cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "roundtable.yaml")
	req.NoError(os.WriteFile(path, []byte(`
topic: Should cities ban cars?
scope: social
participants: 4
rounds: 2
provider: openai
round_interval: 1s
language: German
`), 0o644))

	cfg, err := LoadFile(path)
	req.NoError(err)
	req.Equal("Should cities ban cars?", cfg.Topic)
	req.Equal("social", cfg.Scope)
	req.Equal(4, cfg.Participants)
	req.Equal(2, cfg.Rounds)
	req.Equal(ProviderOpenAI, cfg.Provider)
	req.Equal(time.Second, cfg.RoundInterval)
	req.Equal("German", cfg.Language)
	req.Equal(500, cfg.MaxMessageLength, "unset keys keep defaults")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	req.Error(err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	req.NoError(os.WriteFile(bad, []byte("rounds: [1"), 0o644))
	_, err = LoadFile(bad)
	req.ErrorIs(err, core.ErrInvalidConfiguration)
}

func TestFromEnv(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "roundtable.yaml")
	req.NoError(os.WriteFile(yamlPath, []byte("topic: from yaml\nrounds: 5\n"), 0o644))

	dotenv := filepath.Join(dir, ".env")
	req.NoError(os.WriteFile(dotenv, []byte("ROUNDTABLE_PARTICIPANTS=5\nROUNDTABLE_PROVIDER=anthropic\n"), 0o644))

	t.Setenv(FileEnv, yamlPath)
	t.Setenv("ROUNDTABLE_ROUNDS", "4")
	t.Setenv("ROUNDTABLE_TURN_TIMEOUT", "30s")
	t.Setenv("ROUNDTABLE_SEED", "99")
	// godotenv never overrides variables that are already set.
	t.Setenv("ROUNDTABLE_PARTICIPANTS", "")
	os.Unsetenv("ROUNDTABLE_PARTICIPANTS")
	t.Setenv("ROUNDTABLE_PROVIDER", "")
	os.Unsetenv("ROUNDTABLE_PROVIDER")

	cfg, err := FromEnv(dotenv, filepath.Join(dir, "missing.env"))
	req.NoError(err)
	req.Equal("from yaml", cfg.Topic)
	req.Equal(4, cfg.Rounds, "environment wins over yaml")
	req.Equal(5, cfg.Participants)
	req.Equal(ProviderAnthropic, cfg.Provider)
	req.Equal(30*time.Second, cfg.TurnTimeout)
	req.Equal(uint64(99), cfg.Seed)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("ROUNDTABLE_ROUNDS", "11")

	_, err := FromEnv(filepath.Join(t.TempDir(), "none.env"))
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestRand(t *testing.T) {
	req := require.New(t)
	cfg := Default()
	cfg.Seed = 7

	a, b := cfg.Rand(), cfg.Rand()
	req.Equal(a.Perm(10), b.Perm(10))

	cfg.Seed = 0
	req.NotNil(cfg.Rand())
}
