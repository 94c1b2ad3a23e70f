package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botarena/internal/game"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "submissions", cfg.Submissions.Dir)
	assert.Equal(t, time.Second, cfg.GetMoveTimeout())

	kinds, err := cfg.ScheduleKinds()
	require.NoError(t, err)
	assert.Equal(t, []game.Kind{game.RPSLS}, kinds)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Limits.MemoryBytes, cfg.Limits.MemoryBytes)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
submissions:
  dir: /srv/bots
  max_bytes: 32768
limits:
  memory_bytes: 16777216
  move_timeout: 250ms
tournament:
  group_count: 8
  round_caps:
    rpsls: 7
series:
  - rpsls
  - colonel_blotto
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/bots", cfg.Submissions.Dir)
	assert.Equal(t, 32768, cfg.Submissions.MaxBytes)
	assert.Equal(t, uint64(16777216), cfg.Limits.MemoryBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.GetMoveTimeout())
	assert.Equal(t, 8, cfg.Tournament.GroupCount)

	kinds, err := cfg.ScheduleKinds()
	require.NoError(t, err)
	assert.Equal(t, []game.Kind{game.RPSLS, game.ColonelBlotto}, kinds)

	rules := cfg.RulesFor(game.RPSLS)
	assert.Equal(t, 7, rules.MaxRounds)
}

func TestLoadRejectsBadValues(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "arena.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		return path
	}

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(write(t, "limits:\n  move_timeout: soon\n"))
		assert.Error(t, err)
	})
	t.Run("unknown kind in series", func(t *testing.T) {
		_, err := Load(write(t, "series:\n  - tic_tac_toe\n"))
		assert.Error(t, err)
	})
	t.Run("unparseable yaml", func(t *testing.T) {
		_, err := Load(write(t, "submissions: [broken"))
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_SUBMISSIONS_DIR", "/tmp/pool")
	t.Setenv("ARENA_MEMORY_BYTES", "1048576")
	t.Setenv("ARENA_MOVE_TIMEOUT", "2s")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/pool", cfg.Submissions.Dir)
	assert.Equal(t, uint64(1048576), cfg.Limits.MemoryBytes)
	assert.Equal(t, 2*time.Second, cfg.GetMoveTimeout())
}

func TestRulesForBlottoKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tournament.BlottoFronts = 3
	cfg.Tournament.BlottoBudget = 60
	cfg.Tournament.RoundCaps[string(game.ColonelBlotto)] = 2

	rules := cfg.RulesFor(game.ColonelBlotto)
	assert.Equal(t, 3, rules.Fronts)
	assert.Equal(t, 60, rules.Budget)
	assert.Equal(t, 2, rules.MaxRounds)

	// Other kinds are untouched by the Blotto knobs.
	assert.Equal(t, 5, cfg.RulesFor(game.RPSLS).Fronts)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "arena.yaml")
	cfg := DefaultConfig()
	cfg.Submissions.Dir = "elsewhere"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", loaded.Submissions.Dir)
}
