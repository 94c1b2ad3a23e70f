// Package config holds arena configuration loaded from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"botarena/internal/game"
)

// Config holds all arena configuration.
type Config struct {
	// Submission intake
	Submissions SubmissionsConfig `yaml:"submissions"`

	// Per-bot execution ceilings
	Limits LimitsConfig `yaml:"limits"`

	// Tournament shape
	Tournament TournamentConfig `yaml:"tournament"`

	// Ordered game kinds for a series run
	Series []string `yaml:"series"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SubmissionsConfig configures where bot source comes from.
type SubmissionsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int    `yaml:"max_bytes"`
}

// LimitsConfig configures runtime ceilings applied to every bot.
type LimitsConfig struct {
	MemoryBytes uint64 `yaml:"memory_bytes"`
	MoveTimeout string `yaml:"move_timeout"`
}

// TournamentConfig configures stage shape and scheduling.
type TournamentConfig struct {
	GroupCount           int            `yaml:"group_count"`
	AdvancePerGroup      int            `yaml:"advance_per_group"`
	MaxConcurrentMatches int            `yaml:"max_concurrent_matches"`
	RoundCaps            map[string]int `yaml:"round_caps"`
	BlottoFronts         int            `yaml:"blotto_fronts"`
	BlottoBudget         int            `yaml:"blotto_budget"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Submissions: SubmissionsConfig{
			Dir:      "submissions",
			MaxBytes: 64 * 1024,
		},
		Limits: LimitsConfig{
			MemoryBytes: 64 * 1024 * 1024,
			MoveTimeout: "1s",
		},
		Tournament: TournamentConfig{
			GroupCount:           4,
			AdvancePerGroup:      2,
			MaxConcurrentMatches: 4,
			RoundCaps: map[string]int{
				string(game.RPSLS):            10,
				string(game.ColonelBlotto):    5,
				string(game.PrisonersDilemma): 10,
				string(game.SplitOrSteal):     1,
			},
			BlottoFronts: 5,
			BlottoBudget: 100,
		},
		Series: []string{string(game.RPSLS)},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies ARENA_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("ARENA_SUBMISSIONS_DIR"); dir != "" {
		c.Submissions.Dir = dir
	}
	if v := os.Getenv("ARENA_MEMORY_BYTES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Limits.MemoryBytes = n
		}
	}
	if v := os.Getenv("ARENA_MOVE_TIMEOUT"); v != "" {
		c.Limits.MoveTimeout = v
	}
	if v := os.Getenv("ARENA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the arena cannot run with.
func (c *Config) Validate() error {
	if c.Submissions.MaxBytes <= 0 {
		return fmt.Errorf("submissions.max_bytes must be positive")
	}
	if c.Limits.MemoryBytes == 0 {
		return fmt.Errorf("limits.memory_bytes must be positive")
	}
	if _, err := time.ParseDuration(c.Limits.MoveTimeout); err != nil {
		return fmt.Errorf("limits.move_timeout: %w", err)
	}
	for _, name := range c.Series {
		if _, err := game.ParseKind(name); err != nil {
			return fmt.Errorf("series: %w", err)
		}
	}
	if c.Tournament.GroupCount < 0 {
		return fmt.Errorf("tournament.group_count must not be negative")
	}
	return nil
}

// GetMoveTimeout returns the move timeout as a duration.
func (c *Config) GetMoveTimeout() time.Duration {
	d, err := time.ParseDuration(c.Limits.MoveTimeout)
	if err != nil {
		return time.Second
	}
	return d
}

// ScheduleKinds returns the series schedule as parsed game kinds.
func (c *Config) ScheduleKinds() ([]game.Kind, error) {
	kinds := make([]game.Kind, 0, len(c.Series))
	for _, name := range c.Series {
		k, err := game.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// RulesFor builds rules for one game kind from the configured caps.
func (c *Config) RulesFor(kind game.Kind) game.Rules {
	rules := game.DefaultRules(kind)
	if cap, ok := c.Tournament.RoundCaps[string(kind)]; ok && cap > 0 {
		rules.MaxRounds = cap
	}
	if kind == game.ColonelBlotto {
		if c.Tournament.BlottoFronts > 0 {
			rules.Fronts = c.Tournament.BlottoFronts
		}
		if c.Tournament.BlottoBudget > 0 {
			rules.Budget = c.Tournament.BlottoBudget
		}
	}
	return rules
}
