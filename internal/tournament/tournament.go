// Package tournament drives one tournament's full lifecycle: stage
// scheduling, bounded-concurrency match execution, scoring, and the
// finalized record.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"botarena/internal/compiler"
	"botarena/internal/game"
	"botarena/internal/match"
	"botarena/internal/scoring"
	"botarena/internal/stage"
)

var (
	// ErrNilConfig rejects construction without configuration.
	ErrNilConfig = errors.New("tournament config is nil")
	// ErrNoParticipants rejects an empty (or entirely invalid) roster.
	ErrNoParticipants = errors.New("tournament has no valid participants")
	// ErrCancelled marks a run aborted by the caller's context.
	ErrCancelled = errors.New("tournament cancelled")
	// ErrAlreadyRun guards the single-use lifecycle.
	ErrAlreadyRun = errors.New("tournament already run")
)

// State is the tournament lifecycle position.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "not_started"
	}
}

// Config parameterizes one tournament.
type Config struct {
	Kind game.Kind
	// Rules override DefaultRules(Kind) when non-zero.
	Rules game.Rules
	// GroupCount enables a group stage before the bracket when positive.
	GroupCount int
	// AdvancePerGroup is how many bots survive each group (default 2).
	AdvancePerGroup int
	// MaxConcurrentMatches bounds one round's parallelism (default 4).
	MaxConcurrentMatches int
	// MoveTimeout bounds a single capability call.
	MoveTimeout time.Duration
	// Rand drives group partitioning; nil uses the global source.
	Rand *rand.Rand
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Record is the immutable account of a completed tournament.
type Record struct {
	ID        string
	Kind      game.Kind
	State     State
	Matches   []*match.Result
	Standings []scoring.Standing
	Champion  string
	StartedAt time.Time
	EndedAt   time.Time
}

// Manager runs one tournament start to finish. It is single-use.
type Manager struct {
	cfg    *Config
	bots   []*compiler.Handle
	runner *match.Runner
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	matches []*match.Result
}

// NewManager validates configuration and roster up front; no state is
// touched on rejection. Invalid handles are excluded from play.
func NewManager(cfg *Config, bots []*compiler.Handle) (*Manager, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	var valid []*compiler.Handle
	for _, h := range bots {
		if h != nil && h.Valid() {
			valid = append(valid, h)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoParticipants
	}

	rules := cfg.Rules
	if rules.Kind == "" {
		rules = game.DefaultRules(cfg.Kind)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		bots:   valid,
		runner: match.NewRunner(rules, cfg.MoveTimeout, logger),
		logger: logger,
	}, nil
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MatchHistory returns a snapshot of completed matches so far.
func (m *Manager) MatchHistory() []*match.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*match.Result, len(m.matches))
	copy(out, m.matches)
	return out
}

// Run executes the tournament. Cancellation is observed before every batch;
// on abort no partial record is returned.
func (m *Manager) Run(ctx context.Context) (*Record, error) {
	m.mu.Lock()
	if m.state != NotStarted {
		m.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	m.state = InProgress
	m.mu.Unlock()

	start := time.Now()
	id := uuid.NewString()
	m.logger.Info("tournament started",
		zap.String("id", id),
		zap.String("kind", string(m.cfg.Kind)),
		zap.Int("participants", len(m.bots)))

	champion, err := m.runStages(ctx)
	if err != nil {
		m.setState(Cancelled)
		m.logger.Warn("tournament aborted", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	matches := make([]*match.Result, len(m.matches))
	copy(matches, m.matches)
	m.state = Completed
	m.mu.Unlock()

	teams := make([]string, len(m.bots))
	for i, h := range m.bots {
		teams[i] = h.TeamName
	}
	rec := &Record{
		ID:        id,
		Kind:      m.cfg.Kind,
		State:     Completed,
		Matches:   matches,
		Standings: scoring.Compute(teams, matches),
		Champion:  champion.TeamName,
		StartedAt: start,
		EndedAt:   time.Now(),
	}
	m.logger.Info("tournament completed",
		zap.String("id", id),
		zap.String("champion", rec.Champion),
		zap.Int("matches", len(rec.Matches)),
		zap.Duration("elapsed", rec.EndedAt.Sub(rec.StartedAt)))
	return rec, nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// runStages plays the optional group stage and then the bracket, returning
// the champion.
func (m *Manager) runStages(ctx context.Context) (*compiler.Handle, error) {
	entrants := m.bots
	if m.cfg.GroupCount > 0 && len(m.bots) > 2 {
		advance := m.cfg.AdvancePerGroup
		if advance <= 0 {
			advance = 2
		}
		groupStage := stage.NewGroupStage(m.bots, m.cfg.GroupCount, advance, m.cfg.Rand)
		if err := m.runStage(ctx, groupStage); err != nil {
			return nil, err
		}
		entrants = groupStage.Advancers()
	}

	bracket := stage.NewBracket(entrants)
	if err := m.runStage(ctx, bracket); err != nil {
		return nil, err
	}
	champion := bracket.Champion()
	if champion == nil {
		return nil, fmt.Errorf("bracket finished without a champion")
	}
	return champion, nil
}

// runStage loops one engine to completion: batch, execute, record, advance.
func (m *Manager) runStage(ctx context.Context, engine stage.Engine) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		batch := engine.NextMatches()
		if len(batch) == 0 {
			if engine.Done() {
				return nil
			}
			engine.Advance()
			continue
		}
		results, err := m.runBatch(ctx, batch)
		if err != nil {
			return err
		}
		for _, res := range results {
			engine.RecordResult(res)
		}
		m.mu.Lock()
		m.matches = append(m.matches, results...)
		m.mu.Unlock()
	}
}

// runBatch executes one round's ready matches with bounded concurrency and
// waits for the whole batch: this is the stage synchronization barrier.
func (m *Manager) runBatch(ctx context.Context, batch []stage.Pairing) ([]*match.Result, error) {
	limit := m.cfg.MaxConcurrentMatches
	if limit <= 0 {
		limit = 4
	}
	results := make([]*match.Result, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for idx, pairing := range batch {
		idx, pairing := idx, pairing
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			res, err := m.runner.Run(gctx, pairing.P1, pairing.P2)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
