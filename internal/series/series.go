// Package series chains tournaments over a shared bot pool and folds
// their rankings into series-wide standings.
package series

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"botarena/internal/compiler"
	"botarena/internal/game"
	"botarena/internal/tournament"
)

var (
	// ErrNilConfig rejects construction without configuration.
	ErrNilConfig = errors.New("series config is nil")
	// ErrEmptySchedule rejects a series with no game kinds to play.
	ErrEmptySchedule = errors.New("series schedule is empty")
)

// Listener receives lifecycle notifications as the series progresses.
// Implementations must not block; they run on the series goroutine.
type Listener interface {
	SeriesStarted(id string, schedule []game.Kind)
	TournamentStarted(step int, kind game.Kind)
	TournamentCompleted(step int, rec *tournament.Record)
	ProgressUpdated(step, total int, standings []BotStanding)
	SeriesCompleted(rec *Record)
}

// NopListener satisfies Listener and does nothing.
type NopListener struct{}

func (NopListener) SeriesStarted(string, []game.Kind)           {}
func (NopListener) TournamentStarted(int, game.Kind)            {}
func (NopListener) TournamentCompleted(int, *tournament.Record) {}
func (NopListener) ProgressUpdated(int, int, []BotStanding)     {}
func (NopListener) SeriesCompleted(*Record)                     {}

// BotStanding is one bot's running series aggregate.
type BotStanding struct {
	Team       string
	TotalScore int
	Wins       int
	Losses     int
	Draws      int
	// ScoreByKind splits TotalScore across game kinds; repeated kinds
	// in the schedule accumulate into one entry.
	ScoreByKind map[game.Kind]int
	// Placements holds the bot's 1-based rank in each step, in order.
	Placements []int
}

// Record is the finalized account of a whole series.
type Record struct {
	ID            string
	Schedule      []game.Kind
	Tournaments   []*tournament.Record
	Standings     []BotStanding
	Champion      string
	MatchCount    int
	MatchesByKind map[game.Kind]int
	StartedAt     time.Time
	EndedAt       time.Time
}

// Config parameterizes a series. Tournament holds the per-step settings;
// its Kind field is overwritten by each schedule entry.
type Config struct {
	Schedule   []game.Kind
	Tournament tournament.Config
	// RulesByKind overrides the default rules for the kinds it names.
	// Kinds absent from the map play with game.DefaultRules.
	RulesByKind map[game.Kind]game.Rules
	Listener    Listener
	Logger      *zap.Logger
}

// Manager runs a series to completion.
type Manager struct {
	cfg      *Config
	bots     []*compiler.Handle
	listener Listener
	logger   *zap.Logger

	totals map[string]*BotStanding
	order  []string
}

// NewManager validates the schedule and roster before any state exists.
func NewManager(cfg *Config, bots []*compiler.Handle) (*Manager, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if len(cfg.Schedule) == 0 {
		return nil, ErrEmptySchedule
	}
	for _, kind := range cfg.Schedule {
		if _, err := game.ParseKind(string(kind)); err != nil {
			return nil, err
		}
	}
	if len(bots) == 0 {
		return nil, tournament.ErrNoParticipants
	}
	listener := cfg.Listener
	if listener == nil {
		listener = NopListener{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		cfg:      cfg,
		bots:     bots,
		listener: listener,
		logger:   logger,
		totals:   make(map[string]*BotStanding),
	}
	for _, h := range bots {
		if _, ok := m.totals[h.TeamName]; ok {
			continue
		}
		m.totals[h.TeamName] = &BotStanding{
			Team:        h.TeamName,
			ScoreByKind: make(map[game.Kind]int),
		}
		m.order = append(m.order, h.TeamName)
	}
	return m, nil
}

// Run plays every scheduled tournament in order. A cancelled or failed
// step aborts the series; completed steps are not replayed.
func (m *Manager) Run(ctx context.Context) (*Record, error) {
	start := time.Now()
	rec := &Record{
		ID:            uuid.NewString(),
		Schedule:      append([]game.Kind(nil), m.cfg.Schedule...),
		MatchesByKind: make(map[game.Kind]int),
		StartedAt:     start,
	}
	m.listener.SeriesStarted(rec.ID, rec.Schedule)
	m.logger.Info("series started",
		zap.String("id", rec.ID),
		zap.Int("steps", len(rec.Schedule)),
		zap.Int("bots", len(m.bots)))

	for step, kind := range m.cfg.Schedule {
		m.listener.TournamentStarted(step, kind)

		tcfg := m.cfg.Tournament
		tcfg.Kind = kind
		tcfg.Rules = game.Rules{}
		if r, ok := m.cfg.RulesByKind[kind]; ok {
			tcfg.Rules = r
		} else if m.cfg.Tournament.Rules.Kind == kind {
			tcfg.Rules = m.cfg.Tournament.Rules
		}
		if tcfg.Logger == nil {
			tcfg.Logger = m.logger
		}
		mgr, err := tournament.NewManager(&tcfg, m.bots)
		if err != nil {
			return nil, err
		}
		trec, err := mgr.Run(ctx)
		if err != nil {
			return nil, err
		}

		rec.Tournaments = append(rec.Tournaments, trec)
		rec.MatchCount += len(trec.Matches)
		rec.MatchesByKind[kind] += len(trec.Matches)
		m.fold(kind, trec)

		m.listener.TournamentCompleted(step, trec)
		m.listener.ProgressUpdated(step+1, len(m.cfg.Schedule), m.Standings())
	}

	rec.Standings = m.Standings()
	if len(rec.Standings) > 0 {
		rec.Champion = rec.Standings[0].Team
	}
	rec.EndedAt = time.Now()
	m.listener.SeriesCompleted(rec)
	m.logger.Info("series completed",
		zap.String("id", rec.ID),
		zap.String("champion", rec.Champion),
		zap.Int("matches", rec.MatchCount))
	return rec, nil
}

// fold merges one tournament's standings into the running totals.
func (m *Manager) fold(kind game.Kind, trec *tournament.Record) {
	for place, s := range trec.Standings {
		agg, ok := m.totals[s.Team]
		if !ok {
			continue
		}
		agg.TotalScore += s.Points
		agg.Wins += s.Wins
		agg.Losses += s.Losses
		agg.Draws += s.Draws
		agg.ScoreByKind[kind] += s.Points
		agg.Placements = append(agg.Placements, place+1)
	}
}

// Standings returns the current aggregates sorted by total score desc,
// wins desc, losses asc, then stable roster order.
func (m *Manager) Standings() []BotStanding {
	out := make([]BotStanding, 0, len(m.order))
	for _, team := range m.order {
		agg := m.totals[team]
		cp := *agg
		cp.ScoreByKind = make(map[game.Kind]int, len(agg.ScoreByKind))
		for k, v := range agg.ScoreByKind {
			cp.ScoreByKind[k] = v
		}
		cp.Placements = append([]int(nil), agg.Placements...)
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Losses < out[j].Losses
	})
	return out
}
