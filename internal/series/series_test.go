package series

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botarena/internal/compiler"
	"botarena/internal/game"
	"botarena/internal/tournament"
)

// steadyBot plays fixed answers for every game kind.
type steadyBot struct {
	move  game.Move
	alloc []int
}

func (b steadyBot) MakeMove(game.GameState) game.Move                { return b.move }
func (b steadyBot) AllocateSoldiers(game.GameState) []int            { return b.alloc }
func (b steadyBot) DecideCooperation(game.GameState) game.CoopChoice { return game.Defect }
func (b steadyBot) DecideSplit(game.GameState) game.SplitChoice      { return game.Split }

func fourBots() []*compiler.Handle {
	return []*compiler.Handle{
		compiler.NewHandle("alpha", steadyBot{move: game.Paper, alloc: []int{40, 40, 20, 0, 0}}),
		compiler.NewHandle("bravo", steadyBot{move: game.Rock, alloc: []int{20, 20, 20, 20, 20}}),
		compiler.NewHandle("carol", steadyBot{move: game.Scissors, alloc: []int{0, 0, 0, 50, 50}}),
		compiler.NewHandle("delta", steadyBot{move: game.Spock, alloc: []int{25, 25, 25, 25, 0}}),
	}
}

// recordingListener captures every notification in arrival order.
type recordingListener struct {
	events []string
	steps  []int
}

func (l *recordingListener) SeriesStarted(string, []game.Kind) { l.events = append(l.events, "series_started") }
func (l *recordingListener) TournamentStarted(step int, _ game.Kind) {
	l.events = append(l.events, "tournament_started")
	l.steps = append(l.steps, step)
}
func (l *recordingListener) TournamentCompleted(int, *tournament.Record) {
	l.events = append(l.events, "tournament_completed")
}
func (l *recordingListener) ProgressUpdated(int, int, []BotStanding) {
	l.events = append(l.events, "progress_updated")
}
func (l *recordingListener) SeriesCompleted(*Record) { l.events = append(l.events, "series_completed") }

func TestNewManagerRejections(t *testing.T) {
	_, err := NewManager(nil, fourBots())
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewManager(&Config{}, fourBots())
	assert.ErrorIs(t, err, ErrEmptySchedule)

	_, err = NewManager(&Config{Schedule: []game.Kind{"checkers"}}, fourBots())
	assert.Error(t, err)

	_, err = NewManager(&Config{Schedule: []game.Kind{game.RPSLS}}, nil)
	assert.ErrorIs(t, err, tournament.ErrNoParticipants)
}

func TestSeriesAggregatesAcrossRepeatedKinds(t *testing.T) {
	schedule := []game.Kind{game.RPSLS, game.ColonelBlotto, game.RPSLS}
	mgr, err := NewManager(&Config{Schedule: schedule}, fourBots())
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.Tournaments, 3, "one ordered record per scheduled kind")
	assert.Equal(t, game.RPSLS, rec.Tournaments[0].Kind)
	assert.Equal(t, game.ColonelBlotto, rec.Tournaments[1].Kind)
	assert.Equal(t, game.RPSLS, rec.Tournaments[2].Kind)

	// Per-kind series score is the sum of that bot's scores in the
	// tournaments of that kind.
	wantRPSLS := map[string]int{}
	for _, step := range []int{0, 2} {
		for _, s := range rec.Tournaments[step].Standings {
			wantRPSLS[s.Team] += s.Points
		}
	}
	for _, s := range rec.Standings {
		assert.Equal(t, wantRPSLS[s.Team], s.ScoreByKind[game.RPSLS],
			"team %s rpsls series score", s.Team)
	}

	// Total = sum over all kinds.
	for _, s := range rec.Standings {
		sum := 0
		for _, v := range s.ScoreByKind {
			sum += v
		}
		assert.Equal(t, s.TotalScore, sum)
		assert.Len(t, s.Placements, 3, "one placement per step")
	}

	assert.Equal(t, rec.Standings[0].Team, rec.Champion)

	// Match counters split by kind and sum to the total.
	total := 0
	for _, trec := range rec.Tournaments {
		total += len(trec.Matches)
	}
	assert.Equal(t, total, rec.MatchCount)
	assert.Equal(t, rec.MatchesByKind[game.RPSLS],
		len(rec.Tournaments[0].Matches)+len(rec.Tournaments[2].Matches))
}

func TestSeriesStandingsSortOrder(t *testing.T) {
	mgr, err := NewManager(&Config{Schedule: []game.Kind{game.RPSLS}}, fourBots())
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	for i := 1; i < len(rec.Standings); i++ {
		prev, cur := rec.Standings[i-1], rec.Standings[i]
		if prev.TotalScore != cur.TotalScore {
			assert.Greater(t, prev.TotalScore, cur.TotalScore)
			continue
		}
		if prev.Wins != cur.Wins {
			assert.Greater(t, prev.Wins, cur.Wins)
			continue
		}
		assert.LessOrEqual(t, prev.Losses, cur.Losses)
	}
}

func TestSeriesListenerLifecycle(t *testing.T) {
	listener := &recordingListener{}
	mgr, err := NewManager(&Config{
		Schedule: []game.Kind{game.RPSLS, game.PrisonersDilemma},
		Listener: listener,
	}, fourBots())
	require.NoError(t, err)

	_, err = mgr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"series_started",
		"tournament_started", "tournament_completed", "progress_updated",
		"tournament_started", "tournament_completed", "progress_updated",
		"series_completed",
	}, listener.events)
	assert.Equal(t, []int{0, 1}, listener.steps)
}

func TestSeriesCancellationAborts(t *testing.T) {
	mgr, err := NewManager(&Config{Schedule: []game.Kind{game.RPSLS}}, fourBots())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := mgr.Run(ctx)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, tournament.ErrCancelled)
}

func TestSeriesAppliesPerKindRules(t *testing.T) {
	short := game.DefaultRules(game.RPSLS)
	short.MaxRounds = 2
	mgr, err := NewManager(&Config{
		Schedule:    []game.Kind{game.RPSLS, game.PrisonersDilemma},
		RulesByKind: map[game.Kind]game.Rules{game.RPSLS: short},
	}, fourBots())
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	for _, res := range rec.Tournaments[0].Matches {
		assert.Len(t, res.Rounds, 2, "capped kind plays the shortened match")
	}
	defaultPD := game.DefaultRules(game.PrisonersDilemma)
	for _, res := range rec.Tournaments[1].Matches {
		assert.Len(t, res.Rounds, defaultPD.MaxRounds, "uncapped kind keeps its defaults")
	}
}
