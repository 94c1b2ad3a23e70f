package tournament

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"botarena/internal/compiler"
	"botarena/internal/game"
)

// fixedBot plays one scripted RPSLS move every round.
type fixedBot struct {
	move game.Move
}

func (b fixedBot) MakeMove(game.GameState) game.Move              { return b.move }
func (b fixedBot) AllocateSoldiers(game.GameState) []int          { return []int{20, 20, 20, 20, 20} }
func (b fixedBot) DecideCooperation(game.GameState) game.CoopChoice { return game.Cooperate }
func (b fixedBot) DecideSplit(game.GameState) game.SplitChoice      { return game.Split }

func rpslsRoster() []*compiler.Handle {
	// paper beats rock, scissors beats paper, rock beats scissors,
	// spock beats rock and scissors but loses to paper.
	return []*compiler.Handle{
		compiler.NewHandle("rocks", fixedBot{move: game.Rock}),
		compiler.NewHandle("papers", fixedBot{move: game.Paper}),
		compiler.NewHandle("scissors", fixedBot{move: game.Scissors}),
		compiler.NewHandle("spocks", fixedBot{move: game.Spock}),
	}
}

func TestNewManagerRejectsNilConfig(t *testing.T) {
	_, err := NewManager(nil, rpslsRoster())
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewManagerRejectsEmptyRoster(t *testing.T) {
	_, err := NewManager(&Config{Kind: game.RPSLS}, nil)
	assert.ErrorIs(t, err, ErrNoParticipants)

	// A roster of only invalid handles is just as empty.
	broken := []*compiler.Handle{compiler.InvalidHandle("broken", []string{"bad"})}
	_, err = NewManager(&Config{Kind: game.RPSLS}, broken)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestRunBracketOnlyTournament(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr, err := NewManager(&Config{Kind: game.RPSLS}, rpslsRoster())
	require.NoError(t, err)
	assert.Equal(t, NotStarted, mgr.State())

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Completed, rec.State)
	assert.Equal(t, Completed, mgr.State())
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, game.RPSLS, rec.Kind)
	assert.NotEmpty(t, rec.Champion)
	assert.Len(t, rec.Matches, 3, "4-entrant bracket plays 3 matches")
	assert.Len(t, rec.Standings, 4)
	assert.False(t, rec.EndedAt.Before(rec.StartedAt))
}

func TestRunGroupThenBracket(t *testing.T) {
	roster := rpslsRoster()
	for i := 0; i < 4; i++ {
		roster = append(roster, compiler.NewHandle(fmt.Sprintf("extra%d", i), fixedBot{move: game.Lizard}))
	}
	mgr, err := NewManager(&Config{
		Kind:            game.RPSLS,
		GroupCount:      2,
		AdvancePerGroup: 2,
		Rand:            rand.New(rand.NewSource(11)),
	}, roster)
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	// Two groups of four: each plays 6 round-robin matches, then a
	// 4-entrant bracket adds 3 more.
	assert.Len(t, rec.Matches, 15)
	assert.NotEmpty(t, rec.Champion)
}

func TestRunIsSingleUse(t *testing.T) {
	mgr, err := NewManager(&Config{Kind: game.RPSLS}, rpslsRoster())
	require.NoError(t, err)

	_, err = mgr.Run(context.Background())
	require.NoError(t, err)

	_, err = mgr.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRunCancellationProducesNoRecord(t *testing.T) {
	mgr, err := NewManager(&Config{Kind: game.RPSLS}, rpslsRoster())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := mgr.Run(ctx)
	assert.Nil(t, rec, "aborted runs must not fabricate a partial record")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Cancelled, mgr.State())
}

func TestInvalidHandlesAreExcludedFromPlay(t *testing.T) {
	roster := append(rpslsRoster(), compiler.InvalidHandle("rejects", []string{"bad import"}))
	mgr, err := NewManager(&Config{Kind: game.RPSLS}, roster)
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	for _, m := range rec.Matches {
		assert.False(t, m.Involves("rejects"), "invalid handle must never play")
	}
	assert.Len(t, rec.Standings, 4)
}

func TestStandingsCoverAllMatches(t *testing.T) {
	mgr, err := NewManager(&Config{Kind: game.RPSLS}, rpslsRoster())
	require.NoError(t, err)

	rec, err := mgr.Run(context.Background())
	require.NoError(t, err)

	wins := 0
	for _, s := range rec.Standings {
		wins += s.Wins
	}
	decided := 0
	for _, m := range rec.Matches {
		if m.Winner() != "" {
			decided++
		}
	}
	assert.Equal(t, decided, wins, "every decided match credits exactly one win")
	assert.Equal(t, rec.Standings[0].Team, rec.Champion, "fixed strategies leave the bracket and table aligned")
}
