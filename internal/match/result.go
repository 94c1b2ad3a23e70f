// Package match executes a single match between two compiled competitors
// under per-move timeouts and classifies the outcome.
package match

import (
	"time"

	"botarena/internal/game"
)

// Outcome classifies how a match ended.
type Outcome int

const (
	Unknown Outcome = iota
	Player1Wins
	Player2Wins
	Draw
	Player1Error
	Player2Error
	BothError
)

func (o Outcome) String() string {
	switch o {
	case Player1Wins:
		return "player1_wins"
	case Player2Wins:
		return "player2_wins"
	case Draw:
		return "draw"
	case Player1Error:
		return "player1_error"
	case Player2Error:
		return "player2_error"
	case BothError:
		return "both_error"
	default:
		return "unknown"
	}
}

// Fault records one competitor's contract violation during a match.
type Fault struct {
	Team   string
	Round  int
	Reason string
}

// RoundLog is one completed exchange.
type RoundLog struct {
	Round   int
	Action1 string
	Action2 string
	Delta1  int
	Delta2  int
}

// Result is the immutable record of one completed match.
type Result struct {
	Kind      game.Kind
	Team1     string
	Team2     string
	Score1    int
	Score2    int
	Outcome   Outcome
	Rounds    []RoundLog
	Faults    []Fault
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// Winner returns the winning team name, or empty for draws, double errors,
// and unknown outcomes. A single-sided error hands the match to the
// well-behaved opponent.
func (r *Result) Winner() string {
	switch r.Outcome {
	case Player1Wins, Player2Error:
		return r.Team1
	case Player2Wins, Player1Error:
		return r.Team2
	}
	return ""
}

// Loser mirrors Winner.
func (r *Result) Loser() string {
	switch r.Outcome {
	case Player1Wins, Player2Error:
		return r.Team2
	case Player2Wins, Player1Error:
		return r.Team1
	}
	return ""
}

// Involves reports whether the named team played in this match.
func (r *Result) Involves(team string) bool {
	return r.Team1 == team || r.Team2 == team
}
