// Package game defines the canonical capability contract every competitor
// must satisfy, the shared match state passed into each call, and the rules
// for the supported game kinds.
package game

import "fmt"

// Kind identifies one of the supported games.
type Kind string

const (
	RPSLS            Kind = "rpsls"
	ColonelBlotto    Kind = "colonel_blotto"
	PrisonersDilemma Kind = "prisoners_dilemma"
	SplitOrSteal     Kind = "split_or_steal"
)

// ParseKind maps a user-facing name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case RPSLS, ColonelBlotto, PrisonersDilemma, SplitOrSteal:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown game kind %q", s)
}

// Move is a single RPSLS throw.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
	Lizard   Move = "lizard"
	Spock    Move = "spock"
)

// CoopChoice is the first binary decision set.
type CoopChoice string

const (
	Cooperate CoopChoice = "cooperate"
	Defect    CoopChoice = "defect"
)

// SplitChoice is the second binary decision set.
type SplitChoice string

const (
	Split SplitChoice = "split"
	Steal SplitChoice = "steal"
)

// Exchange records one completed round from the perspective of the player
// receiving the state. Moves are encoded as strings so a single history
// shape serves every game kind.
type Exchange struct {
	Mine   string
	Theirs string
}

// GameState is the snapshot handed to a strategy before each call. It is
// copied per call; mutation by a competitor never leaks back into the match.
type GameState struct {
	Round     int
	MaxRounds int
	History   []Exchange
	MyScore   int
	OppScore  int
	Aux       map[string]string
}

// Clone returns a deep copy so each competitor call receives private state.
func (s GameState) Clone() GameState {
	out := s
	if s.History != nil {
		out.History = make([]Exchange, len(s.History))
		copy(out.History, s.History)
	}
	if s.Aux != nil {
		out.Aux = make(map[string]string, len(s.Aux))
		for k, v := range s.Aux {
			out.Aux[k] = v
		}
	}
	return out
}

// Strategy is the canonical capability contract. Submissions compiled in
// their own interpreter satisfy it through the adapter package; native Go
// competitors implement it directly.
type Strategy interface {
	// MakeMove produces an RPSLS throw.
	MakeMove(state GameState) Move
	// AllocateSoldiers distributes the Colonel Blotto budget across fronts.
	AllocateSoldiers(state GameState) []int
	// DecideCooperation picks from the cooperate/defect choice set.
	DecideCooperation(state GameState) CoopChoice
	// DecideSplit picks from the split/steal choice set.
	DecideSplit(state GameState) SplitChoice
}

// Rules carries the per-kind knobs a match is played under.
type Rules struct {
	Kind      Kind
	MaxRounds int
	Fronts    int
	Budget    int
}

// DefaultRules returns the standard configuration for a kind.
func DefaultRules(kind Kind) Rules {
	r := Rules{Kind: kind, MaxRounds: 10, Fronts: 5, Budget: 100}
	if kind == ColonelBlotto {
		r.MaxRounds = 5
	}
	return r
}
