package game

import (
	"fmt"
	"strconv"
	"strings"
)

// beats maps each RPSLS move onto the two moves it defeats.
var beats = map[Move][2]Move{
	Rock:     {Scissors, Lizard},
	Paper:    {Rock, Spock},
	Scissors: {Paper, Lizard},
	Lizard:   {Spock, Paper},
	Spock:    {Scissors, Rock},
}

// ValidMove reports whether m is one of the five legal RPSLS throws.
func ValidMove(m Move) bool {
	_, ok := beats[m]
	return ok
}

// Beats reports whether a defeats b.
func Beats(a, b Move) bool {
	pair, ok := beats[a]
	if !ok {
		return false
	}
	return pair[0] == b || pair[1] == b
}

// ScoreRPSLS resolves one exchange: the winning side gets one point.
func ScoreRPSLS(a, b Move) (int, int) {
	switch {
	case Beats(a, b):
		return 1, 0
	case Beats(b, a):
		return 0, 1
	default:
		return 0, 0
	}
}

// ValidAllocation checks a Colonel Blotto allocation: exactly r.Fronts
// non-negative entries summing to r.Budget.
func (r Rules) ValidAllocation(alloc []int) error {
	if len(alloc) != r.Fronts {
		return fmt.Errorf("allocation has %d fronts, want %d", len(alloc), r.Fronts)
	}
	total := 0
	for i, n := range alloc {
		if n < 0 {
			return fmt.Errorf("front %d has negative allocation %d", i, n)
		}
		total += n
	}
	if total != r.Budget {
		return fmt.Errorf("allocation sums to %d, want %d", total, r.Budget)
	}
	return nil
}

// ScoreBlotto awards one point per front held with strictly more soldiers.
func ScoreBlotto(a, b []int) (int, int) {
	var sa, sb int
	for i := range a {
		switch {
		case a[i] > b[i]:
			sa++
		case b[i] > a[i]:
			sb++
		}
	}
	return sa, sb
}

// ScoreDilemma applies the standard payoff matrix: mutual cooperation 3/3,
// mutual defection 1/1, unilateral defection 5/0.
func ScoreDilemma(a, b CoopChoice) (int, int) {
	switch {
	case a == Cooperate && b == Cooperate:
		return 3, 3
	case a == Defect && b == Defect:
		return 1, 1
	case a == Defect:
		return 5, 0
	default:
		return 0, 5
	}
}

// ScoreSplit applies the split-or-steal pot division: both split 50/50,
// one steals 100/0, both steal nothing.
func ScoreSplit(a, b SplitChoice) (int, int) {
	switch {
	case a == Split && b == Split:
		return 50, 50
	case a == Steal && b == Steal:
		return 0, 0
	case a == Steal:
		return 100, 0
	default:
		return 0, 100
	}
}

// EncodeAllocation renders a Blotto allocation for the round history.
func EncodeAllocation(alloc []int) string {
	parts := make([]string, len(alloc))
	for i, n := range alloc {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "/")
}
