package stage

import (
	"math/bits"

	"botarena/internal/compiler"
	"botarena/internal/match"
)

// BracketRound is one single-elimination round: its pairings plus the
// participants carried through on a bye.
type BracketRound struct {
	Index    int
	Pairings []Pairing
	Byes     []*compiler.Handle

	winners map[string]*compiler.Handle
}

// ParticipantCount counts everyone entering this round, byes included.
func (r *BracketRound) ParticipantCount() int {
	return len(r.Pairings)*2 + len(r.Byes)
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// RoundCountFor returns ceil(log2(n)) for n >= 2, zero otherwise.
func RoundCountFor(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(nextPowerOfTwo(n))) - 1
}

// Bracket runs a single-elimination tournament over an ordered entrant
// list. Entrants beyond the bracket's power-of-two capacity receive an
// automatic bye into round two; each subsequent round pairs the prior
// round's winners plus carried byes until one competitor remains.
type Bracket struct {
	entrants []*compiler.Handle
	rounds   []*BracketRound
	current  int
	issued   bool

	champion   *compiler.Handle
	runnerUp   *compiler.Handle
	eliminated [][]*compiler.Handle // losers grouped by round
	finished   bool
}

// NewBracket seeds a bracket. With zero or one entrant there are no rounds
// and the sole entrant, if any, is champion immediately.
func NewBracket(entrants []*compiler.Handle) *Bracket {
	b := &Bracket{entrants: entrants}
	n := len(entrants)
	if n <= 1 {
		if n == 1 {
			b.champion = entrants[0]
		}
		b.finished = true
		return b
	}

	byes := nextPowerOfTwo(n) - n
	round := &BracketRound{Index: 1, winners: make(map[string]*compiler.Handle)}
	round.Byes = append(round.Byes, entrants[:byes]...)
	fighters := entrants[byes:]
	for i := 0; i+1 < len(fighters); i += 2 {
		round.Pairings = append(round.Pairings, Pairing{P1: fighters[i], P2: fighters[i+1]})
	}
	b.rounds = append(b.rounds, round)
	return b
}

// Rounds exposes the bracket built so far.
func (b *Bracket) Rounds() []*BracketRound {
	return b.rounds
}

// Champion returns the winner once the bracket has finished.
func (b *Bracket) Champion() *compiler.Handle {
	return b.champion
}

// NextMatches returns the current round's pairings, once per round.
func (b *Bracket) NextMatches() []Pairing {
	if b.issued || b.finished || b.current >= len(b.rounds) {
		return nil
	}
	b.issued = true
	return b.rounds[b.current].Pairings
}

// RecordResult stores the winner of one current-round pairing. An
// elimination draw advances the higher-seeded side (pairing position one).
func (b *Bracket) RecordResult(res *match.Result) {
	if b.current >= len(b.rounds) {
		return
	}
	round := b.rounds[b.current]
	for _, p := range round.Pairings {
		if !res.Involves(p.P1.TeamName) || !res.Involves(p.P2.TeamName) {
			continue
		}
		winner := p.P1
		if res.Winner() == p.P2.TeamName {
			winner = p.P2
		}
		round.winners[pairKey(p)] = winner
		return
	}
}

func pairKey(p Pairing) string {
	return p.P1.TeamName + "|" + p.P2.TeamName
}

// Advance folds the round's winners and byes into the next round, or
// crowns the champion when one competitor remains.
func (b *Bracket) Advance() {
	if b.finished || b.current >= len(b.rounds) {
		return
	}
	round := b.rounds[b.current]

	var next []*compiler.Handle
	next = append(next, round.Byes...)
	var losers []*compiler.Handle
	for _, p := range round.Pairings {
		winner, ok := round.winners[pairKey(p)]
		if !ok {
			winner = p.P1
		}
		next = append(next, winner)
		if winner == p.P1 {
			losers = append(losers, p.P2)
		} else {
			losers = append(losers, p.P1)
		}
	}
	b.eliminated = append(b.eliminated, losers)

	if len(next) == 1 {
		b.champion = next[0]
		if len(losers) == 1 {
			b.runnerUp = losers[0]
		}
		b.finished = true
		b.current++
		b.issued = false
		return
	}

	nextRound := &BracketRound{Index: round.Index + 1, winners: make(map[string]*compiler.Handle)}
	if len(next)%2 != 0 {
		nextRound.Byes = append(nextRound.Byes, next[0])
		next = next[1:]
	}
	for i := 0; i+1 < len(next); i += 2 {
		nextRound.Pairings = append(nextRound.Pairings, Pairing{P1: next[i], P2: next[i+1]})
	}
	b.rounds = append(b.rounds, nextRound)
	b.current++
	b.issued = false
}

// Done reports whether a champion has been determined.
func (b *Bracket) Done() bool {
	return b.finished
}

// Ranking returns champion, runner-up, then earlier losers round by round
// from the deepest run outward. Intra-round loser order is unspecified.
func (b *Bracket) Ranking() []*compiler.Handle {
	var out []*compiler.Handle
	if b.champion != nil {
		out = append(out, b.champion)
	}
	if b.runnerUp != nil {
		out = append(out, b.runnerUp)
	}
	for i := len(b.eliminated) - 1; i >= 0; i-- {
		for _, h := range b.eliminated[i] {
			if h != b.runnerUp {
				out = append(out, h)
			}
		}
	}
	return out
}
