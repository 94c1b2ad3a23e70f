// Package stage implements the pairing and advancement algorithms of the
// competition formats: randomized round-robin groups and single-elimination
// brackets. Both satisfy a common engine contract the tournament manager
// drives round by round.
package stage

import (
	"botarena/internal/compiler"
	"botarena/internal/match"
)

// Pairing is one scheduled match between two competitors.
type Pairing struct {
	P1 *compiler.Handle
	P2 *compiler.Handle
}

// Engine is a stage-specific scheduler. The manager repeatedly asks for the
// ready batch, runs it, records every result, then advances once the batch
// comes back empty.
type Engine interface {
	// NextMatches returns the unplayed pairings ready to run. An empty
	// batch means the current round is exhausted.
	NextMatches() []Pairing
	// RecordResult folds one completed match into the stage.
	RecordResult(res *match.Result)
	// Advance moves the stage to its next round.
	Advance()
	// Done reports whether the stage has completed its schedule.
	Done() bool
	// Ranking returns the stage's final placement, best first. Only
	// meaningful once Done reports true.
	Ranking() []*compiler.Handle
}
