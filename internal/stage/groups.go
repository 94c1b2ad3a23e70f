package stage

import (
	"fmt"
	"math/rand"

	"botarena/internal/compiler"
	"botarena/internal/match"
	"botarena/internal/scoring"
)

// Group is one randomized pool playing an internal round-robin.
type Group struct {
	Label   string
	Members []*compiler.Handle

	// schedule holds the round-robin rounds; each inner slice pairs every
	// member at most once.
	schedule [][]Pairing
	results  []*match.Result
}

// Standings computes the group's current table.
func (g *Group) Standings() []scoring.Standing {
	teams := make([]string, len(g.Members))
	for i, m := range g.Members {
		teams[i] = m.TeamName
	}
	return scoring.Compute(teams, g.results)
}

// CreateInitialGroups randomly partitions bots into min(len(bots), count)
// groups whose sizes differ by at most one. Every bot lands in exactly one
// group; fewer bots than groups collapse to singletons. The shuffle draws
// from rng, so repeated calls on the same input produce different layouts.
func CreateInitialGroups(bots []*compiler.Handle, count int, rng *rand.Rand) []*Group {
	if count > len(bots) {
		count = len(bots)
	}
	if count <= 0 {
		return nil
	}

	shuffled := make([]*compiler.Handle, len(bots))
	copy(shuffled, bots)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	} else {
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	}

	groups := make([]*Group, count)
	for i := range groups {
		groups[i] = &Group{Label: groupLabel(i)}
	}
	for i, bot := range shuffled {
		g := groups[i%count]
		g.Members = append(g.Members, bot)
	}
	for _, g := range groups {
		g.schedule = roundRobinRounds(g.Members)
	}
	return groups
}

func groupLabel(i int) string {
	if i < 26 {
		return fmt.Sprintf("Group %c", 'A'+i)
	}
	return fmt.Sprintf("Group %d", i+1)
}

// roundRobinRounds builds a circle-method schedule: every pair meets
// exactly once and nobody plays twice in the same round.
func roundRobinRounds(members []*compiler.Handle) [][]Pairing {
	n := len(members)
	if n < 2 {
		return nil
	}

	ring := make([]*compiler.Handle, n)
	copy(ring, members)
	if n%2 != 0 {
		ring = append(ring, nil) // bye slot
	}
	size := len(ring)

	var rounds [][]Pairing
	for r := 0; r < size-1; r++ {
		var round []Pairing
		for i := 0; i < size/2; i++ {
			a, b := ring[i], ring[size-1-i]
			if a != nil && b != nil {
				round = append(round, Pairing{P1: a, P2: b})
			}
		}
		rounds = append(rounds, round)
		// Rotate all but the first position.
		last := ring[size-1]
		copy(ring[2:], ring[1:size-1])
		ring[1] = last
	}
	return rounds
}

// GroupStage drives every group through its round-robin schedule and
// advances the top performers of each group.
type GroupStage struct {
	groups    []*Group
	advance   int
	round     int
	maxRounds int
	issued    bool
}

// NewGroupStage partitions bots and prepares the schedules. advancePerGroup
// bounds how many members of each group survive the stage.
func NewGroupStage(bots []*compiler.Handle, groupCount, advancePerGroup int, rng *rand.Rand) *GroupStage {
	groups := CreateInitialGroups(bots, groupCount, rng)
	maxRounds := 0
	for _, g := range groups {
		if len(g.schedule) > maxRounds {
			maxRounds = len(g.schedule)
		}
	}
	if advancePerGroup < 1 {
		advancePerGroup = 1
	}
	return &GroupStage{groups: groups, advance: advancePerGroup, maxRounds: maxRounds}
}

// Groups exposes the current partition for snapshots.
func (gs *GroupStage) Groups() []*Group {
	return gs.groups
}

// NextMatches returns the union of every group's pairings for the current
// round, once per round.
func (gs *GroupStage) NextMatches() []Pairing {
	if gs.issued || gs.Done() {
		return nil
	}
	var batch []Pairing
	for _, g := range gs.groups {
		if gs.round < len(g.schedule) {
			batch = append(batch, g.schedule[gs.round]...)
		}
	}
	gs.issued = true
	return batch
}

// RecordResult files the result with the owning group.
func (gs *GroupStage) RecordResult(res *match.Result) {
	for _, g := range gs.groups {
		for _, m := range g.Members {
			if res.Involves(m.TeamName) {
				g.results = append(g.results, res)
				return
			}
		}
	}
}

// Advance moves every group to its next round-robin round.
func (gs *GroupStage) Advance() {
	gs.round++
	gs.issued = false
}

// Done reports schedule completion across all groups.
func (gs *GroupStage) Done() bool {
	return gs.round >= gs.maxRounds
}

// Advancers returns each group's top performers, in group order.
func (gs *GroupStage) Advancers() []*compiler.Handle {
	var out []*compiler.Handle
	for _, g := range gs.groups {
		standings := g.Standings()
		top := scoring.TopTeams(standings, gs.advance)
		for _, team := range top {
			for _, m := range g.Members {
				if m.TeamName == team {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// Ranking places advancers first, then the remaining members in their
// group-table order.
func (gs *GroupStage) Ranking() []*compiler.Handle {
	advancers := gs.Advancers()
	seen := make(map[string]bool, len(advancers))
	for _, h := range advancers {
		seen[h.TeamName] = true
	}
	out := advancers
	for _, g := range gs.groups {
		for _, s := range g.Standings() {
			if seen[s.Team] {
				continue
			}
			for _, m := range g.Members {
				if m.TeamName == s.Team {
					out = append(out, m)
					seen[s.Team] = true
				}
			}
		}
	}
	return out
}
