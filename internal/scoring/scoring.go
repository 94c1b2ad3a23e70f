// Package scoring computes rankings and tie-breaks from match history.
package scoring

import (
	"sort"

	"botarena/internal/match"
)

// Ranking points per match result.
const (
	WinPoints  = 3
	DrawPoints = 1
)

// Standing is one competitor's accumulated record within a tournament.
type Standing struct {
	Team   string
	Points int
	Wins   int
	Losses int
	Draws  int
}

// Compute folds a match history into ordered standings for the given
// roster. Tie-break order: points desc, wins desc, head-to-head where
// directly computable, then stable roster order.
func Compute(teams []string, results []*match.Result) []Standing {
	index := make(map[string]*Standing, len(teams))
	standings := make([]Standing, len(teams))
	for i, team := range teams {
		standings[i] = Standing{Team: team}
		index[team] = &standings[i]
	}

	headToHead := make(map[[2]string]int)
	for _, res := range results {
		if res == nil {
			continue
		}
		switch winner := res.Winner(); winner {
		case "":
			if res.Outcome == match.Draw {
				if s := index[res.Team1]; s != nil {
					s.Draws++
					s.Points += DrawPoints
				}
				if s := index[res.Team2]; s != nil {
					s.Draws++
					s.Points += DrawPoints
				}
			}
			// BothError and Unknown score nothing for either side.
		default:
			loser := res.Loser()
			if s := index[winner]; s != nil {
				s.Wins++
				s.Points += WinPoints
			}
			if s := index[loser]; s != nil {
				s.Losses++
			}
			headToHead[[2]string{winner, loser}]++
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		ab := headToHead[[2]string{a.Team, b.Team}]
		ba := headToHead[[2]string{b.Team, a.Team}]
		if ab != ba {
			return ab > ba
		}
		// Unresolved ties keep stable roster order.
		return false
	})
	return standings
}

// TopTeams returns the first k team names from ordered standings.
func TopTeams(standings []Standing, k int) []string {
	if k > len(standings) {
		k = len(standings)
	}
	teams := make([]string, k)
	for i := 0; i < k; i++ {
		teams[i] = standings[i].Team
	}
	return teams
}
