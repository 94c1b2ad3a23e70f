package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"botarena/internal/compiler"
	"botarena/internal/game"
)

// ErrMoveTimeout marks a capability call that outran the per-move budget.
var ErrMoveTimeout = errors.New("move timed out")

// DefaultMoveTimeout bounds a single capability call.
const DefaultMoveTimeout = time.Second

// Runner executes matches for one game kind. Runner state is per-match
// only; a single Runner may serve concurrent matches.
type Runner struct {
	rules   game.Rules
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner builds a runner. A zero timeout falls back to the default.
func NewRunner(rules game.Rules, moveTimeout time.Duration, logger *zap.Logger) *Runner {
	if moveTimeout <= 0 {
		moveTimeout = DefaultMoveTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{rules: rules, timeout: moveTimeout, logger: logger}
}

// Run plays one match to completion. The context is the match-level
// cancellation signal: when it fires, Run aborts with its error and no
// result is fabricated. Per-player contract violations do not abort the
// run; they classify the outcome instead.
func (r *Runner) Run(ctx context.Context, p1, p2 *compiler.Handle) (*Result, error) {
	if p1 == nil || p2 == nil || !p1.Valid() || !p2.Valid() {
		return nil, fmt.Errorf("match requires two valid handles")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Kind:      r.rules.Kind,
		Team1:     p1.TeamName,
		Team2:     p2.TeamName,
		StartedAt: time.Now(),
	}
	r.logger.Debug("match started",
		zap.String("kind", string(r.rules.Kind)),
		zap.String("team1", p1.TeamName),
		zap.String("team2", p2.TeamName))

	for round := 1; round <= r.rules.MaxRounds; round++ {
		log, err1, err2 := r.playRound(ctx, round, p1, p2, res)
		if err1 != nil || err2 != nil {
			if cerr := ctx.Err(); cerr != nil {
				// Cancellation, not a player fault.
				return nil, cerr
			}
			r.classifyFaults(res, round, err1, err2)
			break
		}
		res.Score1 += log.Delta1
		res.Score2 += log.Delta2
		res.Rounds = append(res.Rounds, log)
	}

	if res.Outcome == Unknown {
		switch {
		case res.Score1 > res.Score2:
			res.Outcome = Player1Wins
		case res.Score2 > res.Score1:
			res.Outcome = Player2Wins
		default:
			res.Outcome = Draw
		}
	}

	res.EndedAt = time.Now()
	res.Duration = res.EndedAt.Sub(res.StartedAt)
	r.logger.Debug("match finished",
		zap.String("outcome", res.Outcome.String()),
		zap.Int("score1", res.Score1),
		zap.Int("score2", res.Score2),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// classifyFaults records violations and settles the outcome. Simultaneous
// errors in the same exchange classify as BothError.
func (r *Runner) classifyFaults(res *Result, round int, err1, err2 error) {
	if err1 != nil {
		res.Faults = append(res.Faults, Fault{Team: res.Team1, Round: round, Reason: err1.Error()})
	}
	if err2 != nil {
		res.Faults = append(res.Faults, Fault{Team: res.Team2, Round: round, Reason: err2.Error()})
	}
	switch {
	case err1 != nil && err2 != nil:
		res.Outcome = BothError
	case err1 != nil:
		res.Outcome = Player1Error
	default:
		res.Outcome = Player2Error
	}
}

// playRound gathers both players' responses for one exchange and scores it.
func (r *Runner) playRound(ctx context.Context, round int, p1, p2 *compiler.Handle, res *Result) (RoundLog, error, error) {
	st1 := r.stateFor(round, res, true)
	st2 := r.stateFor(round, res, false)
	log := RoundLog{Round: round}

	switch r.rules.Kind {
	case game.RPSLS:
		var m1, m2 game.Move
		err1 := r.timed(ctx, func() error {
			var err error
			m1, err = p1.MakeMove(st1)
			return err
		})
		err2 := r.timed(ctx, func() error {
			var err error
			m2, err = p2.MakeMove(st2)
			return err
		})
		err1 = legalMove(m1, err1)
		err2 = legalMove(m2, err2)
		if err1 != nil || err2 != nil {
			return log, err1, err2
		}
		log.Action1, log.Action2 = string(m1), string(m2)
		log.Delta1, log.Delta2 = game.ScoreRPSLS(m1, m2)

	case game.ColonelBlotto:
		var a1, a2 []int
		err1 := r.timed(ctx, func() error {
			var err error
			a1, err = p1.AllocateSoldiers(st1)
			return err
		})
		err2 := r.timed(ctx, func() error {
			var err error
			a2, err = p2.AllocateSoldiers(st2)
			return err
		})
		err1 = legalAllocation(r.rules, a1, err1)
		err2 = legalAllocation(r.rules, a2, err2)
		if err1 != nil || err2 != nil {
			return log, err1, err2
		}
		log.Action1, log.Action2 = game.EncodeAllocation(a1), game.EncodeAllocation(a2)
		log.Delta1, log.Delta2 = game.ScoreBlotto(a1, a2)

	case game.PrisonersDilemma:
		var c1, c2 game.CoopChoice
		err1 := r.timed(ctx, func() error {
			var err error
			c1, err = p1.DecideCooperation(st1)
			return err
		})
		err2 := r.timed(ctx, func() error {
			var err error
			c2, err = p2.DecideCooperation(st2)
			return err
		})
		err1 = legalCoop(c1, err1)
		err2 = legalCoop(c2, err2)
		if err1 != nil || err2 != nil {
			return log, err1, err2
		}
		log.Action1, log.Action2 = string(c1), string(c2)
		log.Delta1, log.Delta2 = game.ScoreDilemma(c1, c2)

	case game.SplitOrSteal:
		var c1, c2 game.SplitChoice
		err1 := r.timed(ctx, func() error {
			var err error
			c1, err = p1.DecideSplit(st1)
			return err
		})
		err2 := r.timed(ctx, func() error {
			var err error
			c2, err = p2.DecideSplit(st2)
			return err
		})
		err1 = legalSplit(c1, err1)
		err2 = legalSplit(c2, err2)
		if err1 != nil || err2 != nil {
			return log, err1, err2
		}
		log.Action1, log.Action2 = string(c1), string(c2)
		log.Delta1, log.Delta2 = game.ScoreSplit(c1, c2)

	default:
		return log, fmt.Errorf("unsupported game kind %q", r.rules.Kind), nil
	}

	return log, nil, nil
}

// stateFor builds the per-player snapshot for the upcoming round.
func (r *Runner) stateFor(round int, res *Result, first bool) game.GameState {
	st := game.GameState{
		Round:     round,
		MaxRounds: r.rules.MaxRounds,
	}
	for _, rl := range res.Rounds {
		if first {
			st.History = append(st.History, game.Exchange{Mine: rl.Action1, Theirs: rl.Action2})
		} else {
			st.History = append(st.History, game.Exchange{Mine: rl.Action2, Theirs: rl.Action1})
		}
	}
	if first {
		st.MyScore, st.OppScore = res.Score1, res.Score2
	} else {
		st.MyScore, st.OppScore = res.Score2, res.Score1
	}
	return st
}

// timed runs one capability call under the per-move budget. A timeout or a
// fired match context surfaces as the call's error; the orchestrator never
// crashes on a slow competitor.
func (r *Runner) timed(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrMoveTimeout, r.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func legalMove(m game.Move, err error) error {
	if err != nil {
		return err
	}
	if !game.ValidMove(m) {
		return fmt.Errorf("illegal move %q", m)
	}
	return nil
}

func legalAllocation(rules game.Rules, alloc []int, err error) error {
	if err != nil {
		return err
	}
	if verr := rules.ValidAllocation(alloc); verr != nil {
		return fmt.Errorf("illegal allocation: %w", verr)
	}
	return nil
}

func legalCoop(c game.CoopChoice, err error) error {
	if err != nil {
		return err
	}
	if c != game.Cooperate && c != game.Defect {
		return fmt.Errorf("decision %q outside the cooperate/defect choice set", c)
	}
	return nil
}

func legalSplit(c game.SplitChoice, err error) error {
	if err != nil {
		return err
	}
	if c != game.Split && c != game.Steal {
		return fmt.Errorf("decision %q outside the split/steal choice set", c)
	}
	return nil
}
