package mcts

import (
	"fmt"
	"sort"

	"github.com/brensch/tank2/executor/eval"
	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/rules"
)

// Ranking selects how candidate joint actions are scored.
type Ranking string

const (
	// RankUniform gives every candidate the same score and keeps enumeration order.
	RankUniform Ranking = "uniform"
	// RankPosition scores a candidate by the evaluator's view of the position
	// it leads to against an idle opponent.
	RankPosition Ranking = "position"
	// RankDistance scores a candidate by the path-cost distance score.
	RankDistance Ranking = "distance"
)

func ParseRanking(s string) (Ranking, error) {
	switch r := Ranking(s); r {
	case RankUniform, RankPosition, RankDistance:
		return r, nil
	}
	return "", fmt.Errorf("unknown ranking %q", s)
}

// terminalScore is what a candidate that ends the game is worth, scaled by
// its outcome from -1 (loss) to 1 (win).
const terminalScore = 1000

// Candidate is one joint action with its heuristic score.
type Candidate struct {
	Action game.JointAction
	Score  float64
}

// Ranker enumerates and scores a side's legal joint actions.
type Ranker struct {
	Mode Ranking
	Eval *eval.Evaluator
}

func NewRanker(mode Ranking, ev *eval.Evaluator) *Ranker {
	return &Ranker{Mode: mode, Eval: ev}
}

// Rank lists side's legal joint actions, unit 0's action in the outer loop,
// and returns at most limit of them (limit <= 0 means all). Scored modes
// sort by descending score, keeping enumeration order among equals.
//
// Scoring applies each candidate to s and undoes it again, so s must not be
// shared with another goroutine while Rank runs. It is left exactly as found.
func (r *Ranker) Rank(s *game.GameState, side, limit int) []Candidate {
	var legal [game.UnitsPerSide][]game.Action
	for unit := 0; unit < game.UnitsPerSide; unit++ {
		for _, act := range game.Actions {
			if rules.ActionIsValid(s, side, unit, act) {
				legal[unit] = append(legal[unit], act)
			}
		}
	}

	out := make([]Candidate, 0, len(legal[0])*len(legal[1]))
	for _, a0 := range legal[0] {
		for _, a1 := range legal[1] {
			out = append(out, Candidate{Action: game.JointAction{a0, a1}, Score: 1})
		}
	}

	if r.Mode != RankUniform && r.Mode != "" {
		pending := s.Pending
		for i := range out {
			out[i].Score = r.score(s, side, out[i].Action)
		}
		s.Pending = pending
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Ranker) score(s *game.GameState, side int, act game.JointAction) float64 {
	var joint [game.Sides]game.JointAction
	joint[side] = act
	joint[game.Opponent(side)] = game.Idle
	if err := rules.Step(s, joint[0], joint[1]); err != nil {
		panic(fmt.Sprintf("ranker: legal candidate %s rejected: %v", act, err))
	}
	defer func() {
		if err := rules.Undo(s); err != nil {
			panic(fmt.Sprintf("ranker: undo failed: %v", err))
		}
	}()

	if out := rules.Outcome(s); out != game.Unfinished {
		return (2*out.Value(side) - 1) * terminalScore
	}
	if r.Mode == RankDistance {
		return eval.DistanceScore(s, side)
	}
	return r.Eval.Score(s, side)
}
