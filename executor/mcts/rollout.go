package mcts

import (
	"fmt"
	"math/rand/v2"

	"github.com/brensch/tank2/executor/eval"
	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/rules"
)

// Simulator plays short random games from a position.
type Simulator struct {
	Policy *RolloutPolicy
	Eval   *eval.Evaluator
	// Turns is how many turns are played before the evaluator takes over.
	Turns int
}

// Run plays out from s without touching it and returns side's result:
// the exact outcome if the game ends within the turn budget, the
// evaluator's win probability otherwise. finished reports which happened.
func (sim *Simulator) Run(s *game.GameState, side int, rng *rand.Rand) (value float64, finished bool) {
	st := s.Clone()
	start := st.Turn

	for {
		if out := rules.Outcome(st); out != game.Unfinished {
			return out.Value(side), true
		}
		if st.Turn-start >= sim.Turns {
			return sim.Eval.WinProbability(st, side), false
		}

		a0 := sim.Policy.Choose(st, 0, rng)
		a1 := sim.Policy.Choose(st, 1, rng)
		if err := rules.Step(st, a0, a1); err != nil {
			panic(fmt.Sprintf("rollout: turn %d %s/%s rejected: %v\n%s", st.Turn, a0, a1, err, game.Render(st)))
		}
	}
}
