package mcts

import (
	"math/rand/v2"

	"github.com/brensch/tank2/game"
)

// RolloutPolicy picks playout moves uniformly among the ranker's candidates.
type RolloutPolicy struct {
	Ranker *Ranker
	Cap    int
}

func (p *RolloutPolicy) Choose(s *game.GameState, side int, rng *rand.Rand) game.JointAction {
	cands := p.Ranker.Rank(s, side, p.Cap)
	// Stay is always legal, so there is at least one candidate.
	return cands[rng.IntN(len(cands))].Action
}
