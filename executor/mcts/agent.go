package mcts

import (
	"math"
	"math/rand/v2"

	"github.com/brensch/tank2/game"
)

// Arm is one candidate joint action tracked by a side's bandit.
type Arm struct {
	Action game.JointAction
	Prior  float64
	Visits int
	// Wins accumulates results from the owning side's point of view.
	Wins float64
}

// Agent is the bandit one side runs at a search node. Both sides choose
// from their own agent without seeing the other's choice.
type Agent struct {
	Arms []Arm
}

// NewAgent builds a bandit over the ranked candidates with softmax priors
// at the given temperature.
func NewAgent(cands []Candidate, temperature float64) *Agent {
	a := &Agent{Arms: make([]Arm, len(cands))}
	if len(cands) == 0 {
		return a
	}

	best := cands[0].Score
	for _, c := range cands[1:] {
		best = max(best, c.Score)
	}
	sum := 0.0
	for i, c := range cands {
		p := math.Exp(temperature * (c.Score - best))
		a.Arms[i] = Arm{Action: c.Action, Prior: p}
		sum += p
	}
	for i := range a.Arms {
		a.Arms[i].Prior /= sum
	}
	return a
}

// Select returns the arm with the highest bound. The bound adds a variance
// aware exploration term, capped at the Bernoulli maximum of 0.25, and a
// prior bonus c*prior/(visits+1). Ties are broken uniformly at random.
func (a *Agent) Select(parentVisits int, c float64, rng *rand.Rand) int {
	logp := math.Log(float64(parentVisits) + 1)

	best, bestScore, ties := 0, math.Inf(-1), 0
	for i := range a.Arms {
		arm := &a.Arms[i]
		n := float64(arm.Visits) + 1
		p := arm.Wins / n
		variance := min(math.Sqrt(2*logp/n)+p*(1-p), 0.25)
		score := p + math.Sqrt(variance*logp/n) + c*arm.Prior/n

		switch {
		case score > bestScore:
			best, bestScore, ties = i, score, 1
		case score == bestScore:
			ties++
			if rng.IntN(ties) == 0 {
				best = i
			}
		}
	}
	return best
}

// MostVisited returns the robust choice: the arm with the most visits,
// earliest arm on ties.
func (a *Agent) MostVisited() int {
	best := 0
	for i := 1; i < len(a.Arms); i++ {
		if a.Arms[i].Visits > a.Arms[best].Visits {
			best = i
		}
	}
	return best
}

func (a *Agent) update(arm int, value float64) {
	a.Arms[arm].Visits++
	a.Arms[arm].Wins += value
}
