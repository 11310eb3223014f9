// Package mcts chooses a side's joint action with Monte Carlo tree search.
//
// The game is simultaneous, so each node carries two independent bandits,
// one per side. A descent picks an arm from each, and the pair indexes the
// child. Every iteration expands at most one node and scores it with one
// short rollout.
package mcts

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brensch/tank2/executor/eval"
	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/rules"
)

var (
	// ErrTerminal is returned when searching a finished game.
	ErrTerminal = errors.New("game is already over")
	ErrNilState = errors.New("nil state")
)

// Config holds the search hyperparameters.
type Config struct {
	// Deadline bounds the wall clock time of one Search.
	Deadline      time.Duration `yaml:"deadline"`
	MaxIterations int           `yaml:"max_iterations"`
	// RankCap limits the arms of each node's bandits.
	RankCap int `yaml:"rank_cap"`
	// RolloutCap limits the candidates a rollout samples from.
	RolloutCap int `yaml:"rollout_cap"`
	// RolloutTurns is the number of turns played before a rollout is cut
	// off and handed to the evaluator.
	RolloutTurns int `yaml:"rollout_turns"`
	// Exploration is the prior bonus constant.
	Exploration float64 `yaml:"exploration"`
	// Temperature sharpens or flattens the softmax over candidate scores.
	Temperature float64 `yaml:"temperature"`
	// MaxDepth bounds the descent stack.
	MaxDepth int `yaml:"max_depth"`
	// PriorRanking scores the arms of new nodes.
	PriorRanking Ranking `yaml:"prior_ranking"`
}

func DefaultConfig() Config {
	return Config{
		Deadline:      900 * time.Millisecond,
		MaxIterations: 100000,
		RankCap:       81,
		RolloutCap:    81,
		RolloutTurns:  5,
		Exploration:   5,
		Temperature:   0.05,
		MaxDepth:      110,
		PriorRanking:  RankPosition,
	}
}

// ArmSummary reports what the search learned about one root arm.
type ArmSummary struct {
	Action game.JointAction
	Prior  float64
	Visits int
	// Value is the mean result for the searching side.
	Value float64
}

// Decision is the result of a Search.
type Decision struct {
	Side   int
	Action game.JointAction
	// Arms lists the searching side's root arms in enumeration order.
	Arms  []ArmSummary
	Chose int
	Stats Stats
}

// Engine runs searches for one player. It is not safe for concurrent use.
type Engine struct {
	cfg    Config
	eval   *eval.Evaluator
	priors *Ranker
	sim    *Simulator
	rng    *rand.Rand

	stats statsCollector
}

// NewEngine builds an engine. The rng drives tie breaking and rollouts;
// seeding it makes iteration-capped searches reproducible.
func NewEngine(cfg Config, ev *eval.Evaluator, rng *rand.Rand) *Engine {
	return &Engine{
		cfg:    cfg,
		eval:   ev,
		priors: NewRanker(cfg.PriorRanking, ev),
		sim: &Simulator{
			Policy: &RolloutPolicy{Ranker: NewRanker(RankUniform, ev), Cap: cfg.RolloutCap},
			Eval:   ev,
			Turns:  cfg.RolloutTurns,
		},
		rng: rng,
	}
}

func (e *Engine) Config() Config { return e.cfg }

type pathStep struct {
	node       int
	arm0, arm1 int
}

// Search picks a joint action for s.MySide. It stops at the configured
// deadline, the iteration cap or when ctx is done, always finishing the
// iteration in progress. s is not modified.
func (e *Engine) Search(ctx context.Context, s *game.GameState) (Decision, error) {
	if s == nil {
		return Decision{}, ErrNilState
	}
	if rules.IsTerminal(s) {
		return Decision{}, fmt.Errorf("search turn %d: %w", s.Turn, ErrTerminal)
	}

	e.stats.Start()
	deadline := e.stats.stats.StartTime.Add(e.cfg.Deadline)
	side := s.MySide

	t := newTree(1024)
	root := t.add(e.newNode(s.Clone(), side))
	path := make([]pathStep, 0, e.cfg.MaxDepth)

	for e.stats.stats.Iterations < e.cfg.MaxIterations {
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}
		path = path[:0]
		value := e.iterate(t, root, side, &path)
		e.backpropagate(t, path, side, value)
		e.stats.AddIteration(len(path))
	}

	rootNode := t.at(root)
	agent := rootNode.Agents[side]
	chose := agent.MostVisited()
	d := Decision{
		Side:   side,
		Action: agent.Arms[chose].Action,
		Arms:   make([]ArmSummary, len(agent.Arms)),
		Chose:  chose,
		Stats:  e.stats.Complete(len(t.nodes)),
	}
	for i, arm := range agent.Arms {
		d.Arms[i] = ArmSummary{Action: arm.Action, Prior: arm.Prior, Visits: arm.Visits}
		if arm.Visits > 0 {
			d.Arms[i].Value = arm.Wins / float64(arm.Visits)
		}
	}

	log.Debug().
		Int("turn", s.Turn).
		Int("side", side).
		Str("action", d.Action.String()).
		Int("iterations", d.Stats.Iterations).
		Int("nodes", d.Stats.Nodes).
		Int("depth", d.Stats.MaxDepth).
		Dur("took", d.Stats.Duration).
		Float64("ips", d.Stats.IterationsPerSecond()).
		Msg("search complete")
	return d, nil
}

// iterate descends from the root, expands at most one node and returns the
// leaf value for the searching side. The visited (node, arm, arm) triples
// are left in path.
func (e *Engine) iterate(t *tree, root, side int, path *[]pathStep) float64 {
	idx := root
	for {
		n := t.at(idx)
		if n.Terminal {
			n.Visits++
			n.Wins += n.Value
			e.stats.AddTerminalHit()
			return n.Value
		}
		if len(*path) >= e.cfg.MaxDepth {
			return e.eval.WinProbability(n.State, side)
		}

		arm0 := n.Agents[0].Select(n.Visits, e.cfg.Exploration, e.rng)
		arm1 := n.Agents[1].Select(n.Visits, e.cfg.Exploration, e.rng)
		*path = append(*path, pathStep{node: idx, arm0: arm0, arm1: arm1})

		key := n.childKey(arm0, arm1)
		if child, ok := n.Children[key]; ok {
			idx = child
			continue
		}

		next := n.State.Clone()
		a0, a1 := n.Agents[0].Arms[arm0].Action, n.Agents[1].Arms[arm1].Action
		if err := rules.Step(next, a0, a1); err != nil {
			panic(fmt.Sprintf("search: turn %d %s/%s rejected: %v\n%s", n.State.Turn, a0, a1, err, game.Render(n.State)))
		}

		child := e.newNode(next, side)
		value := child.Value
		if !child.Terminal {
			var finished bool
			value, finished = e.sim.Run(next, side, e.rng)
			e.stats.AddExpansion(finished)
		} else {
			// No rollout was played.
			e.stats.AddExpansion(false)
		}
		child.Visits, child.Wins = 1, value

		childIdx := t.add(child)
		// add may have moved the arena.
		t.at(idx).Children[key] = childIdx
		return value
	}
}

func (e *Engine) newNode(s *game.GameState, side int) Node {
	if out := rules.Outcome(s); out != game.Unfinished {
		return Node{State: s, Terminal: true, Value: out.Value(side)}
	}
	n := Node{State: s, Children: make(map[int]int)}
	for p := 0; p < game.Sides; p++ {
		n.Agents[p] = NewAgent(e.priors.Rank(s, p, e.cfg.RankCap), e.cfg.Temperature)
	}
	return n
}

func (e *Engine) backpropagate(t *tree, path []pathStep, side int, value float64) {
	for _, st := range path {
		n := t.at(st.node)
		n.Visits++
		n.Wins += value
		for p, arm := range [game.Sides]int{st.arm0, st.arm1} {
			v := value
			if p != side {
				v = 1 - value
			}
			n.Agents[p].update(arm, v)
		}
	}
}
