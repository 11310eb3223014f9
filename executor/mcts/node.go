package mcts

import (
	"github.com/brensch/tank2/game"
)

// Node is a position in the search tree. Nodes live in a tree's arena and
// refer to their children by index.
type Node struct {
	// State is owned by the node; nothing else mutates it.
	State *game.GameState

	Terminal bool
	// Value is the fixed result of a terminal node for the searching side.
	Value float64

	// Agents holds one bandit per side, nil for terminal nodes.
	Agents [game.Sides]*Agent
	// Children maps arm0*len(Agents[1].Arms)+arm1 to an arena index.
	Children map[int]int

	Visits int
	Wins   float64
}

func (n *Node) childKey(arm0, arm1 int) int {
	return arm0*len(n.Agents[1].Arms) + arm1
}

// tree is the arena for a single search. It is dropped as a whole once a
// decision has been made.
type tree struct {
	nodes []Node
}

func newTree(capacity int) *tree {
	return &tree{nodes: make([]Node, 0, capacity)}
}

func (t *tree) add(n Node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *tree) at(i int) *Node { return &t.nodes[i] }
