package mcts

import "time"

// Stats describes one Search call.
type Stats struct {
	StartTime time.Time
	Duration  time.Duration
	// Iterations counts completed descents.
	Iterations int
	// Expansions counts nodes added below the root.
	Expansions int
	// FullPlayouts counts rollouts that reached the end of the game.
	FullPlayouts int
	// TerminalHits counts descents that stopped on a known terminal node.
	TerminalHits int
	MaxDepth     int
	Nodes        int
}

// IterationsPerSecond is the search throughput.
func (s Stats) IterationsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Iterations) / s.Duration.Seconds()
}

type statsCollector struct {
	stats Stats
}

func (c *statsCollector) Start() {
	c.stats = Stats{StartTime: time.Now()}
}

func (c *statsCollector) AddIteration(depth int) {
	c.stats.Iterations++
	c.stats.MaxDepth = max(c.stats.MaxDepth, depth)
}

func (c *statsCollector) AddExpansion(fullPlayout bool) {
	c.stats.Expansions++
	if fullPlayout {
		c.stats.FullPlayouts++
	}
}

func (c *statsCollector) AddTerminalHit() { c.stats.TerminalHits++ }

func (c *statsCollector) Complete(nodes int) Stats {
	c.stats.Duration = time.Since(c.stats.StartTime)
	c.stats.Nodes = nodes
	return c.stats
}
