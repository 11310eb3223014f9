// visualize.go - Console tracing for self-play games.
package selfplay

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brensch/tank2/executor/mcts"
	"github.com/brensch/tank2/game"
)

// PrintBoard logs the board and, when given, each side's search summary.
func PrintBoard(matchID string, state *game.GameState, decisions []mcts.Decision) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== TRACE %s ===\n", matchID)
	sb.WriteString(game.Render(state))

	for _, d := range decisions {
		fmt.Fprintf(&sb, "side %d -> %s | %d iterations, %d nodes, depth %d\n",
			d.Side, d.Action, d.Stats.Iterations, d.Stats.Nodes, d.Stats.MaxDepth)
		for i, arm := range topArms(d.Arms, 5) {
			mark := " "
			if arm.Action == d.Action {
				mark = "*"
			}
			fmt.Fprintf(&sb, "  %s%d %-26s N=%-5d Q=%.3f P=%.3f\n", mark, i+1, arm.Action, arm.Visits, arm.Value, arm.Prior)
		}
	}
	log.Debug().Msg(sb.String())
}

// topArms returns the n most visited arms, most visited first.
func topArms(arms []mcts.ArmSummary, n int) []mcts.ArmSummary {
	out := make([]mcts.ArmSummary, 0, n)
	for range n {
		best := -1
		for i, a := range arms {
			if contains(out, a.Action) {
				continue
			}
			if best < 0 || a.Visits > arms[best].Visits {
				best = i
			}
		}
		if best < 0 {
			break
		}
		out = append(out, arms[best])
	}
	return out
}

func contains(arms []mcts.ArmSummary, act game.JointAction) bool {
	for _, a := range arms {
		if a.Action == act {
			return true
		}
	}
	return false
}
