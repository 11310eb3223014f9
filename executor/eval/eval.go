// Package eval scores tank positions without search.
//
// Two heuristics live here. PathCost is a plain shortest path from each
// unit to the enemy base. Evaluator runs a distance transform outward from
// the enemy base's firing lines, which also accounts for bricks shielding
// the base, and turns the difference between the two sides into a win
// probability.
package eval

import (
	"math"

	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/rules"
)

// Weights tunes the position evaluator.
type Weights struct {
	// RearUnit scales the distance of the side's farther unit.
	RearUnit float64 `yaml:"rear_unit"`
	// Shield scales the bricks protecting the enemy base.
	Shield float64 `yaml:"shield"`
	// BrickGrowth multiplies the breaching cost of each further brick on a
	// firing line.
	BrickGrowth float64 `yaml:"brick_growth"`
	// BrickCost is the cost of the first brick on a firing line.
	BrickCost float64 `yaml:"brick_cost"`
	// CloseRace is the relative offense gap below which a race counts as close.
	CloseRace float64 `yaml:"close_race"`
	// AliveClose and AliveFar weigh the living unit difference in close and
	// lopsided races.
	AliveClose float64 `yaml:"alive_close"`
	AliveFar   float64 `yaml:"alive_far"`
}

func DefaultWeights() Weights {
	return Weights{
		RearUnit:    0.8,
		Shield:      0.3,
		BrickGrowth: 1.1,
		BrickCost:   2,
		CloseRace:   0.2,
		AliveClose:  5,
		AliveFar:    20,
	}
}

// Evaluator is the position evaluator used at rollout cutoffs and for
// ranking candidate actions. It holds no state beyond its weights and is
// safe for concurrent use.
type Evaluator struct {
	W Weights
}

func NewEvaluator(w Weights) *Evaluator {
	return &Evaluator{W: w}
}

// Field is a distance transform over the board.
type Field [game.Height][game.Width]float64

// DistanceField measures, for every cell, how costly it is for side to get a
// unit from there onto a firing line of the enemy base.
//
// Firing-line cells are seeded with 1 plus the cost of breaching the bricks
// between them and the base. Stepping onto a neighbour costs 1, plus 1 for a
// brick at or ahead of the side's rear unit and 2 for a brick behind it.
// Steel, water and bases are never entered; cells holding units get a value
// but do not propagate.
func (e *Evaluator) DistanceField(s *game.GameState, side int) Field {
	var dist Field
	for y := range dist {
		for x := range dist[y] {
			dist[y][x] = Unreachable
		}
	}

	target := game.BasePos[game.Opponent(side)]
	dist[target.Y][target.X] = 0

	var q cellQueue
	for dir := 0; dir < 4; dir++ {
		seed, growth := 1.0, 1.0
		for p := target.Step(dir); p.InBounds(); p = p.Step(dir) {
			c := s.At(p)
			if c.Has(game.Steel) || c.Has(game.BaseItem) || c.HasUnits() {
				break
			}
			if c.Has(game.Water) {
				continue
			}
			dist[p.Y][p.X] = min(dist[p.Y][p.X], seed)
			q.push(p)
			if c.Has(game.Brick) {
				growth *= e.W.BrickGrowth
				seed += growth * e.W.BrickCost
			}
		}
	}

	rear := rearRow(s, side)
	for !q.empty() {
		p := q.pop()
		for dir := 0; dir < 4; dir++ {
			n := p.Step(dir)
			if !n.InBounds() {
				continue
			}
			c := s.At(n)
			if c.Has(game.Steel) || c.Has(game.Water) || c.Has(game.BaseItem) {
				continue
			}
			step := 1.0
			if c.Has(game.Brick) {
				if aheadOfRear(side, n.Y, rear) {
					step += 1
				} else {
					step += 2
				}
			}
			if d := dist[p.Y][p.X] + step; d < dist[n.Y][n.X] {
				dist[n.Y][n.X] = d
				if !c.HasUnits() {
					q.push(n)
				}
			}
		}
	}
	return dist
}

// rearRow is the row of the side's unit furthest from the enemy base.
func rearRow(s *game.GameState, side int) int {
	rear := -1
	for _, u := range s.Units[side] {
		if !u.Alive {
			continue
		}
		if rear < 0 || (side == 0 && u.Pos.Y < rear) || (side == 1 && u.Pos.Y > rear) {
			rear = u.Pos.Y
		}
	}
	if rear < 0 {
		return game.BasePos[side].Y
	}
	return rear
}

func aheadOfRear(side, y, rear int) bool {
	if side == 0 {
		return y >= rear
	}
	return y <= rear
}

// Offense is how far side is from destroying the enemy base. Lower is better.
func (e *Evaluator) Offense(s *game.GameState, side int) float64 {
	field := e.DistanceField(s, side)
	var d [game.UnitsPerSide]float64
	for id, u := range s.Units[side] {
		d[id] = Unreachable
		if u.Alive {
			d[id] = field[u.Pos.Y][u.Pos.X]
		}
	}
	near, far := min(d[0], d[1]), max(d[0], d[1])
	return near + e.W.RearUnit*far + e.W.Shield*float64(Shield(s, game.Opponent(side)))
}

// Shield counts the bricks protecting a base from the front. The base's own
// column counts the unbroken bricks ahead of it; each further column
// outward counts at most as many as the columns between it and the base.
func Shield(s *game.GameState, side int) int {
	base := game.BasePos[side]
	front := 2 // down
	if side == 1 {
		front = 0 // up
	}

	depth := func(x, from int) int {
		n := 0
		p := game.Point{X: x, Y: base.Y + from*game.DY[front]}
		for ; p.InBounds() && s.At(p) == game.Brick; p = p.Step(front) {
			n++
		}
		return n
	}

	total := depth(base.X, 1)
	left, right := total, total
	for k := 1; base.X-k >= 0 || base.X+k < game.Width; k++ {
		if x := base.X - k; x >= 0 {
			left = min(left, depth(x, 0))
		} else {
			left = 0
		}
		if x := base.X + k; x < game.Width {
			right = min(right, depth(x, 0))
		} else {
			right = 0
		}
		total += left + right
	}
	return total
}

// Score is me's advantage: the opponent's offense minus mine, plus a bonus
// for each extra living unit that grows when the race is lopsided.
func (e *Evaluator) Score(s *game.GameState, me int) float64 {
	them := game.Opponent(me)
	mine, theirs := e.Offense(s, me), e.Offense(s, them)

	w := e.W.AliveFar
	if closeRace(mine, theirs, e.W.CloseRace) {
		w = e.W.AliveClose
	}
	return theirs - mine + w*float64(s.AliveUnits(me)-s.AliveUnits(them))
}

func closeRace(a, b, threshold float64) bool {
	hi, lo := max(a, b), min(a, b)
	if hi <= 0 {
		return true
	}
	return (hi-lo)/hi < threshold
}

// WinProbability maps a position to me's chance of winning. Finished games
// report their exact value.
func (e *Evaluator) WinProbability(s *game.GameState, me int) float64 {
	if out := rules.Outcome(s); out != game.Unfinished {
		return out.Value(me)
	}
	return Logistic(e.Score(s, me))
}

func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
