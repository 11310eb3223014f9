package eval

import "github.com/brensch/tank2/game"

// Unreachable is the distance reported for dead units and for targets no
// path can reach.
const Unreachable = 100

type cellQueue struct {
	items  []game.Point
	queued [game.Height][game.Width]bool
}

func (q *cellQueue) push(p game.Point) {
	if q.queued[p.Y][p.X] {
		return
	}
	q.queued[p.Y][p.X] = true
	q.items = append(q.items, p)
}

func (q *cellQueue) pop() game.Point {
	p := q.items[0]
	q.items = q.items[1:]
	q.queued[p.Y][p.X] = false
	return p
}

func (q *cellQueue) empty() bool { return len(q.items) == 0 }

// PathCost estimates how many turns a unit needs to bring the enemy base
// under fire. Walking costs 1 per empty cell and 2 per brick (one shot plus
// one step); steel, water, other units and the own base are impassable.
// The cheapest cell on one of the base's firing lines is taken, charged 2
// for each brick left between it and the base, and half the Manhattan
// distance to the base is added on top.
func PathCost(s *game.GameState, side, unit int) int {
	u := s.Units[side][unit]
	if !u.Alive {
		return Unreachable
	}

	const inf = 1 << 20
	var cost [game.Height][game.Width]int
	for y := range cost {
		for x := range cost[y] {
			cost[y][x] = inf
		}
	}
	cost[u.Pos.Y][u.Pos.X] = 0

	own := game.BasePos[side]
	var q cellQueue
	q.push(u.Pos)
	for !q.empty() {
		p := q.pop()
		for dir := 0; dir < 4; dir++ {
			n := p.Step(dir)
			if !n.InBounds() || n == own {
				continue
			}
			c := s.At(n)
			if c.Has(game.Steel) || c.Has(game.Water) || c.HasUnits() {
				continue
			}
			step := 1
			if c.Has(game.Brick) {
				step = 2
			}
			if cost[p.Y][p.X]+step < cost[n.Y][n.X] {
				cost[n.Y][n.X] = cost[p.Y][p.X] + step
				q.push(n)
			}
		}
	}

	target := game.BasePos[game.Opponent(side)]
	best := cost[target.Y][target.X]
	for dir := 0; dir < 4; dir++ {
		tunnel := 0
		for p := target.Step(dir); p.InBounds(); p = p.Step(dir) {
			c := s.At(p)
			if c.Has(game.Steel) {
				break
			}
			if c.Has(game.Brick) {
				tunnel += 2
			}
			best = min(best, cost[p.Y][p.X]+tunnel)
		}
	}
	if best >= inf {
		return Unreachable
	}
	return min(best+manhattan(u.Pos, target)/2, Unreachable)
}

// DistanceScore rates a side by how close its two units are to the enemy
// base: 20 - (nearest + 0.5 * farthest).
func DistanceScore(s *game.GameState, side int) float64 {
	d0, d1 := PathCost(s, side, 0), PathCost(s, side, 1)
	if d0 > d1 {
		d0, d1 = d1, d0
	}
	return 20 - (float64(d0) + 0.5*float64(d1))
}

func manhattan(a, b game.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
