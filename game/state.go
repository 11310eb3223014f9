// Package game defines the core state types for the tank duel.
//
// The board is 9x9 with the origin at the top-left, X growing right and Y
// growing down. Each side owns two units and a base. GameState is cheap to
// clone so every search node can own its board outright.
package game

import "fmt"

const (
	Width        = 9
	Height       = 9
	Sides        = 2
	UnitsPerSide = 2
	MaxTurn      = 100
)

// Point is a board coordinate. Destroyed units sit at Nowhere.
type Point struct {
	X int
	Y int
}

var Nowhere = Point{X: -1, Y: -1}

func (p Point) InBounds() bool {
	return p.X >= 0 && p.X < Width && p.Y >= 0 && p.Y < Height
}

// Step returns the neighbouring point in direction dir (0..3).
func (p Point) Step(dir int) Point {
	return Point{X: p.X + DX[dir], Y: p.Y + DY[dir]}
}

var (
	BasePos  = [Sides]Point{{X: Width / 2, Y: 0}, {X: Width / 2, Y: Height - 1}}
	StartPos = [Sides][UnitsPerSide]Point{
		{{X: Width/2 - 2, Y: 0}, {X: Width/2 + 2, Y: 0}},
		{{X: Width/2 + 2, Y: Height - 1}, {X: Width/2 - 2, Y: Height - 1}},
	}
)

type Unit struct {
	Side  int
	ID    int
	Pos   Point
	Alive bool
}

type Base struct {
	Side  int
	Pos   Point
	Alive bool
}

// Change records one item removed from the board during a turn.
// Replaying a turn's changes backwards restores the board.
type Change struct {
	Turn int
	Pos  Point
	Item Cell
}

// ChangeSet is everything needed to undo a single turn.
type ChangeSet struct {
	Turn    int
	Actions [Sides]JointAction
	Changes []Change
}

// GameState is the complete simulator state.
// MySide selects the perspective used by evaluators and search.
type GameState struct {
	Grid    [Height][Width]Cell
	Units   [Sides][UnitsPerSide]Unit
	Bases   [Sides]Base
	Turn    int
	MySide  int
	History []ChangeSet
	Pending [Sides]JointAction
}

// NewGameState builds the opening position from the compact terrain encoding.
// Each of the three words per layer holds three rows of nine bits, bit
// (y-3i)*9+x for word i. Brick wins over water, water over steel.
func NewGameState(brick, water, steel [3]uint32, mySide int) (*GameState, error) {
	if mySide < 0 || mySide >= Sides {
		return nil, fmt.Errorf("invalid side %d", mySide)
	}

	s := &GameState{Turn: 1, MySide: mySide}
	for i := 0; i < 3; i++ {
		var mask uint32 = 1
		for y := i * 3; y < (i+1)*3; y++ {
			for x := 0; x < Width; x++ {
				switch {
				case brick[i]&mask != 0:
					s.Grid[y][x] = Brick
				case water[i]&mask != 0:
					s.Grid[y][x] = Water
				case steel[i]&mask != 0:
					s.Grid[y][x] = Steel
				}
				mask <<= 1
			}
		}
	}

	for side := 0; side < Sides; side++ {
		for id := 0; id < UnitsPerSide; id++ {
			p := StartPos[side][id]
			s.Units[side][id] = Unit{Side: side, ID: id, Pos: p, Alive: true}
			s.Grid[p.Y][p.X] = UnitItem(side, id)
		}
		p := BasePos[side]
		s.Bases[side] = Base{Side: side, Pos: p, Alive: true}
		s.Grid[p.Y][p.X] = BaseItem
	}
	s.Pending = [Sides]JointAction{{Invalid, Invalid}, {Invalid, Invalid}}
	return s, nil
}

// Terrain encodes the static layers of the board in the constructor's format.
// Units and bases are not part of the encoding.
func Terrain(s *GameState) (brick, water, steel [3]uint32) {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			word, bit := y/3, uint((y%3)*Width+x)
			c := s.Grid[y][x]
			if c.Has(Brick) {
				brick[word] |= 1 << bit
			}
			if c.Has(Water) {
				water[word] |= 1 << bit
			}
			if c.Has(Steel) {
				steel[word] |= 1 << bit
			}
		}
	}
	return brick, water, steel
}

func (s *GameState) At(p Point) Cell { return s.Grid[p.Y][p.X] }

// Opponent returns the side facing side.
func Opponent(side int) int { return 1 - side }

// AliveUnits counts the living units of a side.
func (s *GameState) AliveUnits(side int) int {
	n := 0
	for id := 0; id < UnitsPerSide; id++ {
		if s.Units[side][id].Alive {
			n++
		}
	}
	return n
}

// LastActions returns what a side did on the previous turn, Idle on turn 1.
func (s *GameState) LastActions(side int) JointAction {
	if n := len(s.History); n > 0 && s.History[n-1].Turn == s.Turn-1 {
		return s.History[n-1].Actions[side]
	}
	return Idle
}

// Clone copies the game state. A recorded turn's change list is never
// modified afterwards, so the clones share those slices.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	if len(s.History) > 0 {
		out.History = make([]ChangeSet, len(s.History), len(s.History)+8)
		copy(out.History, s.History)
	}
	return &out
}

// Equal compares the observable position: grid, units, bases and turn.
func (s *GameState) Equal(o *GameState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Grid == o.Grid && s.Units == o.Units && s.Bases == o.Bases && s.Turn == o.Turn
}
