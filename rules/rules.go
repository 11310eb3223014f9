package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/brensch/tank2/game"
)

var (
	// ErrInvalidAction is returned by Apply when a queued action is illegal.
	ErrInvalidAction = errors.New("invalid action")
	// ErrNoHistory is returned by Undo on the first turn.
	ErrNoHistory = errors.New("no turn to undo")
)

// ActionIsValid reports whether a unit may perform act this turn.
// Moves need an in-bounds, completely empty destination (water blocks),
// and a unit that fired last turn may not fire again. Destroyed units may
// only stay.
func ActionIsValid(state *game.GameState, side, unit int, act game.Action) bool {
	if act == game.Invalid {
		return false
	}
	u := state.Units[side][unit]
	if !u.Alive {
		return act == game.Stay
	}
	if act.IsShoot() && state.LastActions(side)[unit].IsShoot() {
		return false
	}
	if !act.IsMove() {
		return true
	}
	dst := u.Pos.Step(act.Direction())
	return dst.InBounds() && state.At(dst).IsEmpty()
}

// PendingIsValid checks every living unit's queued action.
func PendingIsValid(state *game.GameState) error {
	for side := 0; side < game.Sides; side++ {
		for unit := 0; unit < game.UnitsPerSide; unit++ {
			if !state.Units[side][unit].Alive {
				continue
			}
			act := state.Pending[side][unit]
			if !ActionIsValid(state, side, unit, act) {
				return fmt.Errorf("%w: side %d unit %d %s", ErrInvalidAction, side, unit, act)
			}
		}
	}
	return nil
}

// Step queues both sides' joint actions and applies the turn.
func Step(state *game.GameState, side0, side1 game.JointAction) error {
	state.Pending[0] = side0
	state.Pending[1] = side1
	return Apply(state)
}

// Apply resolves the queued actions for all four units and advances the turn.
//
// Legality is checked for every unit before anything changes, so a failed
// Apply leaves the state untouched. Movement resolves first, then all shots
// are traced on the post-move board and their hits are removed together.
func Apply(state *game.GameState) error {
	if err := PendingIsValid(state); err != nil {
		return err
	}

	turn := state.Turn
	cs := game.ChangeSet{Turn: turn, Actions: state.Pending}

	// 1. Movement
	for side := 0; side < game.Sides; side++ {
		for unit := 0; unit < game.UnitsPerSide; unit++ {
			u := &state.Units[side][unit]
			act := state.Pending[side][unit]
			if !u.Alive || !act.IsMove() {
				continue
			}
			item := game.UnitItem(side, unit)
			cs.Changes = append(cs.Changes, game.Change{Turn: turn, Pos: u.Pos, Item: item})

			from := u.Pos
			u.Pos = from.Step(act.Direction())
			state.Grid[u.Pos.Y][u.Pos.X] |= item
			state.Grid[from.Y][from.X] &^= item
		}
	}

	// 2. Shooting
	hits := make(map[game.Change]struct{}, 4)
	for side := 0; side < game.Sides; side++ {
		for unit := 0; unit < game.UnitsPerSide; unit++ {
			u := state.Units[side][unit]
			act := state.Pending[side][unit]
			if !u.Alive || !act.IsShoot() {
				continue
			}
			traceShot(state, u, act, turn, hits)
		}
	}

	destroyed := make([]game.Change, 0, len(hits))
	for h := range hits {
		destroyed = append(destroyed, h)
	}
	sort.Slice(destroyed, func(i, j int) bool {
		a, b := destroyed[i], destroyed[j]
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		if a.Pos.Y != b.Pos.Y {
			return a.Pos.Y < b.Pos.Y
		}
		return a.Item < b.Item
	})

	for _, d := range destroyed {
		switch {
		case d.Item == game.Steel:
			continue
		case d.Item == game.BaseItem:
			state.Bases[baseOwner(d.Pos)].Alive = false
		case d.Item.HasUnits():
			ref := d.Item.Units()[0]
			u := &state.Units[ref.Side][ref.ID]
			u.Alive = false
			u.Pos = game.Nowhere
		}
		state.Grid[d.Pos.Y][d.Pos.X] &^= d.Item
		cs.Changes = append(cs.Changes, d)
	}

	state.History = append(state.History, cs)
	state.Pending = [game.Sides]game.JointAction{{game.Invalid, game.Invalid}, {game.Invalid, game.Invalid}}
	state.Turn++
	return nil
}

// traceShot follows a shell from the shooter's cell and marks what it hits.
func traceShot(state *game.GameState, shooter game.Unit, act game.Action, turn int, hits map[game.Change]struct{}) {
	dir := act.Direction()
	crowded := state.At(shooter.Pos).HasMultipleUnits()

	for p := shooter.Pos.Step(dir); p.InBounds(); p = p.Step(dir) {
		items := state.At(p)
		if !items.StopsShot() {
			continue
		}

		// Two lone units shooting straight at each other cancel out.
		if items.HasUnits() && !crowded && !items.HasMultipleUnits() {
			target := items.Units()[0]
			theirs := state.Pending[target.Side][target.ID]
			if target.Side != shooter.Side && theirs.IsShoot() && act.Opposes(theirs) {
				return
			}
		}

		for _, item := range items.Items() {
			hits[game.Change{Turn: turn, Pos: p, Item: item}] = struct{}{}
		}
		return
	}
}

func baseOwner(p game.Point) int {
	if p == game.BasePos[0] {
		return 0
	}
	return 1
}

// Undo reverts the most recent turn exactly.
func Undo(state *game.GameState) error {
	if state.Turn == 1 || len(state.History) == 0 {
		return ErrNoHistory
	}

	state.Turn--
	cs := state.History[len(state.History)-1]
	state.History = state.History[:len(state.History)-1]

	for i := len(cs.Changes) - 1; i >= 0; i-- {
		c := cs.Changes[i]
		switch {
		case c.Item == game.BaseItem:
			state.Bases[baseOwner(c.Pos)].Alive = true
			state.Grid[c.Pos.Y][c.Pos.X] |= game.BaseItem
		case c.Item.HasUnits():
			ref := c.Item.Units()[0]
			u := &state.Units[ref.Side][ref.ID]
			if u.Alive {
				state.Grid[u.Pos.Y][u.Pos.X] &^= c.Item
			} else {
				u.Alive = true
			}
			u.Pos = c.Pos
			state.Grid[c.Pos.Y][c.Pos.X] |= c.Item
		default:
			state.Grid[c.Pos.Y][c.Pos.X] |= c.Item
		}
	}
	state.Pending = cs.Actions
	return nil
}

// Outcome classifies the position. A side fails when its base is gone or
// both its units are destroyed.
func Outcome(state *game.GameState) game.Outcome {
	var fail [game.Sides]bool
	for side := 0; side < game.Sides; side++ {
		fail[side] = !state.Bases[side].Alive || state.AliveUnits(side) == 0
	}
	if fail[0] == fail[1] {
		if fail[0] || state.Turn > game.MaxTurn {
			return game.Draw
		}
		return game.Unfinished
	}
	if fail[0] {
		return game.Side1Wins
	}
	return game.Side0Wins
}

// IsTerminal reports whether the game is over.
func IsTerminal(state *game.GameState) bool {
	return Outcome(state) != game.Unfinished
}
