package rules

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/brensch/tank2/game"
	"github.com/stretchr/testify/require"
)

var openTerrain = []string{
	".........",
	".........",
	".........",
	".........",
	".........",
	".........",
	".........",
	".........",
	".........",
}

var mixedTerrain = []string{
	"...#.#...",
	".#.###.#.",
	".#..%..#.",
	"W..#.#..W",
	"..%...%..",
	"W..#.#..W",
	".#..%..#.",
	".#.###.#.",
	"...#.#...",
}

func newState(t *testing.T, rows []string) *game.GameState {
	t.Helper()
	s, err := game.FromRows(rows, 0)
	require.NoError(t, err)
	return s
}

// place teleports a unit; only for setting up positions before turn 1.
func place(s *game.GameState, side, id int, p game.Point) {
	u := &s.Units[side][id]
	item := game.UnitItem(side, id)
	s.Grid[u.Pos.Y][u.Pos.X] &^= item
	u.Pos = p
	s.Grid[p.Y][p.X] |= item
}

func logStep(t *testing.T, name string, before *game.GameState, a0, a1 game.JointAction, after *game.GameState) {
	t.Helper()
	t.Logf("=== %s ===\nBefore:\n%sSide0: %s Side1: %s\nAfter:\n%s", name, game.Render(before), a0, a1, game.Render(after))
}

func step(t *testing.T, name string, s *game.GameState, a0, a1 game.JointAction) {
	t.Helper()
	before := s.Clone()
	require.NoError(t, Step(s, a0, a1))
	logStep(t, name, before, a0, a1, s)
}

func TestActionIsValid_Moves(t *testing.T) {
	s := newState(t, mixedTerrain)

	// side 0 unit 0 starts at (2,0): up is off the board, (1,0) and (3,0)
	// are empty and brick respectively, (2,1) is empty.
	require.False(t, ActionIsValid(s, 0, 0, game.Up))
	require.True(t, ActionIsValid(s, 0, 0, game.Left))
	require.False(t, ActionIsValid(s, 0, 0, game.Right))
	require.True(t, ActionIsValid(s, 0, 0, game.Down))
	require.True(t, ActionIsValid(s, 0, 0, game.Stay))
	require.False(t, ActionIsValid(s, 0, 0, game.Invalid))

	place(s, 0, 0, game.Point{X: 1, Y: 3})
	require.False(t, ActionIsValid(s, 0, 0, game.Left), "water blocks movement")
}

func TestActionIsValid_NoConsecutiveShots(t *testing.T) {
	s := newState(t, openTerrain)
	step(t, "side 0 unit 0 fires", s, game.JointAction{game.UpShoot, game.Stay}, game.Idle)

	for _, act := range []game.Action{game.UpShoot, game.RightShoot, game.DownShoot, game.LeftShoot} {
		require.False(t, ActionIsValid(s, 0, 0, act), "second shot %s must be rejected", act)
		require.True(t, ActionIsValid(s, 0, 1, act), "the other unit did not fire")
	}
	require.True(t, ActionIsValid(s, 0, 0, game.Stay))
	require.True(t, ActionIsValid(s, 0, 0, game.Down))
	require.True(t, ActionIsValid(s, 0, 0, game.Left))

	step(t, "cool down", s, game.JointAction{game.Stay, game.Stay}, game.Idle)
	require.True(t, ActionIsValid(s, 0, 0, game.DownShoot))
}

func TestApply_InvalidLeavesStateUntouched(t *testing.T) {
	s := newState(t, mixedTerrain)
	before := s.Clone()

	err := Step(s, game.JointAction{game.Up, game.Stay}, game.Idle)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidAction))
	require.True(t, before.Equal(s))
	require.Empty(t, s.History)
}

func TestApply_MutualShotsCancel(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 0, 0, game.Point{X: 4, Y: 4})
	place(s, 1, 0, game.Point{X: 4, Y: 5})

	step(t, "face off", s, game.JointAction{game.DownShoot, game.Stay}, game.JointAction{game.UpShoot, game.Stay})

	require.True(t, s.Units[0][0].Alive)
	require.True(t, s.Units[1][0].Alive)
	require.Equal(t, game.Unfinished, Outcome(s))
}

func TestApply_NonOpposingShotDestroys(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 0, 0, game.Point{X: 4, Y: 4})
	place(s, 1, 0, game.Point{X: 4, Y: 5})

	step(t, "one looks away", s, game.JointAction{game.DownShoot, game.Stay}, game.JointAction{game.LeftShoot, game.Stay})

	require.True(t, s.Units[0][0].Alive)
	require.False(t, s.Units[1][0].Alive)
	require.Equal(t, game.Nowhere, s.Units[1][0].Pos)
	require.False(t, s.Grid[5][4].HasUnits())
}

func TestApply_CrowdedShooterIsNotCancelled(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 0, 0, game.Point{X: 4, Y: 4})
	place(s, 0, 1, game.Point{X: 4, Y: 4})
	place(s, 1, 0, game.Point{X: 4, Y: 5})

	step(t, "two on one", s, game.JointAction{game.DownShoot, game.Stay}, game.JointAction{game.UpShoot, game.Stay})

	require.False(t, s.Units[0][0].Alive)
	require.False(t, s.Units[0][1].Alive)
	require.False(t, s.Units[1][0].Alive)
	require.Equal(t, game.Side1Wins, Outcome(s), "side 0 lost both units, side 1 still has one")
}

func TestApply_BaseDestruction(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 1, 0, game.Point{X: 4, Y: 2})

	step(t, "shoot the base", s, game.Idle, game.JointAction{game.UpShoot, game.Stay})

	require.False(t, s.Bases[0].Alive)
	require.True(t, s.Bases[1].Alive)
	require.False(t, s.Grid[0][4].Has(game.BaseItem))
	require.Equal(t, game.Side1Wins, Outcome(s))
	require.Equal(t, 0.0, Outcome(s).Value(0))
	require.Equal(t, 1.0, Outcome(s).Value(1))
}

func TestApply_BothBasesFallIsDraw(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 0, 0, game.Point{X: 4, Y: 7})
	place(s, 1, 0, game.Point{X: 4, Y: 1})

	step(t, "trade bases", s, game.JointAction{game.DownShoot, game.Stay}, game.JointAction{game.UpShoot, game.Stay})

	require.False(t, s.Bases[0].Alive)
	require.False(t, s.Bases[1].Alive)
	require.Equal(t, game.Draw, Outcome(s))
	require.Equal(t, 0.5, Outcome(s).Value(0))
}

func TestOutcome_TurnLimit(t *testing.T) {
	s := newState(t, openTerrain)

	s.Turn = game.MaxTurn
	require.Equal(t, game.Unfinished, Outcome(s))
	s.Turn = game.MaxTurn + 1
	require.Equal(t, game.Draw, Outcome(s))

	// A winner decided on the last turn is still a winner.
	s.Bases[1].Alive = false
	require.Equal(t, game.Side0Wins, Outcome(s))
}

func TestApply_TwoRaysOneTarget(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 1, 0, game.Point{X: 4, Y: 4})
	place(s, 0, 0, game.Point{X: 2, Y: 4})
	place(s, 0, 1, game.Point{X: 6, Y: 4})

	step(t, "crossfire", s, game.JointAction{game.RightShoot, game.LeftShoot}, game.Idle)

	require.False(t, s.Units[1][0].Alive)
	last := s.History[len(s.History)-1]
	require.Len(t, last.Changes, 1)
	require.Equal(t, game.Side1Unit0, last.Changes[0].Item)
}

func TestApply_SteelAbsorbsShot(t *testing.T) {
	rows := append([]string(nil), openTerrain...)
	rows[3] = "....%...."
	s := newState(t, rows)
	place(s, 1, 0, game.Point{X: 4, Y: 5})

	step(t, "shoot steel", s, game.Idle, game.JointAction{game.UpShoot, game.Stay})

	require.True(t, s.Grid[3][4].Has(game.Steel))
	require.True(t, s.Bases[0].Alive)
	require.Empty(t, s.History[len(s.History)-1].Changes)
}

func TestApply_ShotsResolveOnPreShotBoard(t *testing.T) {
	rows := append([]string(nil), openTerrain...)
	rows[3] = "....#...."
	s := newState(t, rows)
	place(s, 0, 0, game.Point{X: 4, Y: 5})
	place(s, 0, 1, game.Point{X: 2, Y: 3})
	place(s, 1, 0, game.Point{X: 6, Y: 3})

	step(t, "brick soaks both", s, game.JointAction{game.UpShoot, game.RightShoot}, game.Idle)

	require.False(t, s.Grid[3][4].Has(game.Brick))
	require.True(t, s.Units[1][0].Alive, "the brick was still standing when the second shell arrived")
}

func TestApply_MovesThenShoots(t *testing.T) {
	s := newState(t, openTerrain)
	place(s, 1, 0, game.Point{X: 5, Y: 4})

	// side 0 unit 1 steps from (6,0) to (5,0) and fires down the new column.
	step(t, "move", s, game.JointAction{game.Stay, game.Left}, game.Idle)
	step(t, "fire", s, game.JointAction{game.Stay, game.DownShoot}, game.Idle)

	require.Equal(t, game.Point{X: 5, Y: 0}, s.Units[0][1].Pos)
	require.False(t, s.Units[1][0].Alive)
}

func TestUndo_FirstTurn(t *testing.T) {
	s := newState(t, openTerrain)
	require.ErrorIs(t, Undo(s), ErrNoHistory)
}

func TestUndo_RestoresDestruction(t *testing.T) {
	s := newState(t, mixedTerrain)
	place(s, 1, 0, game.Point{X: 4, Y: 2})
	s.Grid[2][4] = game.UnitItem(1, 0) // clear the steel under the unit
	before := s.Clone()

	step(t, "breach", s, game.JointAction{game.Down, game.Stay}, game.JointAction{game.UpShoot, game.Stay})
	require.NoError(t, Undo(s))

	require.True(t, before.Equal(s), "after undo:\n%s\nwant:\n%s", game.Render(s), game.Render(before))
	require.Equal(t, game.JointAction{game.UpShoot, game.Stay}, s.Pending[1])
}

func randomJoint(rng *rand.Rand, s *game.GameState, side int) game.JointAction {
	var j game.JointAction
	for unit := 0; unit < game.UnitsPerSide; unit++ {
		for {
			act := game.Actions[rng.IntN(len(game.Actions))]
			if ActionIsValid(s, side, unit, act) {
				j[unit] = act
				break
			}
		}
	}
	return j
}

func TestUndo_RoundTripRandomGames(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, 7))
		s := newState(t, mixedTerrain)
		snapshots := []*game.GameState{s.Clone()}

		for Outcome(s) == game.Unfinished {
			a0, a1 := randomJoint(rng, s, 0), randomJoint(rng, s, 1)
			before := s.Clone()
			require.NoError(t, Step(s, a0, a1))

			undone := s.Clone()
			require.NoError(t, Undo(undone))
			if !before.Equal(undone) {
				logStep(t, "round trip mismatch", before, a0, a1, s)
				t.Fatalf("seed %d turn %d: undo did not restore\n%s", seed, before.Turn, game.Render(undone))
			}
			snapshots = append(snapshots, s.Clone())
		}

		// Unwind the whole game.
		for i := len(snapshots) - 2; i >= 0; i-- {
			require.NoError(t, Undo(s))
			require.True(t, snapshots[i].Equal(s), "seed %d unwinding to turn %d", seed, snapshots[i].Turn)
		}
		require.ErrorIs(t, Undo(s), ErrNoHistory)
	}
}
