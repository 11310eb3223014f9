package eval

import (
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

// Point symmetric about the centre, so neither side is favoured.
var mirroredTerrain = []string{
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

func mustState(t *testing.T, rows []string) *game.GameState {
	t.Helper()
	s, err := game.FromRows(rows, 0)
	require.NoError(t, err)
	return s
}

func TestPathCost_OpenBoard(t *testing.T) {
	s := mustState(t, openTerrain)

	// (2,0) reaches (4,1) on the base's column in 3 steps, plus half of the
	// 10 cell Manhattan distance.
	require.Equal(t, 8, PathCost(s, 0, 0))
	require.Equal(t, 8, PathCost(s, 0, 1))
	require.Equal(t, 8, PathCost(s, 1, 0))
}

func TestPathCost_DeadUnit(t *testing.T) {
	s := mustState(t, openTerrain)
	s.Grid[0][2] = game.Empty
	s.Units[0][0].Alive = false
	s.Units[0][0].Pos = game.Nowhere

	require.Equal(t, Unreachable, PathCost(s, 0, 0))
}

func TestPathCost_WalledIn(t *testing.T) {
	s := mustState(t, openTerrain)
	s.Grid[0][1] = game.Steel
	s.Grid[0][3] = game.Water
	s.Grid[1][2] = game.Steel

	require.Equal(t, Unreachable, PathCost(s, 0, 0))
	require.Less(t, PathCost(s, 0, 1), Unreachable)
}

func withRow(y int, row string) []string {
	rows := append([]string(nil), openTerrain...)
	rows[y] = row
	return rows
}

func TestPathCost_Bricks(t *testing.T) {
	// Every way out of row 0 enters a brick for 2. (2,0) reaches (4,2) for 5
	// by (3,0) (3,1) (3,2) (4,2). From there the column to the base is clear.
	s := mustState(t, withRow(1, "#########"))
	require.Equal(t, 10, PathCost(s, 0, 0))
	require.Equal(t, 10, PathCost(s, 0, 1))
	require.Equal(t, 5.0, DistanceScore(s, 0))

	// A brick on the base's column charges 2 to every cell behind it, so
	// (4,1) is worth 3+2 rather than 3.
	s = mustState(t, withRow(6, "....#...."))
	require.Equal(t, 10, PathCost(s, 0, 0))

	// Steel in front of the base closes the column. The best cell left is
	// (3,8) on the base row, 9 steps away.
	s = mustState(t, withRow(7, "....%...."))
	require.Equal(t, 14, PathCost(s, 0, 0))
}

func TestDistanceScore_Symmetric(t *testing.T) {
	s := mustState(t, mirroredTerrain)
	require.Equal(t, DistanceScore(s, 0), DistanceScore(s, 1))
}

func TestDistanceField_OpenBoard(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	s := mustState(t, openTerrain)

	f := e.DistanceField(s, 0)
	t.Logf("\n%s", game.Render(s))
	for y := 1; y < game.Height-1; y++ {
		require.Equal(t, 1.0, f[y][4], "column above the base is a firing line")
	}
	require.Equal(t, 2.0, f[1][3])
	require.Equal(t, 4.0, f[0][2])
	require.Equal(t, 4.0, f[0][6])
	require.InDelta(t, 7.2, e.Offense(s, 0), 1e-9)
}

func TestDistanceField_BricksOnFiringLine(t *testing.T) {
	rows := append([]string(nil), openTerrain...)
	rows[7] = "...%#%..."
	rows[6] = "...%#%..."
	e := NewEvaluator(DefaultWeights())
	s := mustState(t, rows)

	f := e.DistanceField(s, 0)
	t.Logf("\n%s", game.Render(s))
	require.InDelta(t, 1.0, f[7][4], 1e-9)
	// Breaching by walking through the brick beats the 1+2.2 seed.
	require.InDelta(t, 3.0, f[6][4], 1e-9)
	require.InDelta(t, 4.0, f[5][4], 1e-9)
	require.Equal(t, 0.0, f[8][4])
}

func TestShield(t *testing.T) {
	rows := append([]string(nil), openTerrain...)
	rows[6] = "....#...."
	rows[7] = "...###..."
	rows[8] = "...#.#..."
	s := mustState(t, rows)

	t.Logf("\n%s", game.Render(s))
	require.Equal(t, 6, Shield(s, 1))
	require.Equal(t, 0, Shield(s, 0))
}

func TestWinProbability_Symmetric(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	for _, rows := range [][]string{openTerrain, mirroredTerrain} {
		s := mustState(t, rows)
		require.InDelta(t, 0.5, e.WinProbability(s, 0), 1e-9)
		require.InDelta(t, 0.5, e.WinProbability(s, 1), 1e-9)
	}
}

func TestWinProbability_Terminal(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	s := mustState(t, openTerrain)
	s.Bases[1].Alive = false
	s.Grid[8][4] = game.Empty

	require.Equal(t, 1.0, e.WinProbability(s, 0))
	require.Equal(t, 0.0, e.WinProbability(s, 1))

	s.Bases[0].Alive = false
	s.Grid[0][4] = game.Empty
	require.Equal(t, 0.5, e.WinProbability(s, 0))
}

func TestScore_FavoursExtraUnit(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	s := mustState(t, openTerrain)
	s.Grid[8][2] = game.Empty
	s.Units[1][1].Alive = false
	s.Units[1][1].Pos = game.Nowhere

	require.Greater(t, e.Score(s, 0), 0.0)
	require.Less(t, e.Score(s, 1), 0.0)
	require.Greater(t, e.WinProbability(s, 0), 0.5)
}
