package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRows(matchID string, turns int) []MatchTurnRow {
	rows := make([]MatchTurnRow, 0, turns)
	for turn := 1; turn <= turns; turn++ {
		rows = append(rows, MatchTurnRow{
			MatchID:   matchID,
			Turn:      int32(turn),
			Brick:     []uint32{0x28, 0, 0x28 << 18},
			Water:     []uint32{0, 1 << 9, 0},
			Steel:     []uint32{0, 1 << 13, 0},
			BaseAlive: []bool{true, turn < turns},
			Units: []UnitRow{
				{Side: 0, ID: 0, Alive: true, X: 2, Y: int32(turn % 9), Action: 2},
				{Side: 0, ID: 1, Alive: true, X: 6, Y: 0, Action: -1},
				{Side: 1, ID: 0, Alive: true, X: 6, Y: 8, Action: 4},
				{Side: 1, ID: 1, Alive: false, X: -1, Y: -1, Action: -1},
			},
			Sides: []SideRow{
				{Side: 0, Iterations: 120, Nodes: 121, Arms: 64, ChosenVisits: 30, ChosenValue: 0.6, Value: 1},
				{Side: 1, Iterations: 110, Nodes: 111, Arms: 48, ChosenVisits: 20, ChosenValue: 0.4, Value: 0},
			},
			Outcome: 0,
			Source:  "selfplay",
		})
	}
	rows[0].SearchJSON = []byte(`[{"action":"(stay, stay)","visits":3}]`)
	return rows
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteMatch("a", sampleRows("a", 3)))
	require.NoError(t, w.WriteMatch("b", sampleRows("b", 4)))
	require.Equal(t, 2, w.Matches())
	require.Equal(t, 7, w.Rows())

	out, ids, err := w.Finalize()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
	require.Equal(t, filepath.Dir(out), dir)

	got, err := ReadMatchParquet(out)
	require.NoError(t, err)
	require.Len(t, got, 7)

	require.Error(t, w.WriteMatch("c", sampleRows("c", 1)))
}

func TestBatchWriter_EmptyLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	require.NoError(t, err)

	out, ids, err := w.Finalize()
	require.NoError(t, err)
	require.Empty(t, out)
	require.Empty(t, ids)

	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriteBatchParquetAtomic_ReadBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	rows := sampleRows("m1", 5)

	out, err := WriteBatchParquetAtomic(dir, rows)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(out))
	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	require.Empty(t, entries, "temp file is renamed away")

	got, err := ReadMatchParquet(out)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, "m1", got[4].MatchID)
	require.Equal(t, int32(5), got[4].Turn)
	require.Equal(t, []bool{true, false}, got[4].BaseAlive)
	require.Equal(t, rows[2].Units, got[2].Units)
	require.Equal(t, rows[2].Sides, got[2].Sides)
	require.Equal(t, rows[0].Brick, got[0].Brick)
	require.Equal(t, rows[0].SearchJSON, got[0].SearchJSON)
	require.Empty(t, got[1].SearchJSON)
}

func TestMatchLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.log")

	l, err := OpenMatchLog(path)
	require.NoError(t, err)
	require.NoError(t, l.AddMany([]string{"a", "b", "", "a"}))
	require.True(t, l.Has("a"))
	require.False(t, l.Has("c"))
	require.Equal(t, 2, l.Count())
	require.NoError(t, l.Close())

	reopened, err := OpenMatchLog(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 2, reopened.Count())
	require.True(t, reopened.Has("b"))
}
