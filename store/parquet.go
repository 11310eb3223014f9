// Package store archives self-play matches as Parquet.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Schema is recorded in every file's key/value metadata.
const Schema = "tank_turn_v1"

// MatchTurnRow is one (match, turn) snapshot taken before the turn's
// actions are applied. The final row of a finished match holds the end
// position with actions set to -2 (invalid).
//
// Terrain uses the constructor encoding: three words per layer, three rows
// of nine bits per word.
type MatchTurnRow struct {
	MatchID string `parquet:"match_id,dict"`
	Turn    int32  `parquet:"turn"`

	Brick []uint32 `parquet:"brick"`
	Water []uint32 `parquet:"water"`
	Steel []uint32 `parquet:"steel"`

	BaseAlive []bool    `parquet:"base_alive"`
	Units     []UnitRow `parquet:"units"`
	Sides     []SideRow `parquet:"sides"`

	// Outcome is the final result of the match: -1 draw, 0 or 1 the winner,
	// -2 for matches that were cut short.
	Outcome int32  `parquet:"outcome"`
	Source  string `parquet:"source,dict"`

	// SearchJSON holds the root arm summaries of both sides' searches.
	SearchJSON []byte `parquet:"search_json,optional,zstd"`
}

type UnitRow struct {
	Side   int32 `parquet:"side"`
	ID     int32 `parquet:"id"`
	Alive  bool  `parquet:"alive"`
	X      int32 `parquet:"x"`
	Y      int32 `parquet:"y"`
	Action int32 `parquet:"action"`
}

// SideRow summarises one side's search for the turn.
type SideRow struct {
	Side       int32 `parquet:"side"`
	Iterations int32 `parquet:"iterations"`
	Nodes      int32 `parquet:"nodes"`
	Arms       int32 `parquet:"arms"`
	// ChosenVisits and ChosenValue describe the arm that was played.
	ChosenVisits int32   `parquet:"chosen_visits"`
	ChosenValue  float32 `parquet:"chosen_value"`
	// Value is the final result from this side's point of view.
	Value float32 `parquet:"value"`
}

func writeOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", Schema),
	}
}

// WriteBatchParquetAtomic writes a Parquet file into outDir/tmp and then
// moves it into outDir, so readers never observe a partial file.
func WriteBatchParquetAtomic(outDir string, rows []MatchTurnRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writeOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadMatchParquet loads every row of an archive file.
func ReadMatchParquet(path string) ([]MatchTurnRow, error) {
	rows, err := parquet.ReadFile[MatchTurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
