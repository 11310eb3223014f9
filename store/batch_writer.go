package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams several matches into one Parquet file. The file is
// written under outDir/tmp and only moved into outDir by Finalize.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[MatchTurnRow]

	matches  []string
	rowCount int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[MatchTurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", Schema)

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Matches() int    { return len(b.matches) }
func (b *BatchWriter) Rows() int       { return b.rowCount }

// WriteMatch appends every row of one match.
func (b *BatchWriter) WriteMatch(matchID string, rows []MatchTurnRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write match %s: %w", matchID, err)
	}
	b.rowCount += len(rows)
	b.matches = append(b.matches, matchID)
	return nil
}

// Finalize closes the file and moves it into place, returning the match
// IDs it contains. An empty batch leaves no file behind.
func (b *BatchWriter) Finalize() (outPath string, matchIDs []string, err error) {
	if b.writer == nil && b.file == nil {
		return "", nil, nil
	}

	var closeErr, fileErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		return "", nil, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", nil, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if b.rowCount == 0 {
		_ = os.Remove(b.tmpPath)
		return "", nil, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", nil, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.matches, nil
}
