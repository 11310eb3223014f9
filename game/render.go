package game

import (
	"fmt"
	"strings"
)

var cellGlyphs = map[Cell]byte{
	Empty:      '.',
	Brick:      '#',
	Steel:      '%',
	BaseItem:   '*',
	Side0Unit0: 'b',
	Side0Unit1: 'B',
	Side1Unit0: 'r',
	Side1Unit1: 'R',
	Water:      'W',
}

// Glyph returns the single character used for a cell. Stacked items render as '@'.
func Glyph(c Cell) byte {
	if g, ok := cellGlyphs[c]; ok {
		return g
	}
	return '@'
}

// Rows renders the board top to bottom, one string per row.
func Rows(s *GameState) []string {
	rows := make([]string, Height)
	var b strings.Builder
	for y := 0; y < Height; y++ {
		b.Reset()
		for x := 0; x < Width; x++ {
			b.WriteByte(Glyph(s.Grid[y][x]))
		}
		rows[y] = b.String()
	}
	return rows
}

// Render returns a multi-line dump of the board plus unit and base status.
func Render(s *GameState) string {
	if s == nil {
		return "<nil state>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d MySide=%d\n", s.Turn, s.MySide)
	for _, row := range Rows(s) {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	for side := 0; side < Sides; side++ {
		fmt.Fprintf(&b, "side %d: base=%s", side, aliveWord(s.Bases[side].Alive))
		for id := 0; id < UnitsPerSide; id++ {
			u := s.Units[side][id]
			fmt.Fprintf(&b, " unit%d=%s(%d,%d)", id, aliveWord(u.Alive), u.Pos.X, u.Pos.Y)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func aliveWord(alive bool) string {
	if alive {
		return "alive"
	}
	return "dead"
}

// ParseTerrain reads a 9-row picture using the Render glyphs ('#' brick,
// '%' steel, 'W' water, anything else empty) into constructor bitfields.
func ParseTerrain(rows []string) (brick, water, steel [3]uint32, err error) {
	if len(rows) != Height {
		return brick, water, steel, fmt.Errorf("terrain has %d rows, want %d", len(rows), Height)
	}
	for y, row := range rows {
		if len(row) != Width {
			return brick, water, steel, fmt.Errorf("terrain row %d has %d columns, want %d", y, len(row), Width)
		}
		word, base := y/3, uint((y%3)*Width)
		for x := 0; x < Width; x++ {
			bit := uint32(1) << (base + uint(x))
			switch row[x] {
			case '#':
				brick[word] |= bit
			case 'W':
				water[word] |= bit
			case '%':
				steel[word] |= bit
			}
		}
	}
	return brick, water, steel, nil
}

// FromRows builds an opening position from a terrain picture.
func FromRows(rows []string, mySide int) (*GameState, error) {
	brick, water, steel, err := ParseTerrain(rows)
	if err != nil {
		return nil, err
	}
	return NewGameState(brick, water, steel, mySide)
}
