package game

import "math/bits"

// Cell is the set of items occupying one board square.
// Several units may share a square, so a Cell is a bitmask rather than an enum.
type Cell uint8

const (
	Brick Cell = 1 << iota
	Steel
	BaseItem
	Side0Unit0
	Side0Unit1
	Side1Unit0
	Side1Unit1
	Water

	Empty Cell = 0

	unitMask = Side0Unit0 | Side0Unit1 | Side1Unit0 | Side1Unit1
)

// UnitRef names one unit by side and id.
type UnitRef struct {
	Side int
	ID   int
}

var unitItems = [Sides][UnitsPerSide]Cell{
	{Side0Unit0, Side0Unit1},
	{Side1Unit0, Side1Unit1},
}

// UnitItem returns the cell flag that marks the given unit.
func UnitItem(side, id int) Cell {
	return unitItems[side][id]
}

func (c Cell) Has(item Cell) bool { return c&item != 0 }

func (c Cell) IsEmpty() bool { return c == Empty }

// UnitCount reports how many units stand on the cell.
func (c Cell) UnitCount() int {
	return bits.OnesCount8(uint8(c & unitMask))
}

func (c Cell) HasUnits() bool { return c&unitMask != 0 }

func (c Cell) HasMultipleUnits() bool { return c.UnitCount() > 1 }

// Units lists the units occupying the cell in side-major order.
func (c Cell) Units() []UnitRef {
	if !c.HasUnits() {
		return nil
	}
	out := make([]UnitRef, 0, 2)
	for side := 0; side < Sides; side++ {
		for id := 0; id < UnitsPerSide; id++ {
			if c.Has(unitItems[side][id]) {
				out = append(out, UnitRef{Side: side, ID: id})
			}
		}
	}
	return out
}

// Items splits the cell into its single-bit items, lowest bit first.
func (c Cell) Items() []Cell {
	out := make([]Cell, 0, 2)
	for m := Brick; m != 0 && m <= Water; m <<= 1 {
		if c&m != 0 {
			out = append(out, m)
		}
	}
	return out
}

// Blocks reports whether a unit cannot be moved onto this cell.
func (c Cell) Blocks() bool { return c != Empty }

// StopsShot reports whether a shell travelling through the cell hits something.
// Water is flown over.
func (c Cell) StopsShot() bool { return c != Empty && c != Water }
