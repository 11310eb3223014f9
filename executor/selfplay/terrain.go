package selfplay

import (
	"fmt"
	"math/rand/v2"

	"github.com/brensch/tank2/game"
)

// TerrainConfig sets the chance of each cell holding each terrain type.
// The chances are taken in order brick, steel, water and must not sum
// above 1.
type TerrainConfig struct {
	Brick float64 `yaml:"brick"`
	Steel float64 `yaml:"steel"`
	Water float64 `yaml:"water"`
}

func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{Brick: 0.35, Steel: 0.06, Water: 0.08}
}

func (c TerrainConfig) Validate() error {
	if c.Brick < 0 || c.Steel < 0 || c.Water < 0 || c.Brick+c.Steel+c.Water > 1 {
		return fmt.Errorf("terrain chances %+v must be non-negative and sum to at most 1", c)
	}
	return nil
}

// GenerateTerrain draws a random board that looks the same from both
// sides: cell (x,y) always matches (8-x,8-y). Unit start squares and bases
// are left clear. The result is in the game constructor's encoding.
func GenerateTerrain(rng *rand.Rand, cfg TerrainConfig) (brick, water, steel [3]uint32) {
	var reserved [game.Height][game.Width]bool
	for side := 0; side < game.Sides; side++ {
		reserved[game.BasePos[side].Y][game.BasePos[side].X] = true
		for _, p := range game.StartPos[side] {
			reserved[p.Y][p.X] = true
		}
	}

	set := func(layer *[3]uint32, x, y int) {
		layer[y/3] |= 1 << uint((y%3)*game.Width+x)
	}

	for y := 0; y < game.Height; y++ {
		for x := 0; x < game.Width; x++ {
			mx, my := game.Width-1-x, game.Height-1-y
			// Draw each mirrored pair once, from its first cell in row order.
			if my*game.Width+mx < y*game.Width+x || reserved[y][x] || reserved[my][mx] {
				continue
			}

			var layer *[3]uint32
			switch r := rng.Float64(); {
			case r < cfg.Brick:
				layer = &brick
			case r < cfg.Brick+cfg.Steel:
				layer = &steel
			case r < cfg.Brick+cfg.Steel+cfg.Water:
				layer = &water
			default:
				continue
			}
			set(layer, x, y)
			set(layer, mx, my)
		}
	}
	return brick, water, steel
}
