// Package blocking computes the deterministic row-major tile partition a
// Level1 source streams its active sub-window through. The partition is a
// pure function of (height, width, rows per block); every caller that asks
// for the tile sequence gets its own cursor starting at tile zero, so
// unrelated iterations never exhaust each other.
package blocking

import (
	"fmt"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// Tile is one entry of the partition: an origin in the active sub-window
// and an extent. Tiles never have zero rows.
type Tile struct {
	Offset domain.Offset
	Size   domain.Size
}

// Plan describes the partition of an (height × width) sub-window into
// full-width tiles of at most blockRows rows. It is immutable.
type Plan struct {
	height, width, blockRows int
}

// NewPlan validates the geometry and returns the partition plan.
func NewPlan(height, width, blockRows int) (Plan, error) {
	if blockRows < 1 {
		return Plan{}, fmt.Errorf("block size must be at least 1 row, got %d", blockRows)
	}
	if height < 0 || width < 0 {
		return Plan{}, fmt.Errorf("negative extent %dx%d", height, width)
	}
	return Plan{height: height, width: width, blockRows: blockRows}, nil
}

// NumTiles returns ceil(height / blockRows); zero when the sub-window is
// empty.
func (p Plan) NumTiles() int {
	return (p.height + p.blockRows - 1) / p.blockRows
}

// Tile returns descriptor i of the partition: offset (i*blockRows, 0) and
// size (min(blockRows, height-i*blockRows), width). It panics when i is out
// of range, matching slice indexing semantics.
func (p Plan) Tile(i int) Tile {
	if i < 0 || i >= p.NumTiles() {
		panic(fmt.Sprintf("blocking: tile index %d out of range [0,%d)", i, p.NumTiles()))
	}
	rows := p.blockRows
	if rem := p.height - i*p.blockRows; rem < rows {
		rows = rem
	}
	return Tile{
		Offset: domain.Offset{Row: i * p.blockRows, Col: 0},
		Size:   domain.Size{Rows: rows, Cols: p.width},
	}
}

// Tiles returns a fresh cursor over the partition. Each call restarts at
// tile zero.
func (p Plan) Tiles() *TileCursor {
	return &TileCursor{plan: p}
}

// TileCursor walks a Plan's tiles in order. The zero tile comes first; a
// cursor is single-consumer and cheap to recreate.
type TileCursor struct {
	plan Plan
	next int
}

// Next returns the next tile, or ok=false when the partition is exhausted.
func (c *TileCursor) Next() (Tile, bool) {
	if c.next >= c.plan.NumTiles() {
		return Tile{}, false
	}
	t := c.plan.Tile(c.next)
	c.next++
	return t, true
}
