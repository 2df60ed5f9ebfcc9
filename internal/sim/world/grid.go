package world

import (
	"fmt"
	"math"
)

// MaxHeight is the tallest world the column bitset can represent. Grid
// construction rejects anything taller; the limit is structural (one bit per
// cell in a ColumnBits word), not a tuning knob.
const MaxHeight = 32

// ColumnBits is the occupancy bitset for one (x,z) column: bit y set means a
// block occupies cell y.
type ColumnBits uint32

func (c ColumnBits) Has(y int) bool { return c&(1<<uint(y)) != 0 }

func (c ColumnBits) set(y int) ColumnBits   { return c | 1<<uint(y) }
func (c ColumnBits) clear(y int) ColumnBits { return c &^ (1 << uint(y)) }

// Grid is a fixed-size voxel occupancy grid with a per-cell material tag.
// Dimensions are constant for the grid's lifetime; cells mutate only through
// SetBlock. Accessed only from the world loop goroutine.
type Grid struct {
	w, h, d int
	cols    []ColumnBits // index x + z*w
	mats    []Material   // index (x + z*w)*h + y; valid only where the bit is set
}

func NewGrid(w, h, d int) (*Grid, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%dx%d", w, h, d)
	}
	if h > MaxHeight {
		return nil, fmt.Errorf("grid height %d exceeds max %d", h, MaxHeight)
	}
	return &Grid{
		w:    w,
		h:    h,
		d:    d,
		cols: make([]ColumnBits, w*d),
		mats: make([]Material, w*h*d),
	}, nil
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }
func (g *Grid) Depth() int  { return g.d }

func (g *Grid) InRangeXZ(x, z int) bool {
	return x >= 0 && x < g.w && z >= 0 && z < g.d
}

func (g *Grid) InRange(x, y, z int) bool {
	return g.InRangeXZ(x, z) && y >= 0 && y < g.h
}

func (g *Grid) colIdx(x, z int) int    { return x + z*g.w }
func (g *Grid) matIdx(x, y, z int) int { return (x+z*g.w)*g.h + y }

// HasBlock reports whether cell (x,y,z) is occupied. Any out-of-range
// coordinate reads as unoccupied.
func (g *Grid) HasBlock(x, y, z int) bool {
	if !g.InRange(x, y, z) {
		return false
	}
	return g.cols[g.colIdx(x, z)].Has(y)
}

// MaterialAt returns the material of an occupied cell.
func (g *Grid) MaterialAt(x, y, z int) (Material, bool) {
	if !g.HasBlock(x, y, z) {
		return 0, false
	}
	return g.mats[g.matIdx(x, y, z)], true
}

// SetBlock sets or clears exactly one cell. Out-of-range coordinates are a
// no-op returning false. On set the material is clamped to the palette; on
// clear it resets to the default.
func (g *Grid) SetBlock(x, y, z int, on bool, m Material) bool {
	if !g.InRange(x, y, z) {
		return false
	}
	ci := g.colIdx(x, z)
	if on {
		g.cols[ci] = g.cols[ci].set(y)
		g.mats[g.matIdx(x, y, z)] = clampMaterial(m)
	} else {
		g.cols[ci] = g.cols[ci].clear(y)
		g.mats[g.matIdx(x, y, z)] = 0
	}
	return true
}

// HighestSolidY returns the highest occupied y in the column, or -1 when the
// column is empty or (x,z) is out of range.
func (g *Grid) HighestSolidY(x, z int) int {
	if !g.InRangeXZ(x, z) {
		return -1
	}
	bits := g.cols[g.colIdx(x, z)]
	for y := g.h - 1; y >= 0; y-- {
		if bits.Has(y) {
			return y
		}
	}
	return -1
}

// GroundLevel returns the y a standing player's feet rest on in this column:
// one above the highest block, or 0 for an empty column (the world floor is
// an implicit solid plane at y=0).
func (g *Grid) GroundLevel(x, z int) int {
	return g.HighestSolidY(x, z) + 1
}

// ColumnBlockedInRange reports whether any cell in [floor(yMin), floor(yMax)]
// of the column is occupied. Out-of-range (x,z) reads as blocked: the world
// boundary is a wall for movement queries.
func (g *Grid) ColumnBlockedInRange(x, z int, yMin, yMax float64) bool {
	if !g.InRangeXZ(x, z) {
		return true
	}
	lo := floorInt(yMin)
	hi := floorInt(yMax)
	if lo < 0 {
		lo = 0
	}
	if hi >= g.h {
		hi = g.h - 1
	}
	bits := g.cols[g.colIdx(x, z)]
	for y := lo; y <= hi; y++ {
		if bits.Has(y) {
			return true
		}
	}
	return false
}

// highestSurfaceAtOrBelow returns the top surface (block y + 1) of the
// highest occupied cell whose surface is at or below maxY, or 0 when no such
// block exists (implicit world floor).
func (g *Grid) highestSurfaceAtOrBelow(x, z int, maxY float64) float64 {
	if !g.InRangeXZ(x, z) {
		return 0
	}
	top := floorInt(math.Min(maxY, float64(g.h))) - 1
	if top >= g.h {
		top = g.h - 1
	}
	bits := g.cols[g.colIdx(x, z)]
	for y := top; y >= 0; y-- {
		if bits.Has(y) && float64(y+1) <= maxY {
			return float64(y + 1)
		}
	}
	return 0
}

// BlockCount returns the number of occupied cells.
func (g *Grid) BlockCount() int {
	n := 0
	for _, bits := range g.cols {
		for y := 0; y < g.h; y++ {
			if bits.Has(y) {
				n++
			}
		}
	}
	return n
}

// ForEachBlock visits every occupied cell in deterministic order
// (z, then x, then y ascending). Read-only; the visitor must not mutate the
// grid.
func (g *Grid) ForEachBlock(fn func(pos Vec3i, m Material)) {
	for z := 0; z < g.d; z++ {
		for x := 0; x < g.w; x++ {
			bits := g.cols[g.colIdx(x, z)]
			if bits == 0 {
				continue
			}
			for y := 0; y < g.h; y++ {
				if bits.Has(y) {
					fn(Vec3i{X: x, Y: y, Z: z}, g.mats[g.matIdx(x, y, z)])
				}
			}
		}
	}
}

// CellValues flattens the grid for wire/snapshot encoding: 0 for an empty
// cell, material+1 for an occupied one, ordered (z, x, y ascending).
func (g *Grid) CellValues() []uint16 {
	out := make([]uint16, 0, g.w*g.h*g.d)
	for z := 0; z < g.d; z++ {
		for x := 0; x < g.w; x++ {
			bits := g.cols[g.colIdx(x, z)]
			for y := 0; y < g.h; y++ {
				if bits.Has(y) {
					out = append(out, uint16(g.mats[g.matIdx(x, y, z)])+1)
				} else {
					out = append(out, 0)
				}
			}
		}
	}
	return out
}

// GridFromCellValues rebuilds a grid from CellValues output.
func GridFromCellValues(w, h, d int, cells []uint16) (*Grid, error) {
	g, err := NewGrid(w, h, d)
	if err != nil {
		return nil, err
	}
	if len(cells) != w*h*d {
		return nil, fmt.Errorf("cell count %d does not match %dx%dx%d", len(cells), w, h, d)
	}
	i := 0
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				if v := cells[i]; v != 0 {
					g.SetBlock(x, y, z, true, Material(v-1))
				}
				i++
			}
		}
	}
	return g, nil
}
