package world

import "testing"

func mustGrid(t *testing.T, w, h, d int) *Grid {
	t.Helper()
	g, err := NewGrid(w, h, d)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	return g
}

func TestGridSetAndHasBlock(t *testing.T) {
	g := mustGrid(t, 4, 8, 4)

	for z := 0; z < 4; z++ {
		for x := 0; x < 4; x++ {
			for y := 0; y < 8; y++ {
				if g.HasBlock(x, y, z) {
					t.Fatalf("fresh grid occupied at (%d,%d,%d)", x, y, z)
				}
				if !g.SetBlock(x, y, z, true, MatBrick) {
					t.Fatalf("set (%d,%d,%d) rejected", x, y, z)
				}
				if !g.HasBlock(x, y, z) {
					t.Fatalf("set (%d,%d,%d) not visible", x, y, z)
				}
				m, ok := g.MaterialAt(x, y, z)
				if !ok || m != MatBrick {
					t.Fatalf("material at (%d,%d,%d) = %v,%v", x, y, z, m, ok)
				}
				if !g.SetBlock(x, y, z, false, 0) {
					t.Fatalf("clear (%d,%d,%d) rejected", x, y, z)
				}
				if g.HasBlock(x, y, z) {
					t.Fatalf("clear (%d,%d,%d) not visible", x, y, z)
				}
			}
		}
	}
}

func TestGridMaterialClamped(t *testing.T) {
	g := mustGrid(t, 2, 4, 2)
	g.SetBlock(0, 0, 0, true, Material(200))
	m, ok := g.MaterialAt(0, 0, 0)
	if !ok {
		t.Fatalf("block not set")
	}
	if m != materialCount-1 {
		t.Fatalf("material = %d, want clamped %d", m, materialCount-1)
	}
}

func TestGridOutOfRange(t *testing.T) {
	g := mustGrid(t, 4, 8, 4)
	cases := [][3]int{
		{-1, 0, 0}, {4, 0, 0}, {0, -1, 0}, {0, 8, 0}, {0, 0, -1}, {0, 0, 4},
	}
	for _, c := range cases {
		if g.HasBlock(c[0], c[1], c[2]) {
			t.Fatalf("out-of-range %v reads occupied", c)
		}
		if g.SetBlock(c[0], c[1], c[2], true, 0) {
			t.Fatalf("out-of-range set %v accepted", c)
		}
	}
	if g.BlockCount() != 0 {
		t.Fatalf("out-of-range sets mutated the grid")
	}
}

func TestGridDimensionLimits(t *testing.T) {
	if _, err := NewGrid(0, 4, 4); err == nil {
		t.Fatalf("zero width accepted")
	}
	if _, err := NewGrid(4, MaxHeight+1, 4); err == nil {
		t.Fatalf("height above MaxHeight accepted")
	}
	if _, err := NewGrid(4, MaxHeight, 4); err != nil {
		t.Fatalf("height == MaxHeight rejected: %v", err)
	}
}

func TestGroundLevelMatchesHighestSolid(t *testing.T) {
	g := mustGrid(t, 3, 8, 3)
	g.SetBlock(1, 0, 1, true, 0)
	g.SetBlock(1, 1, 1, true, 0)
	g.SetBlock(2, 5, 0, true, 0)

	for z := 0; z < 3; z++ {
		for x := 0; x < 3; x++ {
			hi := g.HighestSolidY(x, z)
			gl := g.GroundLevel(x, z)
			if hi == -1 && gl != 0 {
				t.Fatalf("empty column (%d,%d): ground level %d, want 0", x, z, gl)
			}
			if hi >= 0 && gl != hi+1 {
				t.Fatalf("column (%d,%d): ground level %d, want %d", x, z, gl, hi+1)
			}
		}
	}
	if g.HighestSolidY(1, 1) != 1 {
		t.Fatalf("highest solid = %d, want 1", g.HighestSolidY(1, 1))
	}
	if g.GroundLevel(2, 0) != 6 {
		t.Fatalf("ground level above floating block = %d, want 6", g.GroundLevel(2, 0))
	}
}

func TestColumnBlockedInRange(t *testing.T) {
	g := mustGrid(t, 3, 8, 3)
	g.SetBlock(1, 3, 1, true, 0)

	if !g.ColumnBlockedInRange(-1, 0, 0, 7) {
		t.Fatalf("out-of-range column should read blocked")
	}
	if !g.ColumnBlockedInRange(1, 1, 3.0, 3.9) {
		t.Fatalf("range covering the block should be blocked")
	}
	if !g.ColumnBlockedInRange(1, 1, 2.5, 3.1) {
		t.Fatalf("range entering the block from below should be blocked")
	}
	if g.ColumnBlockedInRange(1, 1, 4.0, 7.0) {
		t.Fatalf("range above the block should be clear")
	}
	if g.ColumnBlockedInRange(1, 1, 0.0, 2.9) {
		t.Fatalf("range below the block should be clear")
	}
}

func TestCellValuesRoundTrip(t *testing.T) {
	g := mustGrid(t, 3, 4, 2)
	g.SetBlock(0, 0, 0, true, MatGrass)
	g.SetBlock(2, 3, 1, true, MatSnow)
	g.SetBlock(1, 2, 0, true, MatWood)

	cells := g.CellValues()
	if len(cells) != 3*4*2 {
		t.Fatalf("cell count = %d", len(cells))
	}
	g2, err := GridFromCellValues(3, 4, 2, cells)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if g2.BlockCount() != 3 {
		t.Fatalf("rebuilt block count = %d, want 3", g2.BlockCount())
	}
	if m, _ := g2.MaterialAt(2, 3, 1); m != MatSnow {
		t.Fatalf("rebuilt material = %v, want snow", m)
	}
	if _, err := GridFromCellValues(3, 4, 2, cells[:5]); err == nil {
		t.Fatalf("short cell slice accepted")
	}
}
