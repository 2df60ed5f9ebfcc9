package terrain

import (
	"fmt"

	"github.com/aquilax/go-perlin"

	"voxelwalk.dev/internal/sim/world"
)

const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = 3
	noiseScale   = 0.11 // cells per noise unit; lower is smoother hills
)

type Params struct {
	Width, Depth int
	Height       int   // world height; columns peak below this
	Seed         int64 // same seed, same world
}

// Generate builds a rolling-hills grid from 2-D perlin noise. Column heights
// span 1..Height-1 so there is always ground to stand on and always headroom.
func Generate(p Params) (*world.Grid, error) {
	if p.Width <= 0 || p.Depth <= 0 {
		return nil, fmt.Errorf("terrain: size %dx%d", p.Width, p.Depth)
	}
	if p.Height < 2 {
		return nil, fmt.Errorf("terrain: world height %d leaves no headroom", p.Height)
	}

	g, err := world.NewGrid(p.Width, p.Height, p.Depth)
	if err != nil {
		return nil, err
	}

	noise := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, p.Seed)
	maxCol := p.Height - 1

	for z := 0; z < p.Depth; z++ {
		for x := 0; x < p.Width; x++ {
			// Noise2D is in [-1,1]; map to a column height in [1,maxCol].
			n := (noise.Noise2D(float64(x)*noiseScale, float64(z)*noiseScale) + 1) / 2
			h := 1 + int(n*float64(maxCol-1)+0.5)
			if h > maxCol {
				h = maxCol
			}
			for y := 0; y < h; y++ {
				g.SetBlock(x, y, z, true, materialForLayer(y, h))
			}
		}
	}
	return g, nil
}

// materialForLayer picks a natural-looking material: stone core, dirt fill,
// grass on top, sand for low beaches, snow on peaks.
func materialForLayer(y, colHeight int) world.Material {
	top := colHeight - 1
	switch {
	case colHeight <= 2 && y == top:
		return world.MatSand
	case colHeight >= 7 && y == top:
		return world.MatSnow
	case y == top:
		return world.MatGrass
	case y >= top-2:
		return world.MatDirt
	default:
		return world.MatStone
	}
}
