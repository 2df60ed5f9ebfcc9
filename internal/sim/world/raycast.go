package world

import "math"

const parallelEps = 1e-9

// RayHit is the result of a voxel cast: the occupied cell, the axis-aligned
// normal of the face crossed to enter it, and the distance travelled. The
// normal is zero when the ray started inside the cell.
type RayHit struct {
	Cell   Vec3i
	Normal Vec3i
	Dist   float64
}

// GroundHit is the result of a ground-plane cast.
type GroundHit struct {
	X, Z int
	Dist float64
}

// CastVoxel walks the grid with 3-D DDA (Amanatides–Woo) and returns the
// first occupied cell within maxDist. The start cell is tested before any
// stepping, so a ray that begins inside a block reports it immediately. A
// direction component of ~0 never crosses a boundary on that axis.
func (g *Grid) CastVoxel(origin, dir Vec3, maxDist float64) (RayHit, bool) {
	cx := floorInt(origin.X)
	cy := floorInt(origin.Y)
	cz := floorInt(origin.Z)

	if g.HasBlock(cx, cy, cz) {
		return RayHit{Cell: Vec3i{X: cx, Y: cy, Z: cz}}, true
	}

	stepX, tDeltaX, tMaxX := axisSetup(origin.X, dir.X, cx)
	stepY, tDeltaY, tMaxY := axisSetup(origin.Y, dir.Y, cy)
	stepZ, tDeltaZ, tMaxZ := axisSetup(origin.Z, dir.Z, cz)

	// Each step strictly increases t, so the distance cutoff bounds the loop;
	// the iteration cap only guards degenerate all-infinite setups.
	maxSteps := 3 * (g.w + g.h + g.d + int(maxDist) + 2)
	for i := 0; i < maxSteps; i++ {
		var dist float64
		var normal Vec3i
		switch {
		case tMaxX <= tMaxY && tMaxX <= tMaxZ:
			dist = tMaxX
			tMaxX += tDeltaX
			cx += stepX
			normal = Vec3i{X: -stepX}
		case tMaxY <= tMaxZ:
			dist = tMaxY
			tMaxY += tDeltaY
			cy += stepY
			normal = Vec3i{Y: -stepY}
		default:
			dist = tMaxZ
			tMaxZ += tDeltaZ
			cz += stepZ
			normal = Vec3i{Z: -stepZ}
		}

		if dist > maxDist {
			break
		}
		if g.HasBlock(cx, cy, cz) {
			return RayHit{Cell: Vec3i{X: cx, Y: cy, Z: cz}, Normal: normal, Dist: dist}, true
		}
	}
	return RayHit{}, false
}

// axisSetup computes the DDA step, per-cell t increment, and initial t to the
// first boundary for one axis. A ~0 direction component yields step 0 with
// infinite increments: that axis never crosses a boundary.
func axisSetup(origin, dir float64, cell int) (step int, tDelta, tMax float64) {
	if math.Abs(dir) < parallelEps {
		return 0, math.Inf(1), math.Inf(1)
	}
	tDelta = math.Abs(1 / dir)
	if dir > 0 {
		step = 1
		tMax = (float64(cell+1) - origin) / dir
	} else {
		step = -1
		tMax = (float64(cell) - origin) / dir
	}
	if tMax < 0 {
		tMax = 0
	}
	return step, tDelta, tMax
}

// CastGroundPlane intersects the ray with the horizontal plane y=planeY.
// Rejected when the ray is parallel to the plane, the intersection lies
// behind the origin or past maxDist, or the struck (x,z) cell is outside the
// grid.
func (g *Grid) CastGroundPlane(origin, dir Vec3, planeY, maxDist float64) (GroundHit, bool) {
	if math.Abs(dir.Y) < parallelEps {
		return GroundHit{}, false
	}
	t := (planeY - origin.Y) / dir.Y
	if t < 0 || t > maxDist {
		return GroundHit{}, false
	}
	p := origin.Add(dir.Scale(t))
	x := floorInt(p.X)
	z := floorInt(p.Z)
	if !g.InRangeXZ(x, z) {
		return GroundHit{}, false
	}
	return GroundHit{X: x, Z: z, Dist: t}, true
}
