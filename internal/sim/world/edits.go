package world

import "voxelwalk.dev/internal/protocol"

// RemoveBlockAtLook casts from the eye along the look vector and clears the
// struck cell. Hits closer than the minimum edit distance are rejected so the
// player cannot delete the block under their own feet.
func (w *World) RemoveBlockAtLook() (Vec3i, string) {
	hit, ok := w.grid.CastVoxel(w.player.Eye, w.player.LookDir(), w.phys.ReachDistance)
	if !ok {
		return Vec3i{}, protocol.ErrNoTarget
	}
	if hit.Cell.Center().Dist(w.player.Eye) < w.phys.MinEditDist {
		return Vec3i{}, protocol.ErrTooClose
	}
	w.grid.SetBlock(hit.Cell.X, hit.Cell.Y, hit.Cell.Z, false, 0)
	return hit.Cell, ""
}

// PlaceBlockAtLook places a block of the given material where the player is
// looking. Both a voxel ray and a ground-plane ray are cast; the nearer hit
// wins, so looking at open terrain past all blocks still places on the
// ground. A voxel hit places face-adjacent; a ground hit places on top of the
// struck column.
func (w *World) PlaceBlockAtLook(m Material) (Vec3i, string) {
	eye := w.player.Eye
	dir := w.player.LookDir()

	vHit, vOK := w.grid.CastVoxel(eye, dir, w.phys.ReachDistance)
	gHit, gOK := w.grid.CastGroundPlane(eye, dir, 0, w.phys.ReachDistance)

	var target Vec3i
	switch {
	case vOK && (!gOK || vHit.Dist <= gHit.Dist):
		target = vHit.Cell.Add(vHit.Normal)
	case gOK:
		// Next free cell above the column's current top.
		target = Vec3i{X: gHit.X, Y: w.grid.GroundLevel(gHit.X, gHit.Z), Z: gHit.Z}
	default:
		return Vec3i{}, protocol.ErrNoTarget
	}

	if !w.grid.InRange(target.X, target.Y, target.Z) {
		return Vec3i{}, protocol.ErrOutOfRange
	}
	if w.grid.HasBlock(target.X, target.Y, target.Z) {
		return Vec3i{}, protocol.ErrOccupied
	}
	if target.Center().Dist(eye) < w.phys.MinEditDist {
		return Vec3i{}, protocol.ErrTooClose
	}
	if w.cellIntersectsPlayer(target) {
		return Vec3i{}, protocol.ErrTooClose
	}

	w.grid.SetBlock(target.X, target.Y, target.Z, true, m)
	return target, ""
}

// PickMaterialAtLook returns the material of the block under the crosshair
// without mutating anything.
func (w *World) PickMaterialAtLook() (Material, bool) {
	hit, ok := w.grid.CastVoxel(w.player.Eye, w.player.LookDir(), w.phys.ReachDistance)
	if !ok {
		return 0, false
	}
	m, ok := w.grid.MaterialAt(hit.Cell.X, hit.Cell.Y, hit.Cell.Z)
	return m, ok
}

// cellIntersectsPlayer reports whether placing at target would overlap the
// player's own body column.
func (w *World) cellIntersectsPlayer(target Vec3i) bool {
	p := w.player
	if target.X != floorInt(p.Eye.X) || target.Z != floorInt(p.Eye.Z) {
		return false
	}
	feet := p.Eye.Y - w.phys.EyeHeight
	head := feet + w.phys.PlayerHeight
	return float64(target.Y+1) > feet+bodyEps && float64(target.Y) < head-bodyEps
}
