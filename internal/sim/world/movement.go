package world

import "math"

// Collision epsilons. bodyEps shrinks the body span so a player resting
// exactly on a surface does not read the block under it as an overlap;
// surfEps absorbs float error in surface comparisons.
const (
	bodyEps   = 1e-3
	surfEps   = 1e-7
	groundEps = 1e-3
	velEps    = 1e-6
)

// Physics holds the per-tick integration constants. Units are cells and
// reference ticks; dtScale rescales them when a frame runs long or short.
type Physics struct {
	Gravity      float64 // cells/tick^2, negative
	JumpImpulse  float64 // cells/tick
	MaxFallSpeed float64 // cells/tick, magnitude of the terminal fall clamp
	MoveSpeed    float64 // cells/tick

	PlayerHeight float64 // feet to head
	EyeHeight    float64 // feet to eye
	StepHeight   float64 // max instant stair step

	ReachDistance float64 // max edit/pick ray length
	MinEditDist   float64 // edits closer than this to the eye are rejected
}

func (p *Physics) applyDefaults() {
	if p.Gravity == 0 {
		p.Gravity = -0.02
	}
	if p.JumpImpulse <= 0 {
		p.JumpImpulse = 0.22
	}
	if p.MaxFallSpeed <= 0 {
		p.MaxFallSpeed = 1.5
	}
	if p.MoveSpeed <= 0 {
		p.MoveSpeed = 0.12
	}
	if p.PlayerHeight <= 0 {
		p.PlayerHeight = 1.8
	}
	if p.EyeHeight <= 0 {
		p.EyeHeight = 1.7
	}
	if p.StepHeight <= 0 {
		p.StepHeight = 1.0
	}
	if p.ReachDistance <= 0 {
		p.ReachDistance = 8.0
	}
	if p.MinEditDist <= 0 {
		p.MinEditDist = 1.5
	}
}

// CanOccupyAt reports whether the player body can stand in column (x,z) with
// the eye at eyeY: in range and no block intersecting the slightly shrunken
// feet-to-head span. Out-of-range columns are blocked (the boundary is a
// wall).
func (w *World) CanOccupyAt(x, z int, eyeY float64) bool {
	if !w.grid.InRangeXZ(x, z) {
		return false
	}
	feet := eyeY - w.phys.EyeHeight
	head := feet + w.phys.PlayerHeight
	return !w.grid.ColumnBlockedInRange(x, z, feet+bodyEps, head-bodyEps)
}

// StepVertical integrates gravity for one tick and resolves floor/ceiling
// collisions by sweeping every voxel level crossed since the last position.
// A single end-of-tick occupancy test could tunnel through a block at high
// fall speed; the sweep detects the crossing at any velocity.
func (w *World) StepVertical(dtScale float64) {
	p := &w.player
	oldFeet := p.Eye.Y - w.phys.EyeHeight
	oldHead := oldFeet + w.phys.PlayerHeight

	p.VelY += w.phys.Gravity * dtScale
	if p.VelY < -w.phys.MaxFallSpeed {
		p.VelY = -w.phys.MaxFallSpeed
	}
	p.Eye.Y += p.VelY * dtScale

	cx := floorInt(p.Eye.X)
	cz := floorInt(p.Eye.Z)

	if p.VelY > 0 {
		w.sweepCeiling(cx, cz, oldHead)
		return
	}
	w.sweepFloor(cx, cz, oldFeet)
}

// sweepCeiling scans every integer level the head crossed while rising and
// clamps to just below the closest occupied cell.
func (w *World) sweepCeiling(cx, cz int, oldHead float64) {
	p := &w.player
	newHead := p.Eye.Y - w.phys.EyeHeight + w.phys.PlayerHeight

	first := floorInt(oldHead)
	if float64(first) < oldHead {
		first++
	}
	for yc := first; yc <= floorInt(newHead); yc++ {
		if !w.grid.HasBlock(cx, yc, cz) {
			continue
		}
		head := float64(yc) - bodyEps
		p.Eye.Y = head - w.phys.PlayerHeight + w.phys.EyeHeight
		p.VelY = 0
		return // closest ceiling wins
	}
}

// sweepFloor picks the highest block surface the feet crossed this tick
// (closest to the old position), falling back to the nearest surface at or
// below the feet, and lands on it if the feet ended up below it.
func (w *World) sweepFloor(cx, cz int, oldFeet float64) {
	p := &w.player
	newFeet := p.Eye.Y - w.phys.EyeHeight

	surface := -1.0
	hi := floorInt(oldFeet+surfEps) - 1
	if hi > w.grid.h-1 {
		hi = w.grid.h - 1
	}
	lo := floorInt(newFeet)
	if lo < 0 {
		lo = 0
	}
	for yb := hi; yb >= lo; yb-- {
		if !w.grid.HasBlock(cx, yb, cz) {
			continue
		}
		s := float64(yb + 1)
		if s <= oldFeet+surfEps && s > newFeet {
			surface = s
			break
		}
	}
	if surface < 0 {
		// Nothing crossed this tick: the nearest surface at or below the feet,
		// or the implicit world floor at y=0.
		surface = w.grid.highestSurfaceAtOrBelow(cx, cz, newFeet+surfEps)
	}

	if newFeet < surface {
		p.Eye.Y = surface + w.phys.EyeHeight
		p.VelY = 0
		p.Grounded = true
		return
	}
	p.Grounded = newFeet-surface <= groundEps && math.Abs(p.VelY) <= velEps
}

// TryMove attempts a horizontal displacement as two independent single-axis
// moves, X then Z, so diagonal motion against a corner still slides along
// the open axis.
func (w *World) TryMove(dx, dz float64) {
	if dx != 0 {
		w.tryMoveAxis(dx, 0)
	}
	if dz != 0 {
		w.tryMoveAxis(0, dz)
	}
}

func (w *World) tryMoveAxis(dx, dz float64) {
	p := &w.player
	nx := p.Eye.X + dx
	nz := p.Eye.Z + dz
	tx := floorInt(nx)
	tz := floorInt(nz)
	if !w.grid.InRangeXZ(tx, tz) {
		return
	}

	feet := p.Eye.Y - w.phys.EyeHeight
	curFloor := w.grid.highestSurfaceAtOrBelow(floorInt(p.Eye.X), floorInt(p.Eye.Z), feet+surfEps)
	// The target floor only counts surfaces within stepHeight of the feet:
	// anything higher is a wall, not a stair.
	targetFloor := w.grid.highestSurfaceAtOrBelow(tx, tz, feet+w.phys.StepHeight+surfEps)

	if p.Grounded && targetFloor-curFloor > w.phys.StepHeight+surfEps {
		return
	}

	eyeY := p.Eye.Y
	if p.Grounded && targetFloor > curFloor+surfEps {
		// Instant stair step up. Descent is never snapped: gravity takes over
		// next tick so walking off a ledge falls instead of teleporting.
		eyeY = targetFloor + w.phys.EyeHeight
	}

	if !w.CanOccupyAt(tx, tz, eyeY) {
		return
	}

	p.Eye.X = nx
	p.Eye.Z = nz
	p.Eye.Y = eyeY
	if p.Grounded && targetFloor < curFloor-groundEps {
		// Walked off a ledge: let the next vertical step start the fall.
		p.Grounded = false
	}
}

// Jump applies the jump impulse; only a grounded player can jump.
func (w *World) Jump() bool {
	p := &w.player
	if !p.Grounded {
		return false
	}
	p.VelY = w.phys.JumpImpulse
	p.Grounded = false
	return true
}
