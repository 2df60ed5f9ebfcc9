package world

import "math"

const (
	pitchLimitDeg = 89.0
)

// Player is the authoritative pose: a continuous eye point plus yaw/pitch in
// degrees. The look vector and the feet/head span are always derived, never
// stored.
type Player struct {
	Eye      Vec3
	Yaw      float64 // degrees, unbounded (trig wraps it)
	Pitch    float64 // degrees, clamped to (-89, 89)
	VelY     float64
	Grounded bool

	// Material the next placement uses; updated by pick.
	Selected Material
}

// LookDir derives the unit forward vector from yaw/pitch. Yaw 0 looks down
// +Z; positive pitch looks up.
func (p *Player) LookDir() Vec3 {
	yaw := degToRad(p.Yaw)
	pitch := degToRad(p.Pitch)
	cp := math.Cos(pitch)
	return Vec3{
		X: math.Sin(yaw) * cp,
		Y: math.Sin(pitch),
		Z: math.Cos(yaw) * cp,
	}
}

// Turn applies additive look deltas. Pitch is clamped on every update to
// avoid gimbal flip; yaw wraps implicitly through the trig in LookDir.
func (p *Player) Turn(dYaw, dPitch float64) {
	p.Yaw += dYaw
	p.Pitch += dPitch
	if p.Pitch > pitchLimitDeg {
		p.Pitch = pitchLimitDeg
	}
	if p.Pitch < -pitchLimitDeg {
		p.Pitch = -pitchLimitDeg
	}
}
