package world

import "math"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Center returns the continuous center point of the unit cell at v.
func (v Vec3i) Center() Vec3 {
	return Vec3{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5, Z: float64(v.Z) + 0.5}
}

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s} }

func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// Cell returns the grid cell containing v.
func (v Vec3) Cell() Vec3i {
	return Vec3i{X: floorInt(v.X), Y: floorInt(v.Y), Z: floorInt(v.Z)}
}

func floorInt(f float64) int { return int(math.Floor(f)) }

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
