package world

// Material tags an occupied cell. It is a closed enumeration of small
// integers; the tag is only meaningful where the occupancy bit is set.
type Material uint8

const (
	MatGrass Material = iota
	MatDirt
	MatStone
	MatSand
	MatWood
	MatBrick
	MatSnow
	MatGlass

	materialCount
)

// MaterialPalette maps material ids to stable names, in id order. Renderers
// and the protocol layer use it read-only.
var MaterialPalette = [materialCount]string{
	MatGrass: "GRASS",
	MatDirt:  "DIRT",
	MatStone: "STONE",
	MatSand:  "SAND",
	MatWood:  "WOOD",
	MatBrick: "BRICK",
	MatSnow:  "SNOW",
	MatGlass: "GLASS",
}

func clampMaterial(m Material) Material {
	if m >= materialCount {
		return materialCount - 1
	}
	return m
}

func (m Material) Name() string {
	if m >= materialCount {
		return ""
	}
	return MaterialPalette[m]
}
