package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelwalk.dev/internal/sim/world"
)

// Tuning is the operator-facing knob file. Zero values fall back to the
// defaults below, so a partial tuning.yaml only overrides what it names.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int     `yaml:"tick_rate_hz"`
	MaxDtScale         float64 `yaml:"max_dt_scale"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks"`

	WorldHeight int `yaml:"world_height"`

	Physics Physics `yaml:"physics"`
}

type Physics struct {
	Gravity      float64 `yaml:"gravity"`
	JumpImpulse  float64 `yaml:"jump_impulse"`
	MaxFallSpeed float64 `yaml:"max_fall_speed"`
	MoveSpeed    float64 `yaml:"move_speed"`
	PlayerHeight float64 `yaml:"player_height"`
	EyeHeight    float64 `yaml:"eye_height"`
	StepHeight   float64 `yaml:"step_height"`
	Reach        float64 `yaml:"reach"`
	MinEditDist  float64 `yaml:"min_edit_dist"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         30,
		MaxDtScale:         3.0,
		SnapshotEveryTicks: 3000,
		WorldHeight:        8,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.TickRateHz < 1 || t.TickRateHz > 240 {
		return fmt.Errorf("tick_rate_hz %d out of range [1,240]", t.TickRateHz)
	}
	if t.WorldHeight < 1 || t.WorldHeight > world.MaxHeight {
		return fmt.Errorf("world_height %d out of range [1,%d]", t.WorldHeight, world.MaxHeight)
	}
	if t.Physics.PlayerHeight < 0 || t.Physics.EyeHeight < 0 {
		return fmt.Errorf("negative player dimensions")
	}
	if t.Physics.EyeHeight > 0 && t.Physics.PlayerHeight > 0 && t.Physics.EyeHeight >= t.Physics.PlayerHeight {
		return fmt.Errorf("eye_height %.2f must be below player_height %.2f", t.Physics.EyeHeight, t.Physics.PlayerHeight)
	}
	return nil
}

// WorldConfig translates the knob file into the simulation's config. Fields
// the file leaves at zero keep the sim defaults.
func (t Tuning) WorldConfig(worldID string) world.Config {
	return world.Config{
		ID:                 worldID,
		TickRateHz:         t.TickRateHz,
		Height:             t.WorldHeight,
		MaxDtScale:         t.MaxDtScale,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		Physics: world.Physics{
			Gravity:       t.Physics.Gravity,
			JumpImpulse:   t.Physics.JumpImpulse,
			MaxFallSpeed:  t.Physics.MaxFallSpeed,
			MoveSpeed:     t.Physics.MoveSpeed,
			PlayerHeight:  t.Physics.PlayerHeight,
			EyeHeight:     t.Physics.EyeHeight,
			StepHeight:    t.Physics.StepHeight,
			ReachDistance: t.Physics.Reach,
			MinEditDist:   t.Physics.MinEditDist,
		},
	}
}
