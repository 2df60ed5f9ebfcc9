package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeTuning(t, `
tick_rate_hz: 60
world_height: 16
physics:
  move_speed: 0.2
  step_height: 0.5
`)
	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.TickRateHz != 60 || tn.WorldHeight != 16 {
		t.Fatalf("overrides not applied: %+v", tn)
	}
	// Untouched knobs keep their defaults.
	if tn.SnapshotEveryTicks != 3000 || tn.ProtocolVersion != "1.0" {
		t.Fatalf("defaults lost: %+v", tn)
	}

	cfg := tn.WorldConfig("world_test")
	if cfg.ID != "world_test" || cfg.TickRateHz != 60 || cfg.Height != 16 {
		t.Fatalf("world config: %+v", cfg)
	}
	if cfg.Physics.MoveSpeed != 0.2 || cfg.Physics.StepHeight != 0.5 {
		t.Fatalf("physics mapping: %+v", cfg.Physics)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"tick rate":  "tick_rate_hz: 0\n",
		"height":     "world_height: 99\n",
		"eye height": "physics: {player_height: 1.5, eye_height: 1.5}\n",
		"yaml":       "tick_rate_hz: [not a number\n",
	}
	for name, body := range cases {
		if _, err := Load(writeTuning(t, body)); err == nil {
			t.Fatalf("%s: bad tuning accepted", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
