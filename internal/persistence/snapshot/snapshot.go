package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelwalk.dev/internal/sim/world"
)

// Snapshot files are zstd streams holding a one-line JSON header (grep-able
// without a decoder) followed by the gob body.

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type V1 struct {
	Header Header `json:"header"`

	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
	// Cells holds one value per grid cell in CellValues order: 0 for empty,
	// material+1 otherwise.
	Cells []uint16 `json:"cells"`

	Eye      [3]float64 `json:"eye"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	VelY     float64    `json:"vel_y"`
	Grounded bool       `json:"grounded"`
	Selected uint8      `json:"selected"`

	TickRateHz int           `json:"tick_rate_hz"`
	Physics    world.Physics `json:"physics"`
}

// FromState converts the sim's off-thread snapshot payload.
func FromState(s world.SnapshotState) V1 {
	return V1{
		Header:     Header{Version: 1, WorldID: s.WorldID, Tick: s.Tick},
		Width:      s.Width,
		Height:     s.Height,
		Depth:      s.Depth,
		Cells:      s.Cells,
		Eye:        s.Eye,
		Yaw:        s.Yaw,
		Pitch:      s.Pitch,
		VelY:       s.VelY,
		Grounded:   s.Grounded,
		Selected:   s.Selected,
		TickRateHz: s.TickRateHz,
		Physics:    s.Physics,
	}
}

// Grid rebuilds the voxel grid the snapshot captured.
func (v V1) Grid() (*world.Grid, error) {
	return world.GridFromCellValues(v.Width, v.Height, v.Depth, v.Cells)
}

// Player rebuilds the captured pose.
func (v V1) Player() world.Player {
	return world.Player{
		Eye:      world.Vec3{X: v.Eye[0], Y: v.Eye[1], Z: v.Eye[2]},
		Yaw:      v.Yaw,
		Pitch:    v.Pitch,
		VelY:     v.VelY,
		Grounded: v.Grounded,
		Selected: world.Material(v.Selected),
	}
}

func Write(path string, snap V1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (V1, error) {
	var snap V1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; the gob body carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// PathFor names a snapshot file inside dir by its tick.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("snap_%012d.zst", tick))
}

// Latest returns the highest-tick snapshot file in dir, or "" when dir holds
// none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, "snap_") || !strings.HasSuffix(n, ".zst") {
			continue
		}
		if _, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(n, "snap_"), ".zst"), 10, 64); err != nil {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names) // zero-padded ticks sort lexically
	return filepath.Join(dir, names[len(names)-1]), nil
}
