package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"voxelwalk.dev/internal/sim/world"
)

func readJSONL(t *testing.T, dir string) []map[string]any {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "expected a single rotated file")

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestTickLoggerWritesCompressedJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	for tick := uint64(0); tick < 3; tick++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{
			Tick:    tick,
			Eye:     [3]float64{0.5, 2.7, 0.5},
			Blocks:  16,
			DtScale: 1,
		}))
	}
	require.NoError(t, l.Close())

	rows := readJSONL(t, filepath.Join(dir, "ticks"))
	require.Len(t, rows, 3)
	require.Equal(t, float64(2), rows[2]["tick"])
	require.Equal(t, float64(16), rows[0]["blocks"])
}

func TestHourBoundaryRotatesFile(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 8, 26, 10, 59, 0, 0, time.UTC)
	l := &jsonlLog{dir: dir, name: "ticks", now: func() time.Time { return clock }}

	require.NoError(t, l.Append(world.TickLogEntry{Tick: 1}))
	clock = clock.Add(2 * time.Minute) // crosses into 11:00
	require.NoError(t, l.Append(world.TickLogEntry{Tick: 2}))
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "ticks-2026-08-26-10.jsonl.zst", entries[0].Name())
	require.Equal(t, "ticks-2026-08-26-11.jsonl.zst", entries[1].Name())
}

func TestAuditLoggerWritesEntries(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)

	require.NoError(t, l.WriteAudit(world.EditAuditEntry{
		Tick:     7,
		Seq:      1,
		Session:  "s1",
		Op:       "ADD",
		Pos:      [3]int{1, 2, 3},
		Material: 4,
		OK:       true,
	}))
	require.NoError(t, l.WriteAudit(world.EditAuditEntry{
		Tick: 7,
		Seq:  2,
		Op:   "REMOVE",
		Code: "E_NO_TARGET",
	}))
	require.NoError(t, l.Close())

	rows := readJSONL(t, filepath.Join(dir, "audit"))
	require.Len(t, rows, 2)
	require.Equal(t, "ADD", rows[0]["op"])
	require.Equal(t, true, rows[0]["ok"])
	require.Equal(t, "E_NO_TARGET", rows[1]["code"])
}
