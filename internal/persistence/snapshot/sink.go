package snapshot

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelwalk.dev/internal/sim/world"
)

// Recorder is notified after a snapshot file lands on disk. Satisfied by the
// sqlite index.
type Recorder interface {
	RecordSnapshot(path string, snap V1)
}

// Sink drains the world's snapshot channel and writes files off the tick
// goroutine. At most Keep recent files are retained.
type Sink struct {
	Dir      string
	Keep     int // <=0 keeps everything
	Recorder Recorder
	Logger   *log.Logger
}

// Run writes snapshots until ctx ends or ch closes. Write failures are logged
// and skipped; a missed snapshot only widens the resume gap.
func (s *Sink) Run(ctx context.Context, ch <-chan world.SnapshotState) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			s.write(st)
		}
	}
}

func (s *Sink) write(st world.SnapshotState) {
	snap := FromState(st)
	path := PathFor(s.Dir, st.Tick)
	if err := Write(path, snap); err != nil {
		if s.Logger != nil {
			s.Logger.Printf("snapshot tick=%d write failed: %v", st.Tick, err)
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Printf("snapshot tick=%d written path=%s blocks=%d", st.Tick, path, nonEmpty(st.Cells))
	}
	if s.Recorder != nil {
		s.Recorder.RecordSnapshot(path, snap)
	}
	s.prune()
}

// prune removes the oldest snapshot files beyond Keep.
func (s *Sink) prune() {
	if s.Keep <= 0 {
		return
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "snap_") && strings.HasSuffix(e.Name(), ".zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.Keep {
		return
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-s.Keep] {
		_ = os.Remove(filepath.Join(s.Dir, n))
	}
}

func nonEmpty(cells []uint16) int {
	n := 0
	for _, c := range cells {
		if c != 0 {
			n++
		}
	}
	return n
}
