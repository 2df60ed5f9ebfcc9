package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelwalk.dev/internal/sim/world"
)

// jsonlLog appends records as zstd-compressed JSON lines, one file per UTC
// hour. Files are opened lazily on the first record of each hour and with
// O_APPEND, so a restart within the hour continues the same file as a new
// zstd frame. Each record is flushed as its own block; a crash loses at most
// the record being written.
type jsonlLog struct {
	dir  string
	name string
	now  func() time.Time // swapped out in tests

	mu       sync.Mutex
	rollOver time.Time // first instant no longer covered by the open file
	f        *os.File
	zw       *zstd.Encoder
	enc      *json.Encoder
}

func (l *jsonlLog) Append(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	if l.f == nil || !now.Before(l.rollOver) {
		if err := l.roll(now); err != nil {
			return err
		}
	}
	if err := l.enc.Encode(v); err != nil {
		return err
	}
	return l.zw.Flush()
}

func (l *jsonlLog) roll(now time.Time) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	hour := now.Truncate(time.Hour)
	path := filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl.zst", l.name, hour.Format("2006-01-02-15")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f, l.zw = f, zw
	l.enc = json.NewEncoder(zw)
	l.rollOver = hour.Add(time.Hour)
	return nil
}

func (l *jsonlLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *jsonlLog) closeLocked() error {
	if l.f == nil {
		return nil
	}
	err := l.zw.Close()
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f, l.zw, l.enc = nil, nil, nil
	l.rollOver = time.Time{}
	return err
}

// TickLogger records the per-tick pose/input trail under <worldDir>/ticks.
type TickLogger struct{ log jsonlLog }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{log: jsonlLog{dir: filepath.Join(worldDir, "ticks"), name: "ticks", now: time.Now}}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.log.Append(v) }
func (l *TickLogger) Close() error                         { return l.log.Close() }

// AuditLogger records every block mutation attempt under <worldDir>/audit.
type AuditLogger struct{ log jsonlLog }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{log: jsonlLog{dir: filepath.Join(worldDir, "audit"), name: "audit", now: time.Now}}
}

func (l *AuditLogger) WriteAudit(v world.EditAuditEntry) error { return l.log.Append(v) }
func (l *AuditLogger) Close() error                            { return l.log.Close() }
