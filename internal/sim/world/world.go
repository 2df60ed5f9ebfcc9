package world

import (
	"fmt"
	"sync/atomic"

	"voxelwalk.dev/internal/protocol"
)

type Config struct {
	ID         string
	TickRateHz int
	Height     int

	// MaxDtScale bounds the per-tick time scale so a stalled frame (e.g. the
	// process paused) cannot destabilize the integrator.
	MaxDtScale float64

	SnapshotEveryTicks int

	Physics Physics
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 30
	}
	if c.Height <= 0 {
		c.Height = 8
	}
	if c.MaxDtScale <= 0 {
		c.MaxDtScale = 3.0
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
	c.Physics.applyDefaults()
}

// World is a single-threaded authoritative simulation: one voxel grid and one
// player pose, advanced tick by tick. All state must be accessed only from
// the world loop goroutine; tests drive StepOnce directly instead.
type World struct {
	cfg  Config
	phys Physics
	grid *Grid

	player Player

	tick atomic.Uint64

	inbox chan InputEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	sessions map[string]*session

	nextSeq uint64 // audit sequencing within a tick

	// Optional recorders (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink chan<- SnapshotState
}

type session struct {
	id       string
	out      chan []byte
	control  bool
	lastFull uint64
}

type JoinRequest struct {
	SessionID string
	Name      string
	Observer  bool
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Err     string // E_* code when the join was refused
}

type InputEnvelope struct {
	SessionID string
	Input     protocol.InputMsg
}

// TickLogEntry is one JSONL record per tick: the inputs applied and the pose
// they produced.
type TickLogEntry struct {
	Tick    uint64              `json:"tick"`
	Inputs  []protocol.InputMsg `json:"inputs,omitempty"`
	Eye     [3]float64          `json:"eye"`
	Yaw     float64             `json:"yaw"`
	Pitch   float64             `json:"pitch"`
	Blocks  int                 `json:"blocks"`
	DtScale float64             `json:"dt_scale"`
}

// EditAuditEntry records one block mutation attempt.
type EditAuditEntry struct {
	Tick     uint64 `json:"tick"`
	Seq      uint64 `json:"seq"`
	Session  string `json:"session,omitempty"`
	Op       string `json:"op"` // "ADD" or "REMOVE"
	Pos      [3]int `json:"pos"`
	Material uint8  `json:"material"`
	OK       bool   `json:"ok"`
	Code     string `json:"code,omitempty"`
}

// SnapshotState is the world's full serializable state, handed to the
// snapshot sink off-thread.
type SnapshotState struct {
	WorldID string
	Tick    uint64

	Width, Height, Depth int
	Cells                []uint16 // grid.CellValues order

	Eye      [3]float64
	Yaw      float64
	Pitch    float64
	VelY     float64
	Grounded bool
	Selected uint8

	TickRateHz int
	Physics    Physics
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry EditAuditEntry) error
}

// New builds a world around an already-constructed grid and spawns the
// player standing on the first open column.
func New(cfg Config, grid *Grid) (*World, error) {
	cfg.applyDefaults()
	if grid == nil {
		return nil, fmt.Errorf("nil grid")
	}
	if grid.Height() != cfg.Height {
		return nil, fmt.Errorf("grid height %d does not match config height %d", grid.Height(), cfg.Height)
	}
	w := &World{
		cfg:      cfg,
		phys:     cfg.Physics,
		grid:     grid,
		inbox:    make(chan InputEnvelope, 256),
		join:     make(chan JoinRequest, 16),
		leave:    make(chan string, 16),
		stop:     make(chan struct{}),
		sessions: map[string]*session{},
	}
	w.spawnPlayer()
	return w, nil
}

func (w *World) spawnPlayer() {
	// First column (row-major) whose body span is clear of blocks.
	for z := 0; z < w.grid.Depth(); z++ {
		for x := 0; x < w.grid.Width(); x++ {
			eyeY := float64(w.grid.GroundLevel(x, z)) + w.cfg.Physics.EyeHeight
			if w.CanOccupyAt(x, z, eyeY) {
				w.player = Player{
					Eye:      Vec3{X: float64(x) + 0.5, Y: eyeY, Z: float64(z) + 0.5},
					Grounded: true,
				}
				return
			}
		}
	}
	// Fully blocked world: spawn above the first column and let gravity sort
	// it out.
	w.player = Player{Eye: Vec3{X: 0.5, Y: float64(w.grid.Height()) + w.cfg.Physics.EyeHeight, Z: 0.5}}
}

func (w *World) SetTickLogger(l TickLogger)              { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)            { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- SnapshotState) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- InputEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest    { return w.join }
func (w *World) Leave() chan<- string        { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) ID() string          { return w.cfg.ID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }

// Grid exposes read-only queries (HasBlock, MaterialAt, ForEachBlock) for
// renderers and tests. Mutation stays behind the input channel.
func (w *World) Grid() *Grid { return w.grid }

// PlayerState returns a copy of the current pose.
func (w *World) PlayerState() Player { return w.player }

// RestorePlayer overwrites the pose; used only when resuming a snapshot,
// before the loop starts.
func (w *World) RestorePlayer(p Player) { w.player = p }

// RestoreTick resumes the tick counter; used only when resuming a snapshot,
// before the loop starts.
func (w *World) RestoreTick(tick uint64) { w.tick.Store(tick) }

func (w *World) snapshotState() SnapshotState {
	p := w.player
	return SnapshotState{
		WorldID:    w.cfg.ID,
		Tick:       w.tick.Load(),
		Width:      w.grid.Width(),
		Height:     w.grid.Height(),
		Depth:      w.grid.Depth(),
		Cells:      w.grid.CellValues(),
		Eye:        [3]float64{p.Eye.X, p.Eye.Y, p.Eye.Z},
		Yaw:        p.Yaw,
		Pitch:      p.Pitch,
		VelY:       p.VelY,
		Grounded:   p.Grounded,
		Selected:   uint8(p.Selected),
		TickRateHz: w.cfg.TickRateHz,
		Physics:    w.cfg.Physics,
	}
}
