package world

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"voxelwalk.dev/internal/protocol"
	simenc "voxelwalk.dev/internal/sim/encoding"
)

// joinWorld registers a session directly, bypassing the channel loop. Tests
// that exercise the loop itself go through Join().
func joinWorld(t *testing.T, w *World, id string, observer bool) chan []byte {
	t.Helper()
	out := make(chan []byte, 8)
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{SessionID: id, Observer: observer, Out: out, Resp: resp})
	r := <-resp
	if r.Err != "" {
		t.Fatalf("join %s refused: %s", id, r.Err)
	}
	return out
}

func readState(t *testing.T, out chan []byte) protocol.StateMsg {
	t.Helper()
	select {
	case b := <-out:
		var msg protocol.StateMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("bad state frame: %v", err)
		}
		if msg.Type != protocol.TypeState {
			t.Fatalf("frame type = %q, want %s", msg.Type, protocol.TypeState)
		}
		return msg
	default:
		t.Fatalf("no state frame queued")
		return protocol.StateMsg{}
	}
}

func TestSecondControllerRefused(t *testing.T) {
	w := testWorld(t, "11\n11\n", 6)
	joinWorld(t, w, "p1", false)

	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{SessionID: "p2", Out: make(chan []byte, 1), Resp: resp})
	if r := <-resp; r.Err != protocol.ErrWorldBusy {
		t.Fatalf("second controller err = %q, want %s", r.Err, protocol.ErrWorldBusy)
	}

	// Observers are always welcome.
	joinWorld(t, w, "o1", true)
}

func TestWelcomeDescribesWorld(t *testing.T) {
	w := testWorld(t, "121\n121\n", 6)
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{SessionID: "p1", Out: make(chan []byte, 1), Resp: resp})
	r := <-resp
	if r.Err != "" {
		t.Fatalf("join refused: %s", r.Err)
	}
	wp := r.Welcome.WorldParams
	if wp.Width != 3 || wp.Height != 6 || wp.Depth != 2 {
		t.Fatalf("world params = %+v", wp)
	}
	if r.Welcome.Role != "player" {
		t.Fatalf("role = %q, want player", r.Welcome.Role)
	}
	if len(r.Welcome.Materials) != len(MaterialPalette) {
		t.Fatalf("materials = %v", r.Welcome.Materials)
	}
	if !r.Welcome.Player.Grounded {
		t.Fatalf("welcome pose not grounded: %+v", r.Welcome.Player)
	}
	want := [3]float64{w.player.Eye.X, w.player.Eye.Y, w.player.Eye.Z}
	if r.Welcome.Player.Eye != want {
		t.Fatalf("welcome eye = %v, want %v", r.Welcome.Player.Eye, want)
	}
}

func TestStepOnceMovesControllerAndBroadcasts(t *testing.T) {
	w := testWorld(t, "1111\n1111\n1111\n1111\n", 6)
	out := joinWorld(t, w, "p1", false)
	startZ := w.player.Eye.Z

	tick := w.StepOnce(1.0, []InputEnvelope{{
		SessionID: "p1",
		Input:     protocol.InputMsg{Type: protocol.TypeInput, Forward: 1},
	}})
	if tick != 0 || w.CurrentTick() != 1 {
		t.Fatalf("tick = %d, current = %d", tick, w.CurrentTick())
	}
	if w.player.Eye.Z <= startZ {
		t.Fatalf("forward input ignored: z %v -> %v", startZ, w.player.Eye.Z)
	}

	// First frame carries the full voxel payload.
	msg := readState(t, out)
	if msg.Tick != 0 {
		t.Fatalf("state tick = %d, want 0", msg.Tick)
	}
	if msg.Voxels == nil || msg.Voxels.Encoding != "RLE" {
		t.Fatalf("first frame missing voxel refresh: %+v", msg.Voxels)
	}
	cells, err := simenc.DecodeRLE(msg.Voxels.Data)
	if err != nil {
		t.Fatalf("voxel payload: %v", err)
	}
	if len(cells) != 4*6*4 {
		t.Fatalf("decoded %d cells, want %d", len(cells), 4*6*4)
	}
	if msg.Player.Eye[2] != w.player.Eye.Z {
		t.Fatalf("broadcast pose stale: %v vs %v", msg.Player.Eye[2], w.player.Eye.Z)
	}

	// Subsequent frames are slim until the next scheduled refresh.
	w.StepOnce(1.0, nil)
	if msg := readState(t, out); msg.Voxels != nil {
		t.Fatalf("second frame repeated the voxel payload")
	}
}

func TestObserverInputIgnored(t *testing.T) {
	w := testWorld(t, "1111\n1111\n", 6)
	joinWorld(t, w, "p1", false)
	joinWorld(t, w, "spectator", true)
	pose := w.player
	blocks := w.grid.BlockCount()

	w.StepOnce(1.0, []InputEnvelope{{
		SessionID: "spectator",
		Input:     protocol.InputMsg{Type: protocol.TypeInput, Forward: 1, Edit: "remove"},
	}})

	if w.player != pose {
		t.Fatalf("observer input moved the player: %+v -> %+v", pose, w.player)
	}
	if w.grid.BlockCount() != blocks {
		t.Fatalf("observer edit mutated the grid")
	}
}

type captureTickLog struct{ entries []TickLogEntry }

func (c *captureTickLog) WriteTick(e TickLogEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

type captureAuditLog struct{ entries []EditAuditEntry }

func (c *captureAuditLog) WriteAudit(e EditAuditEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestEditProducesEventAndAudit(t *testing.T) {
	w := testWorld(t, "111111\n111111\n", 6)
	out := joinWorld(t, w, "p1", false)
	tickLog := &captureTickLog{}
	auditLog := &captureAuditLog{}
	w.SetTickLogger(tickLog)
	w.SetAuditLogger(auditLog)

	w.grid.SetBlock(4, 1, 0, true, MatBrick)
	placePlayer(w, 0, 0)
	w.player.Yaw = 90
	w.player.Pitch = -15

	w.StepOnce(1.0, []InputEnvelope{{
		SessionID: "p1",
		Input:     protocol.InputMsg{Type: protocol.TypeInput, Edit: "remove"},
	}})

	if w.grid.HasBlock(4, 1, 0) {
		t.Fatalf("edit not applied")
	}

	msg := readState(t, out)
	if len(msg.Events) != 1 {
		t.Fatalf("events = %v, want one", msg.Events)
	}
	ev := msg.Events[0]
	if ev["type"] != "BLOCK_REMOVED" || ev["ok"] != true {
		t.Fatalf("event = %v", ev)
	}

	if len(auditLog.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditLog.entries))
	}
	a := auditLog.entries[0]
	if a.Op != "REMOVE" || !a.OK || a.Pos != [3]int{4, 1, 0} || a.Seq != 1 {
		t.Fatalf("audit = %+v", a)
	}

	if len(tickLog.entries) != 1 || tickLog.entries[0].Tick != 0 {
		t.Fatalf("tick log = %+v", tickLog.entries)
	}
	if tickLog.entries[0].Blocks != w.grid.BlockCount() {
		t.Fatalf("tick log block count stale: %d vs %d", tickLog.entries[0].Blocks, w.grid.BlockCount())
	}
}

func TestSnapshotSinkFiresOnSchedule(t *testing.T) {
	g, err := ParseLayout("11\n11\n", 6)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	w, err := New(Config{Height: 6, SnapshotEveryTicks: 2}, g)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	sink := make(chan SnapshotState, 1)
	w.SetSnapshotSink(sink)

	w.StepOnce(1.0, nil)
	select {
	case s := <-sink:
		t.Fatalf("snapshot before schedule: tick %d", s.Tick)
	default:
	}

	w.StepOnce(1.0, nil)
	select {
	case s := <-sink:
		if s.Tick != 2 {
			t.Fatalf("snapshot tick = %d, want 2", s.Tick)
		}
		if len(s.Cells) != 2*6*2 {
			t.Fatalf("snapshot cells = %d", len(s.Cells))
		}
	default:
		t.Fatalf("no snapshot at the scheduled tick")
	}
}

func TestRunServesJoinInputLeave(t *testing.T) {
	w := testWorld(t, "1111\n1111\n", 6)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(context.Background()) }()

	out := make(chan []byte, 8)
	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{SessionID: "p1", Out: out, Resp: resp}
	r := <-resp
	if r.Err != "" {
		t.Fatalf("join refused: %s", r.Err)
	}

	w.Inbox() <- InputEnvelope{SessionID: "p1", Input: protocol.InputMsg{Type: protocol.TypeInput, Forward: 1}}

	select {
	case b := <-out:
		var msg protocol.StateMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no state frame from the running loop")
	}

	w.Leave() <- "p1"
	w.Stop()
	if err := <-errc; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestRunHonorsContext(t *testing.T) {
	w := testWorld(t, "11\n11\n", 6)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop on cancel")
	}
}
