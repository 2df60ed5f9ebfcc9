package world

import (
	"context"
	"time"
)

// Run drives the world at the configured tick rate. It is the only goroutine
// that touches the grid and the player; everything else talks to it through
// channels.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingInputs []InputEnvelope
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			delete(w.sessions, id)
		case env := <-w.inbox:
			pendingInputs = append(pendingInputs, env)
		case now := <-ticker.C:
			// Frame-rate independence: scale this tick by real elapsed time,
			// clamped so a stalled process cannot explode the integrator.
			dtScale := now.Sub(last).Seconds() / interval.Seconds()
			if dtScale > w.cfg.MaxDtScale {
				dtScale = w.cfg.MaxDtScale
			}
			if dtScale <= 0 {
				dtScale = 1
			}
			last = now
			w.step(dtScale, pendingInputs)
			pendingInputs = pendingInputs[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick with the same semantics as
// the server loop. Intended for deterministic tests and replays.
func (w *World) StepOnce(dtScale float64, inputs []InputEnvelope) uint64 {
	tick := w.tick.Load()
	w.step(dtScale, inputs)
	return tick
}

func (w *World) step(dtScale float64, inputs []InputEnvelope) {
	tick := w.tick.Load()
	w.nextSeq = 0

	// Movement first, edits after: the edit rays must see the settled pose.
	var edits []pendingEdit
	for i := range inputs {
		env := &inputs[i]
		w.applyMovement(env, dtScale)
		if env.Input.Edit != "" {
			if s := w.sessions[env.SessionID]; s != nil && s.control {
				edits = append(edits, pendingEdit{
					session:  env.SessionID,
					op:       env.Input.Edit,
					material: Material(env.Input.Material),
				})
			}
		}
	}

	// Vertical integration runs every tick even without input: gravity acts.
	w.StepVertical(dtScale)

	var events []map[string]interface{}
	for _, e := range edits {
		events = append(events, w.applyEdit(tick, e))
	}

	w.broadcastState(tick, events)

	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:    tick,
			Eye:     [3]float64{w.player.Eye.X, w.player.Eye.Y, w.player.Eye.Z},
			Yaw:     w.player.Yaw,
			Pitch:   w.player.Pitch,
			Blocks:  w.grid.BlockCount(),
			DtScale: dtScale,
		}
		for _, env := range inputs {
			entry.Inputs = append(entry.Inputs, env.Input)
		}
		_ = w.tickLogger.WriteTick(entry)
	}

	next := tick + 1
	w.tick.Store(next)

	if w.snapshotSink != nil && next%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.snapshotState():
		default:
			// Snapshot writer is behind; skip rather than stall the tick.
		}
	}
}
