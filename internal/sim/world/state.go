package world

import (
	"encoding/json"

	"voxelwalk.dev/internal/protocol"
	simenc "voxelwalk.dev/internal/sim/encoding"
)

// Observers get a full voxel refresh this often; in between, edits arrive as
// events and the grid is otherwise immutable.
const fullVoxelsEveryTicks = 600

func (w *World) handleJoin(req JoinRequest) {
	role := "observer"
	if !req.Observer {
		if w.controllingSession() != nil {
			req.Resp <- JoinResponse{Err: protocol.ErrWorldBusy}
			return
		}
		role = "player"
	}

	w.sessions[req.SessionID] = &session{
		id:      req.SessionID,
		out:     req.Out,
		control: role == "player",
	}

	req.Resp <- JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       req.SessionID,
		Role:            role,
		WorldParams: protocol.WorldParams{
			WorldID:    w.cfg.ID,
			Width:      w.grid.Width(),
			Height:     w.grid.Height(),
			Depth:      w.grid.Depth(),
			TickRateHz: w.cfg.TickRateHz,
			StepHeight: w.phys.StepHeight,
			Reach:      w.phys.ReachDistance,
		},
		Materials: MaterialPalette[:],
		Player:    w.playerMsg(),
	}}
}

func (w *World) controllingSession() *session {
	for _, s := range w.sessions {
		if s.control {
			return s
		}
	}
	return nil
}

func (w *World) playerMsg() protocol.PlayerState {
	p := w.player
	return protocol.PlayerState{
		Eye:      [3]float64{p.Eye.X, p.Eye.Y, p.Eye.Z},
		Yaw:      p.Yaw,
		Pitch:    p.Pitch,
		VelY:     p.VelY,
		Grounded: p.Grounded,
		Selected: uint8(p.Selected),
	}
}

func (w *World) broadcastState(tick uint64, events []map[string]interface{}) {
	if len(w.sessions) == 0 {
		return
	}

	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Player:          w.playerMsg(),
	}
	for _, ev := range events {
		msg.Events = append(msg.Events, protocol.Event(ev))
	}

	// Voxel payload is shared by every session that needs a refresh this tick.
	var voxels *protocol.VoxelsMsg
	needFull := func(s *session) bool {
		return s.lastFull == 0 || tick-s.lastFull >= fullVoxelsEveryTicks
	}
	for _, s := range w.sessions {
		if needFull(s) {
			voxels = &protocol.VoxelsMsg{
				Width:    w.grid.Width(),
				Height:   w.grid.Height(),
				Depth:    w.grid.Depth(),
				Encoding: "RLE",
				Data:     simenc.EncodeRLE(w.grid.CellValues()),
			}
			break
		}
	}

	var slim []byte
	for _, s := range w.sessions {
		var b []byte
		if needFull(s) {
			msg.Voxels = voxels
			b, _ = json.Marshal(msg)
			msg.Voxels = nil
			s.lastFull = tick + 1 // +1 so tick 0 counts as refreshed
		} else {
			if slim == nil {
				slim, _ = json.Marshal(msg)
			}
			b = slim
		}
		sendLatest(s.out, b)
	}
}

// sendLatest delivers b without blocking the tick: if the session's queue is
// full, the oldest frame is dropped in its favor.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
