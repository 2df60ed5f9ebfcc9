package world

import (
	"math"

	"voxelwalk.dev/internal/protocol"
)

type pendingEdit struct {
	session  string
	op       string
	material Material
}

// applyMovement applies the continuous part of one INPUT: look deltas,
// horizontal intents, jump. Only the controlling session moves the player.
func (w *World) applyMovement(env *InputEnvelope, dtScale float64) {
	s := w.sessions[env.SessionID]
	if s == nil || !s.control {
		return
	}
	in := &env.Input

	if in.DYaw != 0 || in.DPitch != 0 {
		w.player.Turn(in.DYaw, in.DPitch)
	}

	fwd := clampUnit(in.Forward)
	strafe := clampUnit(in.Strafe)
	if fwd != 0 || strafe != 0 {
		yaw := degToRad(w.player.Yaw)
		sin, cos := math.Sin(yaw), math.Cos(yaw)
		// Forward follows the yaw heading on the ground plane; strafe is its
		// right-hand perpendicular. Pitch never leaks into walking.
		dx := (sin*fwd + cos*strafe) * w.phys.MoveSpeed * dtScale
		dz := (cos*fwd - sin*strafe) * w.phys.MoveSpeed * dtScale
		w.TryMove(dx, dz)
	}

	if in.Jump {
		w.Jump()
	}
}

// applyEdit executes one queued edit command after movement has settled and
// returns the event describing the outcome.
func (w *World) applyEdit(tick uint64, e pendingEdit) map[string]interface{} {
	switch e.op {
	case "remove":
		cell, code := w.RemoveBlockAtLook()
		w.auditEdit(tick, e.session, "REMOVE", cell, 0, code)
		return editEvent(tick, "BLOCK_REMOVED", cell, 0, code)
	case "add":
		m := clampMaterial(e.material)
		cell, code := w.PlaceBlockAtLook(m)
		w.auditEdit(tick, e.session, "ADD", cell, m, code)
		return editEvent(tick, "BLOCK_PLACED", cell, m, code)
	case "pick":
		m, ok := w.PickMaterialAtLook()
		if ok {
			w.player.Selected = m
		}
		ev := map[string]interface{}{"t": tick, "type": "MATERIAL_PICKED", "ok": ok}
		if ok {
			ev["material"] = uint8(m)
			ev["name"] = m.Name()
		}
		return ev
	default:
		return map[string]interface{}{"t": tick, "type": "EDIT_REJECTED", "code": protocol.ErrProtoBadRequest}
	}
}

func editEvent(tick uint64, typ string, cell Vec3i, m Material, code string) map[string]interface{} {
	ev := map[string]interface{}{"t": tick, "type": typ, "ok": code == ""}
	if code == "" {
		ev["pos"] = cell.ToArray()
		ev["material"] = uint8(m)
	} else {
		ev["code"] = code
	}
	return ev
}

func (w *World) auditEdit(tick uint64, session, op string, cell Vec3i, m Material, code string) {
	if w.auditLogger == nil {
		return
	}
	w.nextSeq++
	_ = w.auditLogger.WriteAudit(EditAuditEntry{
		Tick:     tick,
		Seq:      w.nextSeq,
		Session:  session,
		Op:       op,
		Pos:      cell.ToArray(),
		Material: uint8(m),
		OK:       code == "",
		Code:     code,
	})
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
