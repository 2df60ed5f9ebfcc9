package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelwalk.dev/internal/protocol"
)

// A tiny scripted walker: wander, turn now and then, jump when stuck, and
// occasionally carve or place a block at whatever the crosshair hits.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "walker", "client name")
		seed = flag.Int64("seed", 0, "rng seed (0 = time-based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Role:            "player",
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var (
		seq     uint64
		lastEye [3]float64
		stuck   int
	)

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s role=%s world=%s %dx%dx%d tick_rate=%d",
				w.SessionID, w.Role, w.WorldParams.WorldID,
				w.WorldParams.Width, w.WorldParams.Height, w.WorldParams.Depth,
				w.WorldParams.TickRateHz)
			lastEye = w.Player.Eye

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR code=%s msg=%s", e.Code, e.Message)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			seq++
			in := protocol.InputMsg{
				Type:            protocol.TypeInput,
				ProtocolVersion: protocol.Version,
				Seq:             seq,
				Forward:         1,
			}

			// No ground covered since the last frame means a wall; turn, and
			// after a few blocked frames try a jump too.
			if moved(lastEye, st.Player.Eye) {
				stuck = 0
			} else {
				stuck++
			}
			lastEye = st.Player.Eye
			if stuck > 3 {
				in.DYaw = float64(45 + rng.Intn(135))
				in.Jump = true
				stuck = 0
			}

			// Drift the heading a little so the walk is not a straight line.
			if st.Tick%60 == 0 {
				in.DYaw = float64(rng.Intn(61) - 30)
			}

			// Look down for one frame to edit, then level back out.
			if st.Tick%240 == 30 {
				in.DPitch = -25
				if rng.Intn(2) == 0 {
					in.Edit = "remove"
				} else {
					in.Edit = "add"
					in.Material = uint8(rng.Intn(4))
				}
			}
			if st.Tick%240 == 31 {
				in.DPitch = 25
			}

			if err := conn.WriteJSON(in); err != nil {
				return
			}

			for _, ev := range st.Events {
				if t, ok := ev["type"].(string); ok {
					logger.Printf("tick=%d event=%s", st.Tick, t)
				}
			}
		}
	}
}

func moved(a, b [3]float64) bool {
	dx := a[0] - b[0]
	dz := a[2] - b[2]
	return dx*dx+dz*dz > 1e-6
}
