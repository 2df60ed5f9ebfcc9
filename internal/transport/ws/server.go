package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelwalk.dev/internal/protocol"
	"voxelwalk.dev/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second

	// Per-session outgoing queue. The world drops the oldest frame when a
	// session falls behind, so a small queue is enough.
	outQueueSize = 8
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: drains the session queue onto the socket.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: only INPUT goes to the sim; everything else is noise.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeInput {
				continue
			}
			var in protocol.InputMsg
			if err := json.Unmarshal(msg, &in); err != nil {
				continue
			}
			if in.ProtocolVersion != protocol.Version {
				continue
			}
			s.world.Inbox() <- world.InputEnvelope{SessionID: sessionID, Input: in}
		}

		s.world.Leave() <- sessionID
		if s.log != nil {
			s.log.Printf("session=%s disconnected", sessionID)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.writeError(conn, protocol.ErrProtoBadRequest, "malformed HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		s.writeError(conn, protocol.ErrProtoVersion, "unsupported protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}
	switch hello.Role {
	case "":
		hello.Role = "player"
	case "player", "observer":
	default:
		s.writeError(conn, protocol.ErrProtoBadRequest, "unknown role")
		return "", nil
	}

	out = make(chan []byte, outQueueSize)
	id := uuid.NewString()

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		SessionID: id,
		Name:      hello.ClientName,
		Observer:  hello.Role == "observer",
		Out:       out,
		Resp:      respCh,
	}
	resp := <-respCh
	if resp.Err != "" {
		s.writeError(conn, resp.Err, "")
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- id
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("session=%s name=%q role=%s joined", id, hello.ClientName, resp.Welcome.Role)
	}
	return id, out
}

func (s *Server) writeError(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
