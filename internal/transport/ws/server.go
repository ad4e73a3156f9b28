// Package ws exposes the viewer endpoint: one WebSocket per viewer,
// HELLO/WELCOME handshake, WATCH messages in, tick/chunk fanout out.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"longwater/internal/protocol"
	"longwater/internal/sim/world"
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
		s.world.AttachViewer(sessionID, out)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. The world closes out on detach.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeWatch {
				continue
			}
			var watch protocol.Watch
			if err := json.Unmarshal(msg, &watch); err != nil {
				continue
			}
			update := world.PoseUpdate{}
			if watch.Z != nil {
				update.Z, update.HasZ = *watch.Z, true
			}
			if watch.Speed != nil {
				update.Speed, update.HasSpeed = *watch.Speed, true
			}
			if update.HasZ || update.HasSpeed {
				s.world.Pose() <- update
			}
		}

		s.world.DetachViewer(sessionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
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

	var hello protocol.Hello
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", nil
	}

	sessionID = uuid.NewString()
	out = make(chan []byte, 64)

	welcome := protocol.Welcome{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         s.world.ID(),
		WorldParams: protocol.WorldParams{
			TickRateHz: s.world.TickRateHz(),
			ChunkSize:  s.world.ChunkSize(),
			Seed:       s.world.Seed(),
		},
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return "", nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return "", nil
	}
	s.logf("[ws] session %s connected (%s)", sessionID, hello.ClientName)
	return sessionID, out
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
