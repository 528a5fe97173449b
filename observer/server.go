// Package observer serves live world snapshots over websockets and
// accepts reset/action commands from attached debug clients.
package observer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
)

// Command is a validated inbound control message, applied by the run
// loop at the next tick boundary.
type Command struct {
	Type  string `json:"type"`
	World int    `json:"world"`
	Level int32  `json:"level,omitempty"`
	Slot  int    `json:"slot,omitempty"`
	X     int32  `json:"x,omitempty"`
	Y     int32  `json:"y,omitempty"`
	R     int32  `json:"r,omitempty"`
	G     int32  `json:"g,omitempty"`
	L     int32  `json:"l,omitempty"`
}

const (
	CommandReset  = "reset"
	CommandAction = "action"
)

// Server fans world snapshots out to connected clients and queues
// their commands for the simulation loop.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte

	commands chan Command

	httpServer *http.Server
}

// NewServer creates an observer server. Call Serve to start listening.
func NewServer(log *slog.Logger) *Server {
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]chan []byte),
		commands: make(chan Command, 256),
	}
}

// Serve listens on addr until Shutdown. Blocks.
func (s *Server) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener and closes every client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}

	out := make(chan []byte, 8)
	s.mu.Lock()
	s.clients[conn] = out
	s.mu.Unlock()

	s.log.Info("observer connected", "remote", r.RemoteAddr)

	go s.writeLoop(conn, out)
	s.readLoop(conn)

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	close(out)
	conn.Close()

	s.log.Info("observer disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(conn *websocket.Conn, out chan []byte) {
	for msg := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		cmd, err := ParseCommand(msg)
		if err != nil {
			s.log.Warn("rejected observer command", "error", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad command"),
				time.Now().Add(time.Second))
			return
		}

		select {
		case s.commands <- cmd:
		default:
			s.log.Warn("observer command queue full, dropping", "type", cmd.Type)
		}
	}
}

// Broadcast sends the batch snapshot to every connected client. Slow
// clients skip frames rather than stalling the simulation.
func (s *Server) Broadcast(exports []game.WorldExport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) == 0 {
		return
	}

	msg, err := json.Marshal(exports)
	if err != nil {
		s.log.Error("encoding snapshot", "error", err)
		return
	}

	for _, out := range s.clients {
		select {
		case out <- msg:
		default:
		}
	}
}

// Drain applies every queued command to the batch. Called by the run
// loop between ticks.
func (s *Server) Drain(b *game.Batch) {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(b, cmd)
		default:
			return
		}
	}
}

func (s *Server) apply(b *game.Batch, cmd Command) {
	if cmd.World < 0 || cmd.World >= b.NumWorlds() {
		s.log.Warn("command for unknown world", "world", cmd.World)
		return
	}

	switch cmd.Type {
	case CommandReset:
		level := cmd.Level
		if level == 0 {
			// Omitted level means a plain procedural reset.
			level = 1
		}
		b.TriggerReset(cmd.World, level)
	case CommandAction:
		if cmd.Slot < 0 || cmd.Slot >= config.Cfg().Derived.MaxAgentsPerWorld {
			s.log.Warn("command for unknown agent slot", "slot", cmd.Slot)
			return
		}
		b.SetAction(cmd.World, cmd.Slot, componentsAction(cmd))
	}
}
