package observer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
	"github.com/pthm-cable/hideseek/rng"
)

func initServerConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	override := "batch:\n  num_worlds: 2\n  workers: 1\n"
	if err := os.WriteFile(path, []byte(override), 0644); err != nil {
		t.Fatal(err)
	}
	if err := config.Init(path); err != nil {
		t.Fatal(err)
	}
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(s.wsHandler))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerCommandRoundTrip(t *testing.T) {
	initServerConfig(t)
	b := game.NewBatch(rng.Key{A: 1})
	defer b.Close()

	s := NewServer(slog.Default())
	conn := dialTestServer(t, s)

	for i := 0; i < 3; i++ {
		b.Step()
	}

	msg, _ := json.Marshal(Command{Type: CommandReset, World: 0, Level: 1})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatal(err)
	}

	// The command travels through the socket goroutine; poll until
	// the drain picks it up and the next tick resets the world.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.Drain(b)
		b.Step()
		if b.World(0).CurStep() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := b.World(0).CurStep(); got != 0 {
		t.Fatalf("world 0 never reset, step = %d", got)
	}
	if got := b.World(1).CurStep(); got == 0 {
		t.Error("reset leaked to another world")
	}
}

func TestServerBroadcast(t *testing.T) {
	initServerConfig(t)
	b := game.NewBatch(rng.Key{A: 2})
	defer b.Close()

	s := NewServer(slog.Default())
	conn := dialTestServer(t, s)

	var exports []game.WorldExport
	b.Export(&exports)

	// The handler registers the client before entering its read
	// loop; give it a moment on slow runners.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Broadcast(exports)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var got []game.WorldExport
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != b.NumWorlds() {
		t.Fatalf("snapshot width = %d, want %d", len(got), b.NumWorlds())
	}
	for i, w := range got {
		if w.WorldIndex != uint32(i) {
			t.Errorf("snapshot %d has world index %d", i, w.WorldIndex)
		}
	}
}

func TestApplyIgnoresSlotPastCapacity(t *testing.T) {
	initServerConfig(t)
	b := game.NewBatch(rng.Key{A: 3})
	defer b.Close()

	s := NewServer(slog.Default())

	// The schema caps slots at the table width, but the configured
	// per-world capacity is usually smaller; apply must drop those
	// rather than index past the interface table.
	cmd, err := ParseCommand([]byte(`{"type": "action", "world": 0, "slot": 15, "g": 1}`))
	if err != nil {
		t.Fatalf("schema rejected in-table slot: %v", err)
	}
	s.apply(b, cmd)

	for _, slot := range []int{config.Cfg().Derived.MaxAgentsPerWorld, 99, -1} {
		s.apply(b, Command{Type: CommandAction, World: 0, Slot: slot, X: 5, Y: 5, R: 5})
	}

	// An in-range slot still lands and the batch keeps ticking.
	s.apply(b, Command{Type: CommandAction, World: 0, Slot: 0, X: 10, Y: 5, R: 5})
	b.Step()
}

func TestServerRejectsBadCommand(t *testing.T) {
	initServerConfig(t)

	s := NewServer(slog.Default())
	conn := dialTestServer(t, s)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "bogus"}`)); err != nil {
		t.Fatal(err)
	}

	// The server closes the connection with a policy violation; the
	// next read surfaces it.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("connection stayed open after a bad command")
	}
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("close error = %v, want policy violation", err)
	}
}
