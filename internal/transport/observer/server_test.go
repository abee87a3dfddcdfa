package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"verdant.world/internal/protocol"
	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/engine"
	"verdant.world/internal/sim/world"
)

func startEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.World.Seed = 42
	cfg.World.MinX, cfg.World.MaxX = -40, 40
	cfg.World.MinY, cfg.World.MaxY = -40, 40
	w, err := world.New(cfg, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	if err := w.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	e := engine.New(w, cfg, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func TestBootstrapServesWelcome(t *testing.T) {
	e := startEngine(t)
	s := NewServer(e, log.New(io.Discard, "", 0))
	srv := httptest.NewServer(s.BootstrapHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var w protocol.Welcome
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Type != protocol.TypeWelcome || w.Seed != 42 {
		t.Fatalf("welcome = %+v", w)
	}
	if len(w.Terrains) == 0 {
		t.Fatal("no terrain kinds in welcome")
	}
}

func TestWSStreamAndCommands(t *testing.T) {
	e := startEngine(t)
	s := NewServer(e, log.New(io.Discard, "", 0))
	s.FrameInterval = 30 * time.Millisecond
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.Hello{Type: protocol.TypeHello, ProtocolVersion: protocol.Version}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	cmd := protocol.CommandMsg{
		Type: protocol.TypeCommand, ProtocolVersion: protocol.Version,
		ID: "C1", Kind: string(engine.CmdToggleDeerDebug),
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write cmd: %v", err)
	}

	var sawWelcome, sawFrame, sawResult bool
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !(sawWelcome && sawFrame && sawResult) {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode base: %v", err)
		}
		switch base.Type {
		case protocol.TypeWelcome:
			sawWelcome = true
		case protocol.TypeFrame:
			var f protocol.Frame
			if err := json.Unmarshal(msg, &f); err != nil {
				t.Fatalf("unmarshal frame: %v", err)
			}
			if len(f.Cells) != f.ViewW*f.ViewH {
				t.Fatalf("frame has %d cells for %dx%d view", len(f.Cells), f.ViewW, f.ViewH)
			}
			sawFrame = true
		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				t.Fatalf("unmarshal result: %v", err)
			}
			if r.ID != "C1" || !r.OK {
				t.Fatalf("result = %+v", r)
			}
			sawResult = true
		}
	}
	if !sawWelcome || !sawFrame || !sawResult {
		t.Fatalf("stream incomplete: welcome=%v frame=%v result=%v", sawWelcome, sawFrame, sawResult)
	}
}

func TestWSRejectsBadHandshake(t *testing.T) {
	e := startEngine(t)
	s := NewServer(e, log.New(io.Discard, "", 0))
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "NOPE"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) &&
				!websocket.IsUnexpectedCloseError(err) && err != io.EOF {
				t.Fatalf("unexpected read error: %v", err)
			}
			return
		}
	}
}
