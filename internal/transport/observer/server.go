// Package observer serves the loopback observer surface: a bootstrap
// endpoint with the world parameters and a websocket that streams frames
// and accepts commands.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"verdant.world/internal/protocol"
	"verdant.world/internal/sim/engine"
	"verdant.world/internal/sim/world"
)

type Server struct {
	eng *engine.Engine
	log *log.Logger

	// FrameInterval is how often a connected observer receives a frame.
	FrameInterval time.Duration
	// ViewW and ViewH size the streamed viewport.
	ViewW, ViewH int

	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, logger *log.Logger) *Server {
	return &Server{
		eng:           eng,
		log:           logger,
		FrameInterval: 200 * time.Millisecond,
		ViewW:         41,
		ViewH:         21,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// welcome reads the world shape on the engine goroutine; the terrain
// table and the seed can change under a regenerate command.
func (s *Server) welcome() (protocol.Welcome, error) {
	var msg protocol.Welcome
	err := s.eng.Inspect(func() { msg = s.buildWelcome() })
	return msg, err
}

func (s *Server) buildWelcome() protocol.Welcome {
	w := s.eng.World()
	b := w.Bounds()
	msg := protocol.Welcome{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Seed:            w.Seed(),
		Bounds: protocol.BoundsParam{
			MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY,
		},
	}
	kinds := w.Kinds()
	names := make([]world.TerrainKind, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, k := range names {
		info := kinds[k]
		msg.Terrains = append(msg.Terrains, protocol.KindParam{
			Name:        k.String(),
			Symbol:      info.Symbol,
			StyleTag:    info.StyleTag,
			DisplayName: info.DisplayName,
			Walkable:    info.Walkable,
		})
	}
	return msg
}

// BootstrapHandler answers a plain GET with the welcome parameters, for
// tools that want the world shape without holding a socket open.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		msg, err := s.welcome()
		if err != nil {
			http.Error(rw, "engine unavailable", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(msg)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send HELLO first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello protocol.Hello
		if err := json.Unmarshal(msg, &hello); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad hello"), time.Now().Add(time.Second))
			return
		}
		if hello.Type != protocol.TypeHello || hello.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 64)
		enqueue := func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case out <- b:
			default:
				// Slow observer: drop the frame, keep the stream live.
			}
		}

		wmsg, err := s.welcome()
		if err != nil {
			return
		}
		enqueue(wmsg)

		// Writer goroutine: frames on a ticker plus queued results.
		writeErr := make(chan error, 1)
		go func() {
			ticker := time.NewTicker(s.FrameInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				case <-ticker.C:
					snap := s.eng.RequestSnapshot(s.ViewW, s.ViewH)
					b, err := json.Marshal(frameFromSnapshot(snap))
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: accept commands.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCommand {
				continue
			}
			var cm protocol.CommandMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				enqueue(protocol.ResultMsg{
					Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
					OK: false, Message: "bad command", Code: protocol.ErrProtoBadRequest,
				})
				continue
			}
			res := s.eng.Submit(engine.Command{
				Kind:    engine.CommandKind(cm.Kind),
				DX:      cm.DX,
				DY:      cm.DY,
				Name:    cm.Name,
				Section: cm.Section,
				Values:  cm.Values,
				Seed:    cm.Seed,
			})
			enqueue(protocol.ResultMsg{
				Type:            protocol.TypeResult,
				ProtocolVersion: protocol.Version,
				ID:              cm.ID,
				OK:              res.OK,
				Message:         res.Message,
				Code:            resultCode(res),
			})
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func frameFromSnapshot(snap engine.Snapshot) protocol.Frame {
	f := protocol.Frame{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            snap.Tick,
		Player:          protocol.AgentParam{X: snap.PlayerX, Y: snap.PlayerY},
		Companion: protocol.AgentParam{
			X: snap.CompanionX, Y: snap.CompanionY, State: snap.CompanionState,
		},
		ViewMinX: snap.ViewMinX,
		ViewMinY: snap.ViewMinY,
		ViewW:    snap.ViewW,
		ViewH:    snap.ViewH,
		Cells:    snap.Cells,
		Blocked:  snap.Blocked,
	}
	for _, d := range snap.Deer {
		f.Deer = append(f.Deer, protocol.AgentParam{X: d.X, Y: d.Y, State: d.State})
	}
	return f
}

func resultCode(res engine.Result) string {
	if res.OK {
		return ""
	}
	var cerr *world.ConfigError
	var merr *world.ModuleError
	switch {
	case res.Err == nil:
		// Refused moves carry a reason but no error value.
		return protocol.ErrBlocked
	case errors.Is(res.Err, world.ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.As(res.Err, &cerr):
		return protocol.ErrBadConfig
	case errors.As(res.Err, &merr):
		return protocol.ErrModuleFailed
	}
	return protocol.ErrBadRequest
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
