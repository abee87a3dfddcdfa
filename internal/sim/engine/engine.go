// Package engine is the game shell: it owns the player, the wildlife and
// companion managers, the command surface, and the tick loop that drives
// them. Everything mutates on the engine goroutine; callers talk to a
// running engine through Submit.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"verdant.world/internal/sim/companion"
	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/entity"
	"verdant.world/internal/sim/wildlife"
	"verdant.world/internal/sim/world"
)

// Engine wires the world, the player, and the agent managers together.
type Engine struct {
	w    *world.World
	cfg  config.Config
	log  *log.Logger
	deer *wildlife.Manager
	comp *companion.Companion

	player *entity.Movable
	// lastBlocked is the most recent refused-move message, for the UI.
	lastBlocked string

	tick uint64

	tickLog TickLogger

	reqs     chan request
	snaps    chan snapReq
	calls    chan call
	stop     chan struct{}
	stopOnce sync.Once
}

type request struct {
	cmd  Command
	resp chan Result
}

type call struct {
	fn   func()
	done chan struct{}
}

// New builds an engine over an initialized world. The player spawns at
// the configured default position, nudged to the nearest open cell if
// that position is blocked; the companion starts beside the player.
func New(w *world.World, cfg config.Config, logger *log.Logger) *Engine {
	e := &Engine{
		w:     w,
		cfg:   cfg,
		log:   logger,
		reqs:  make(chan request, 16),
		snaps: make(chan snapReq, 4),
		calls: make(chan call, 4),
		stop:  make(chan struct{}),
	}
	wc := cfg.GetWorldConfig()
	px, py := e.openCellNear(wc.DefaultPlayerX, wc.DefaultPlayerY)
	if px != wc.DefaultPlayerX || py != wc.DefaultPlayerY {
		logger.Printf("[engine] default spawn (%d,%d) blocked, player at (%d,%d)",
			wc.DefaultPlayerX, wc.DefaultPlayerY, px, py)
	}
	e.player = entity.NewMovable(w, px, py, entity.DefaultPlayerRules())
	e.player.SetBlockedHandler(func(x, y int, reason string) {
		e.lastBlocked = reason
		logger.Printf("[engine] move to (%d,%d) blocked: %s", x, y, reason)
	})
	w.MarkDiscovered(px, py)

	cx, cy := e.openCellNear(px+1, py)
	e.comp = companion.New(w, cx, cy, cfg.GetCompanionConfig(), logger)

	e.deer = wildlife.NewManager(w, cfg.GetWildlifeConfig(), cfg.GetPerformanceConfig(), logger)
	e.deer.Spawn()
	return e
}

// openCellNear spirals out from (x, y) to the nearest walkable non-water
// cell. Falls back to the origin cell if the search radius runs out.
func (e *Engine) openCellNear(x, y int) (int, int) {
	for r := 0; r <= 25; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if maxAbs(dx, dy) != r {
					continue
				}
				c := e.w.GetTerrainAt(x+dx, y+dy)
				if c.Walkable && c.Terrain != world.River && c.Terrain != world.Lake && c.Terrain != world.Unknown {
					return x + dx, y + dy
				}
			}
		}
	}
	return x, y
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// Run drives the two agent tickers and the command queue until the
// context ends or Stop is called. Commands apply between agent ticks, so
// a tick never observes a half-applied command.
func (e *Engine) Run(ctx context.Context) error {
	perf := e.cfg.GetPerformanceConfig()
	deerTicker := time.NewTicker(time.Duration(perf.DeerTickMs) * time.Millisecond)
	defer deerTicker.Stop()
	compTicker := time.NewTicker(time.Duration(perf.CompanionTickMs) * time.Millisecond)
	defer compTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.reqs:
			res := e.Apply(req.cmd)
			if req.resp != nil {
				req.resp <- res
			}
		case sr := <-e.snaps:
			sr.resp <- e.SnapshotView(sr.viewW, sr.viewH)
		case c := <-e.calls:
			c.fn()
			close(c.done)
		case <-deerTicker.C:
			e.StepDeer()
		case <-compTicker.C:
			e.StepCompanion()
		}
	}
}

func (e *Engine) Stop() { e.stopOnce.Do(func() { close(e.stop) }) }

// Submit queues a command for the running engine and waits for the
// result.
func (e *Engine) Submit(cmd Command) Result {
	resp := make(chan Result, 1)
	select {
	case e.reqs <- request{cmd: cmd, resp: resp}:
	case <-e.stop:
		return Result{Err: fmt.Errorf("engine stopped")}
	}
	select {
	case res := <-resp:
		return res
	case <-e.stop:
		return Result{Err: fmt.Errorf("engine stopped")}
	}
}

// Inspect runs fn on the engine goroutine, serialized with agent ticks
// and commands. Off-loop readers of the world or the agents must go
// through here: the cell map grows lazily during ticks.
func (e *Engine) Inspect(fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case e.calls <- c:
	case <-e.stop:
		return fmt.Errorf("engine stopped")
	}
	select {
	case <-c.done:
		return nil
	case <-e.stop:
		return fmt.Errorf("engine stopped")
	}
}

// StepDeer runs one wildlife tick against the current player snapshot.
func (e *Engine) StepDeer() {
	e.tick++
	px, py := e.player.Pos()
	e.deer.Tick(px, py)
	e.emitTickSummary()
}

// StepCompanion runs one companion tick.
func (e *Engine) StepCompanion() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Printf("[engine] companion tick panic: %v", r)
		}
	}()
	px, py := e.player.Pos()
	e.comp.Tick(px, py)
}

// Tick is the number of completed wildlife ticks.
func (e *Engine) Tick() uint64 { return e.tick }

func (e *Engine) World() *world.World             { return e.w }
func (e *Engine) Config() config.Config           { return e.cfg }
func (e *Engine) Player() *entity.Movable         { return e.player }
func (e *Engine) Companion() *companion.Companion { return e.comp }
func (e *Engine) Wildlife() *wildlife.Manager     { return e.deer }

// LastBlocked is the most recent refused-move message, empty if the last
// move succeeded.
func (e *Engine) LastBlocked() string { return e.lastBlocked }

// RenderAt composes the fully decorated cell: terrain, deer overlay,
// companion overlay, and the player marker.
func (e *Engine) RenderAt(x, y int) world.RenderedCell {
	cell := e.w.RenderAt(x, y)
	cell = e.deer.Decorate(x, y, cell)
	cell = e.comp.Overlay(x, y, cell)
	return cell
}

// PlayerAt reports whether the player stands on the cell.
func (e *Engine) PlayerAt(x, y int) bool {
	px, py := e.player.Pos()
	return px == x && py == y
}
