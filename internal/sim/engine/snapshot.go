package engine

import "verdant.world/internal/sim/world"

// Snapshot is a consistent observer view assembled on the engine
// goroutine: agent positions plus a viewport of rendered cells centered
// on the player.
type Snapshot struct {
	Tick uint64

	PlayerX, PlayerY int
	Blocked          string

	CompanionX, CompanionY int
	CompanionState         string

	Deer []DeerSnap

	ViewMinX, ViewMinY int
	ViewW, ViewH       int
	// Cells is row-major, top row first.
	Cells []world.RenderedCell
}

type DeerSnap struct {
	ID    int
	X, Y  int
	State string
}

type snapReq struct {
	viewW, viewH int
	resp         chan Snapshot
}

// SnapshotView builds an observer snapshot on the caller's goroutine.
// Tests and offline tools call it directly; a running engine reaches it
// through RequestSnapshot.
func (e *Engine) SnapshotView(viewW, viewH int) Snapshot {
	if viewW <= 0 {
		viewW = 1
	}
	if viewH <= 0 {
		viewH = 1
	}
	px, py := e.player.Pos()
	s := Snapshot{
		Tick:           e.tick,
		PlayerX:        px,
		PlayerY:        py,
		Blocked:        e.lastBlocked,
		CompanionX:     e.comp.X,
		CompanionY:     e.comp.Y,
		CompanionState: string(e.comp.State),
		ViewMinX:       px - viewW/2,
		ViewMinY:       py - viewH/2,
		ViewW:          viewW,
		ViewH:          viewH,
	}
	for _, d := range e.deer.Deer() {
		s.Deer = append(s.Deer, DeerSnap{ID: d.ID, X: d.X, Y: d.Y, State: string(d.State)})
	}
	s.Cells = make([]world.RenderedCell, 0, viewW*viewH)
	for y := s.ViewMinY; y < s.ViewMinY+viewH; y++ {
		for x := s.ViewMinX; x < s.ViewMinX+viewW; x++ {
			s.Cells = append(s.Cells, e.RenderAt(x, y))
		}
	}
	return s
}

// RequestSnapshot asks the running engine for a snapshot and waits for
// it.
func (e *Engine) RequestSnapshot(viewW, viewH int) Snapshot {
	resp := make(chan Snapshot, 1)
	select {
	case e.snaps <- snapReq{viewW: viewW, viewH: viewH, resp: resp}:
	case <-e.stop:
		return Snapshot{}
	}
	select {
	case s := <-resp:
		return s
	case <-e.stop:
		return Snapshot{}
	}
}
