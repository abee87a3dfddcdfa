package engine

import "time"

// TickSummary is one wildlife-tick record: where the agents stand and
// what the herd is doing.
type TickSummary struct {
	Tick      uint64    `json:"tick"`
	Time      time.Time `json:"time"`
	PlayerX   int       `json:"player_x"`
	PlayerY   int       `json:"player_y"`
	Companion string    `json:"companion"`
	Deer      []DeerRow `json:"deer"`
}

type DeerRow struct {
	ID    int    `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	State string `json:"state"`
}

// TickLogger receives one summary per wildlife tick. Implementations
// must not block the engine; drop instead.
type TickLogger interface {
	WriteTick(TickSummary) error
}

// SetTickLogger installs the tick sink. Call before Run.
func (e *Engine) SetTickLogger(l TickLogger) { e.tickLog = l }

func (e *Engine) emitTickSummary() {
	if e.tickLog == nil {
		return
	}
	px, py := e.player.Pos()
	s := TickSummary{
		Tick:      e.tick,
		Time:      time.Now().UTC(),
		PlayerX:   px,
		PlayerY:   py,
		Companion: string(e.comp.State),
	}
	for _, d := range e.deer.Deer() {
		s.Deer = append(s.Deer, DeerRow{ID: d.ID, X: d.X, Y: d.Y, State: string(d.State)})
	}
	if err := e.tickLog.WriteTick(s); err != nil {
		e.log.Printf("[engine] tick log: %v", err)
	}
}
