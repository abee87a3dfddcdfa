package engine

import (
	"fmt"

	"verdant.world/internal/sim/config"
)

// CommandKind names one operation on the command surface.
type CommandKind string

const (
	CmdMovePlayer       CommandKind = "move_player"
	CmdCallCompanion    CommandKind = "call_companion"
	CmdToggleDeerDebug  CommandKind = "toggle_deer_debug"
	CmdRegenerateWorld  CommandKind = "regenerate_world"
	CmdRegenerateModule CommandKind = "regenerate_module"
	CmdGeologicalPreset CommandKind = "geological_preset"
	CmdElevationPreset  CommandKind = "elevation_preset"
	CmdWaterPreset      CommandKind = "water_preset"
	CmdUpdateConfig     CommandKind = "update_config"
	CmdRespawnDeer      CommandKind = "respawn_deer"
)

// Command is one request against the engine. Only the fields the kind
// needs are read.
type Command struct {
	Kind CommandKind `json:"kind"`

	DX int `json:"dx,omitempty"`
	DY int `json:"dy,omitempty"`

	// Name carries a module or preset name.
	Name string `json:"name,omitempty"`

	// Section and Values carry a configuration overlay.
	Section string         `json:"section,omitempty"`
	Values  map[string]any `json:"values,omitempty"`

	// Seed, when non-nil, replaces the world seed before regeneration.
	Seed *int64 `json:"seed,omitempty"`
}

// Result is the outcome of one command.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

func ok(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func fail(err error) Result {
	return Result{OK: false, Message: err.Error(), Err: err}
}

// Apply executes one command on the caller's goroutine. A running engine
// reaches it through Submit; tests and offline tools call it directly.
func (e *Engine) Apply(cmd Command) Result {
	switch cmd.Kind {
	case CmdMovePlayer:
		return e.movePlayer(cmd.DX, cmd.DY)
	case CmdCallCompanion:
		e.comp.Call()
		return ok("companion coming")
	case CmdToggleDeerDebug:
		on := e.deer.ToggleDebug()
		if on {
			return ok("deer debug on")
		}
		return ok("deer debug off")
	case CmdRegenerateWorld:
		return e.regenerateWorld(cmd.Seed)
	case CmdRegenerateModule:
		return e.regenerateModule(cmd.Name)
	case CmdGeologicalPreset:
		next, err := e.cfg.GetGeologicalPreset(cmd.Name)
		if err != nil {
			return fail(err)
		}
		return e.applyConfig(next, "geological preset "+cmd.Name)
	case CmdElevationPreset:
		next, err := e.cfg.GetElevationPreset(cmd.Name)
		if err != nil {
			return fail(err)
		}
		return e.applyConfig(next, "elevation preset "+cmd.Name)
	case CmdWaterPreset:
		next, err := e.cfg.GetWaterPreset(cmd.Name)
		if err != nil {
			return fail(err)
		}
		return e.applyConfig(next, "water preset "+cmd.Name)
	case CmdUpdateConfig:
		next, err := e.cfg.UpdateSection(cmd.Section, cmd.Values)
		if err != nil {
			return fail(err)
		}
		return e.applyConfig(next, "configuration section "+cmd.Section)
	case CmdRespawnDeer:
		n := e.deer.Respawn()
		return ok("respawned %d deer", n)
	default:
		return fail(fmt.Errorf("unknown command %q", cmd.Kind))
	}
}

func (e *Engine) movePlayer(dx, dy int) Result {
	if dx == 0 && dy == 0 {
		return fail(fmt.Errorf("move needs a direction"))
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return fail(fmt.Errorf("move is one step at a time"))
	}
	e.lastBlocked = ""
	if !e.player.Move(dx, dy) {
		return Result{OK: false, Message: e.lastBlocked}
	}
	px, py := e.player.Pos()
	e.w.MarkDiscovered(px, py)
	return ok("player at (%d,%d)", px, py)
}

func (e *Engine) regenerateWorld(seed *int64) Result {
	next := e.cfg
	if seed != nil {
		next.World.Seed = *seed
	}
	return e.applyConfig(next, "world")
}

func (e *Engine) regenerateModule(name string) Result {
	if err := e.w.RegenerateModule(name); err != nil {
		return fail(err)
	}
	e.afterTerrainChange()
	return ok("regenerated module %s", name)
}

// applyConfig regenerates the world under the next configuration. On
// failure the previous terrain stays live and the engine keeps its old
// configuration.
func (e *Engine) applyConfig(next config.Config, what string) Result {
	if err := e.w.RegenerateWorld(next); err != nil {
		return fail(err)
	}
	e.cfg = next
	e.afterTerrainChange()
	return ok("applied %s", what)
}

// afterTerrainChange revalidates agent positions against the new terrain
// and respawns the herd. A player or companion left standing in water is
// nudged to the nearest open cell.
func (e *Engine) afterTerrainChange() {
	px, py := e.openCellNear(e.player.X, e.player.Y)
	if px != e.player.X || py != e.player.Y {
		e.log.Printf("[engine] terrain changed under player, moved to (%d,%d)", px, py)
		e.player.X, e.player.Y = px, py
	}
	e.w.MarkDiscovered(px, py)

	cx, cy := e.openCellNear(e.comp.X, e.comp.Y)
	if cx != e.comp.X || cy != e.comp.Y {
		e.comp.X, e.comp.Y = cx, cy
	}

	e.deer.Respawn()
}
