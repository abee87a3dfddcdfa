// Package wildlife implements the free-roaming deer: a small FSM per
// agent (wander, alert, flee) driven by the manager's tick, with a vision
// model that respects terrain occlusion.
package wildlife

import (
	"verdant.world/internal/sim/entity"
	"verdant.world/internal/sim/noise"
	"verdant.world/internal/sim/world"
)

type State string

const (
	Wandering State = "wandering"
	Alert     State = "alert"
	Fleeing   State = "fleeing"
)

// Deer is one wildlife agent. Its state mutates only inside the manager
// tick; render reads happen between ticks.
type Deer struct {
	ID          int
	State       State
	VisionRange int

	LastDecisionTick uint64
	// Target is where the deer is currently facing or headed, if any.
	Target *world.Pos

	*entity.Movable

	seed int64

	// Alert/flee bookkeeping.
	closingTicks int
	unseenTicks  int
}

// deerRules: land only, never water, never settlements.
func deerRules() entity.MovementRules {
	return entity.MovementRules{
		CanWalkOn: map[world.TerrainKind]bool{
			world.Plains: true, world.Forest: true, world.Foothills: true,
			world.Mountain: true, world.Trail: true,
		},
		CannotWalkOn: map[world.TerrainKind]bool{
			world.River: true, world.Lake: true,
			world.Building: true, world.Village: true, world.Road: true,
		},
	}
}

func newDeer(id int, w *world.World, x, y, visionRange int, seed int64) *Deer {
	return &Deer{
		ID:          id,
		State:       Wandering,
		VisionRange: visionRange,
		Movable:     entity.NewMovable(w, x, y, deerRules()),
		seed:        seed + int64(id)*7919,
	}
}

// roll returns a deterministic uniform value for this deer and tick. The
// salt separates independent decisions within one tick.
func (d *Deer) roll(tick uint64, salt int) float64 {
	return unit(noise.Hash2(d.seed+int64(salt), int(tick), int(tick>>32)))
}

// CanSeePosition tests Euclidean range, then samples the straight line to
// the target: tree canopy is opaque and the world boundary blocks sight.
// The endpoints themselves do not occlude.
func (d *Deer) CanSeePosition(w *world.World, tx, ty int) bool {
	if noise.Distance(d.X, d.Y, tx, ty) > float64(d.VisionRange) {
		return false
	}
	dx, dy := tx-d.X, ty-d.Y
	steps := absInt(dx)
	if absInt(dy) > steps {
		steps = absInt(dy)
	}
	for i := 1; i < steps; i++ {
		sx := d.X + roundDiv(dx*i, steps)
		sy := d.Y + roundDiv(dy*i, steps)
		if !w.Bounds().Contains(sx, sy) {
			return false
		}
		if w.HasCanopy(sx, sy) {
			return false
		}
	}
	return true
}

// update advances the FSM one tick. Peers lets fleeing deer keep spacing.
func (d *Deer) update(w *world.World, px, py int, peers []*Deer, tick uint64, cfg behaviorConfig) {
	d.LastDecisionTick = tick
	sees := d.CanSeePosition(w, px, py)
	dist := noise.Distance(d.X, d.Y, px, py)

	switch d.State {
	case Wandering:
		if sees {
			d.State = Alert
			d.Target = &world.Pos{X: px, Y: py}
			d.closingTicks = 0
			d.unseenTicks = 0
			return
		}
		if d.roll(tick, 1) < cfg.wanderChance {
			d.wanderStep(w, tick)
		}

	case Alert:
		// Face the player.
		d.Target = &world.Pos{X: px, Y: py}
		if dist < float64(cfg.alertRange) {
			d.closingTicks++
		} else {
			d.closingTicks = 0
		}
		if d.closingTicks >= cfg.alertTicksToFlee {
			d.State = Fleeing
			d.unseenTicks = 0
			return
		}
		if !sees {
			d.unseenTicks++
			if d.unseenTicks >= cfg.calmTicks {
				d.State = Wandering
				d.Target = nil
				d.unseenTicks = 0
			}
		} else {
			d.unseenTicks = 0
		}

	case Fleeing:
		if sees {
			d.unseenTicks = 0
		} else {
			d.unseenTicks++
			if d.unseenTicks >= cfg.fleeTicks {
				d.State = Wandering
				d.Target = nil
				d.closingTicks = 0
				return
			}
		}
		d.fleeStep(w, px, py, peers, cfg.minSpacing)
	}
}

// wanderStep picks a random in-bounds walkable neighbor and steps there.
func (d *Deer) wanderStep(w *world.World, tick uint64) {
	var opts []world.Pos
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if d.CanMoveTo(d.X+dx, d.Y+dy) {
				opts = append(opts, world.Pos{X: d.X + dx, Y: d.Y + dy})
			}
		}
	}
	if len(opts) == 0 {
		return
	}
	pick := opts[int(d.roll(tick, 2)*float64(len(opts)))]
	d.Move(pick.X-d.X, pick.Y-d.Y)
}

// fleeStep steps to the walkable neighbor that maximizes distance from
// the player, preferring cells that keep spacing from other deer.
func (d *Deer) fleeStep(w *world.World, px, py int, peers []*Deer, minSpacing float64) {
	type option struct {
		p       world.Pos
		dist    float64
		crowded bool
	}
	var opts []option
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := d.X+dx, d.Y+dy
			if !d.CanMoveTo(nx, ny) {
				continue
			}
			crowded := false
			for _, o := range peers {
				if o.ID == d.ID {
					continue
				}
				if noise.Distance(nx, ny, o.X, o.Y) < minSpacing {
					crowded = true
					break
				}
			}
			opts = append(opts, option{
				p:       world.Pos{X: nx, Y: ny},
				dist:    noise.Distance(nx, ny, px, py),
				crowded: crowded,
			})
		}
	}
	if len(opts) == 0 {
		return
	}
	best := -1
	for i, o := range opts {
		if best < 0 {
			best = i
			continue
		}
		b := opts[best]
		// Uncrowded beats crowded; within a class, farther from the
		// player wins.
		if b.crowded != o.crowded {
			if b.crowded {
				best = i
			}
			continue
		}
		if o.dist > b.dist {
			best = i
		}
	}
	pick := opts[best].p
	d.Move(pick.X-d.X, pick.Y-d.Y)
}

type behaviorConfig struct {
	wanderChance     float64
	alertRange       int
	alertTicksToFlee int
	calmTicks        int
	fleeTicks        int
	minSpacing       float64
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// roundDiv divides with rounding to nearest, ties away from zero.
func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	if (a < 0) != (b < 0) {
		return (a - b/2) / b
	}
	return (a + b/2) / b
}
