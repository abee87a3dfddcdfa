// Package companion implements the player's companion: a single agent
// that trails the player, answers a recall command, and settles when the
// player stands still.
package companion

import (
	"log"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/entity"
	"verdant.world/internal/sim/noise"
	"verdant.world/internal/sim/world"
)

type State string

const (
	Idle      State = "idle"
	Following State = "following"
	Coming    State = "coming"
)

// Companion is the single follower agent. All mutation happens on the
// engine goroutine inside Tick or Call.
type Companion struct {
	State State

	*entity.Movable

	cfg config.CompanionConfig
	log *log.Logger

	// Player position as of the previous tick, for stillness detection.
	lastPX, lastPY int
	stillTicks     int
	seenPlayer     bool
}

func companionRules() entity.MovementRules {
	return entity.MovementRules{
		CanWalkOn: map[world.TerrainKind]bool{
			world.Plains: true, world.Forest: true, world.Foothills: true,
			world.Mountain: true, world.Trail: true, world.Road: true,
			world.Village: true,
		},
		CannotWalkOn: map[world.TerrainKind]bool{
			world.River: true, world.Lake: true, world.Building: true,
		},
	}
}

func New(w *world.World, x, y int, cfg config.CompanionConfig, logger *log.Logger) *Companion {
	return &Companion{
		State:   Following,
		Movable: entity.NewMovable(w, x, y, companionRules()),
		cfg:     cfg,
		log:     logger,
	}
}

// Call recalls the companion to the player. It closes in every tick until
// it reaches follow distance, then resumes following.
func (c *Companion) Call() {
	c.State = Coming
	c.log.Printf("[companion] called, coming from (%d,%d)", c.X, c.Y)
}

// Tick advances the companion one step against the player snapshot.
func (c *Companion) Tick(px, py int) {
	moved := c.seenPlayer && (px != c.lastPX || py != c.lastPY)
	if c.seenPlayer {
		if moved {
			c.stillTicks = 0
		} else {
			c.stillTicks++
		}
	}
	c.lastPX, c.lastPY = px, py
	c.seenPlayer = true

	dist := noise.Distance(c.X, c.Y, px, py)

	switch c.State {
	case Idle:
		if moved {
			c.State = Following
		}

	case Following:
		if c.stillTicks >= c.cfg.IdleTimeout {
			c.State = Idle
			return
		}
		if dist > float64(c.cfg.FollowDistance) {
			c.stepToward(px, py)
		}

	case Coming:
		if dist <= float64(c.cfg.FollowDistance) {
			c.State = Following
			c.stillTicks = 0
			return
		}
		c.stepToward(px, py)
	}
}

// stepToward takes one greedy step: primary axis first, then the other
// axis, then the diagonal. A fully blocked companion stays put.
func (c *Companion) stepToward(tx, ty int) bool {
	dx := sign(tx - c.X)
	dy := sign(ty - c.Y)
	if dx == 0 && dy == 0 {
		return false
	}
	var tries [][2]int
	if absInt(tx-c.X) >= absInt(ty-c.Y) {
		tries = [][2]int{{dx, 0}, {0, dy}, {dx, dy}}
	} else {
		tries = [][2]int{{0, dy}, {dx, 0}, {dx, dy}}
	}
	for _, t := range tries {
		if t[0] == 0 && t[1] == 0 {
			continue
		}
		if c.Move(t[0], t[1]) {
			return true
		}
	}
	return false
}

// Overlay decorates a rendered cell when the companion stands on it.
// Tree canopy hides the companion, same as deer.
func (c *Companion) Overlay(x int, y int, cell world.RenderedCell) world.RenderedCell {
	if c.X != x || c.Y != y {
		return cell
	}
	if cell.Feature != nil && cell.Feature.Type == world.FeatureTreeCanopy {
		return cell
	}
	cell.Companion = &world.AgentOverlay{
		Symbol:   "C",
		StyleTag: "companion-" + string(c.State),
		State:    string(c.State),
	}
	return cell
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
