// Package entity provides the movable base that agents and the player
// build on: a position, a movement rule set, and move attempts checked
// against the world.
package entity

import (
	"fmt"

	"verdant.world/internal/sim/world"
)

// MovementRules narrows world walkability per entity. CannotWalkOn takes
// precedence over CanWalkOn on overlap; kinds named in neither are
// impassable for the entity.
type MovementRules struct {
	CanWalkOn    map[world.TerrainKind]bool
	CannotWalkOn map[world.TerrainKind]bool
	// SpecialAccess gates a kind behind a precondition tag ("door" for
	// buildings). The entity's access checker decides whether the tag is
	// satisfied; with no checker the kind stays blocked.
	SpecialAccess map[world.TerrainKind]string
}

// DefaultPlayerRules walks all land kinds, refuses water, and enters
// buildings through doors only.
func DefaultPlayerRules() MovementRules {
	return MovementRules{
		CanWalkOn: map[world.TerrainKind]bool{
			world.Plains: true, world.Forest: true, world.Foothills: true,
			world.Mountain: true, world.Road: true, world.Trail: true,
			world.Village: true,
		},
		CannotWalkOn: map[world.TerrainKind]bool{
			world.River: true, world.Lake: true,
		},
		SpecialAccess: map[world.TerrainKind]string{
			world.Building: "door",
		},
	}
}

// BlockedFunc receives a human-readable reason whenever a move attempt is
// refused.
type BlockedFunc func(x, y int, reason string)

// AccessFunc answers whether a special-access precondition is satisfied
// at the target position.
type AccessFunc func(tag string, x, y int) bool

// Movable is a positioned entity with movement rules.
type Movable struct {
	X, Y  int
	Rules MovementRules

	w         *world.World
	onBlocked BlockedFunc
	access    AccessFunc
}

func NewMovable(w *world.World, x, y int, rules MovementRules) *Movable {
	return &Movable{X: x, Y: y, Rules: rules, w: w}
}

// SetBlockedHandler installs the blocked-movement notification sink.
func (m *Movable) SetBlockedHandler(fn BlockedFunc) { m.onBlocked = fn }

// SetAccessChecker installs the special-access checker.
func (m *Movable) SetAccessChecker(fn AccessFunc) { m.access = fn }

// CanMoveTo applies the rule precedence: out of bounds refuses, then
// CannotWalkOn, then SpecialAccess, then CanWalkOn; anything else is
// impassable by default.
func (m *Movable) CanMoveTo(x, y int) bool {
	ok, _ := m.checkMove(x, y)
	return ok
}

func (m *Movable) checkMove(x, y int) (bool, string) {
	if !m.w.Bounds().Contains(x, y) {
		return false, "the world ends here"
	}
	kind := m.w.GetTerrainAt(x, y).Terrain
	name := m.w.KindInfo(kind).DisplayName
	if m.Rules.CannotWalkOn[kind] {
		return false, fmt.Sprintf("%s blocks the way", name)
	}
	if tag, ok := m.Rules.SpecialAccess[kind]; ok {
		if m.access != nil && m.access(tag, x, y) {
			return true, ""
		}
		return false, fmt.Sprintf("%s requires %s access", name, tag)
	}
	if m.Rules.CanWalkOn[kind] {
		return true, ""
	}
	return false, fmt.Sprintf("%s is impassable", name)
}

// Move attempts a relative step. On success the position updates; on
// failure the position is unchanged and the blocked handler fires with
// the reason.
func (m *Movable) Move(dx, dy int) bool {
	nx, ny := m.X+dx, m.Y+dy
	ok, reason := m.checkMove(nx, ny)
	if !ok {
		if m.onBlocked != nil {
			m.onBlocked(nx, ny, reason)
		}
		return false
	}
	m.X, m.Y = nx, ny
	return true
}

// Pos returns the current position.
func (m *Movable) Pos() (int, int) { return m.X, m.Y }
