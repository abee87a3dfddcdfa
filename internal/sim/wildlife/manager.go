package wildlife

import (
	"log"
	"sort"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/noise"
	"verdant.world/internal/sim/world"
)

const (
	saltSpawnX = 21001
	saltSpawnY = 21002
)

// unit maps a hash to [0, 1).
func unit(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}

// Manager owns the herd: spawning, the per-tick FSM updates, render
// overrides, and the debug overlay. All methods run on the engine
// goroutine.
type Manager struct {
	w    *world.World
	cfg  config.WildlifeConfig
	perf config.PerformanceConfig
	log  *log.Logger
	seed int64

	deer  []*Deer
	debug bool
	tick  uint64

	// shortfall is how many deer could not be placed at spawn time.
	shortfall int
}

func NewManager(w *world.World, cfg config.WildlifeConfig, perf config.PerformanceConfig, logger *log.Logger) *Manager {
	return &Manager{
		w:    w,
		cfg:  cfg,
		perf: perf,
		log:  logger,
		seed: w.Seed(),
	}
}

// Spawn places the herd on walkable non-water cells inside the spawn
// margin, keeping minimum spacing. Placement is deterministic in the
// world seed. A partial herd is not an error; the shortfall is logged.
func (m *Manager) Spawn() int {
	m.deer = m.deer[:0]
	m.shortfall = 0

	b := m.w.Bounds()
	margin := m.perf.SpawnMargin
	minX, maxX := b.MinX+margin, b.MaxX-margin
	minY, maxY := b.MinY+margin, b.MaxY-margin
	if minX > maxX || minY > maxY {
		minX, maxX = b.MinX, b.MaxX
		minY, maxY = b.MinY, b.MaxY
	}
	w := maxX - minX + 1
	h := maxY - minY + 1

	attempts := 0
	for len(m.deer) < m.cfg.HerdSize && attempts < m.perf.SpawnAttempts {
		attempts++
		x := minX + int(unit(noise.Hash2(m.seed, attempts, saltSpawnX))*float64(w))
		y := minY + int(unit(noise.Hash2(m.seed, attempts, saltSpawnY))*float64(h))
		if !m.placeable(x, y) {
			continue
		}
		d := newDeer(len(m.deer), m.w, x, y, m.cfg.VisionRange, m.seed)
		m.deer = append(m.deer, d)
	}

	m.shortfall = m.cfg.HerdSize - len(m.deer)
	if m.shortfall > 0 {
		m.log.Printf("[wildlife] spawned %d/%d deer after %d attempts",
			len(m.deer), m.cfg.HerdSize, attempts)
	} else {
		m.log.Printf("[wildlife] spawned %d deer", len(m.deer))
	}
	return len(m.deer)
}

// Respawn clears the herd and spawns afresh against the current world.
func (m *Manager) Respawn() int {
	m.deer = nil
	return m.Spawn()
}

func (m *Manager) placeable(x, y int) bool {
	cell := m.w.GetTerrainAt(x, y)
	if !cell.Walkable {
		return false
	}
	switch cell.Terrain {
	case world.River, world.Lake, world.Unknown:
		return false
	}
	for _, d := range m.deer {
		if noise.Distance(x, y, d.X, d.Y) < m.cfg.MinSpacing {
			return false
		}
	}
	return true
}

// Tick advances every deer once against a single player snapshot, in
// insertion order. A panicking deer is skipped for the tick, not killed.
func (m *Manager) Tick(playerX, playerY int) {
	m.tick++
	cfg := behaviorConfig{
		wanderChance:     float64(m.cfg.WanderChancePermille) / 1000,
		alertRange:       m.cfg.AlertRange,
		alertTicksToFlee: m.cfg.AlertTicksToFlee,
		calmTicks:        m.cfg.CalmTicks,
		fleeTicks:        m.cfg.FleeTicks,
		minSpacing:       m.cfg.MinSpacing,
	}
	for _, d := range m.deer {
		m.tickDeer(d, playerX, playerY, cfg)
	}
}

func (m *Manager) tickDeer(d *Deer, px, py int, cfg behaviorConfig) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Printf("[wildlife] deer %d tick panic: %v", d.ID, r)
		}
	}()
	d.update(m.w, px, py, m.deer, m.tick, cfg)
}

// Deer returns the live herd. Callers must not mutate it.
func (m *Manager) Deer() []*Deer { return m.deer }

// SpawnShortfall reports how many of the configured herd could not be
// placed on the last spawn.
func (m *Manager) SpawnShortfall() int { return m.shortfall }

func (m *Manager) SetDebug(on bool) { m.debug = on }
func (m *Manager) ToggleDebug() bool {
	m.debug = !m.debug
	return m.debug
}
func (m *Manager) DebugEnabled() bool { return m.debug }

// DeerAt returns the deer standing on the cell, or nil.
func (m *Manager) DeerAt(x, y int) *Deer {
	for _, d := range m.deer {
		if d.X == x && d.Y == y {
			return d
		}
	}
	return nil
}

// Decorate overlays a deer marker onto a rendered cell. Deer under tree
// canopy stay hidden unless debug mode is on.
func (m *Manager) Decorate(x int, y int, cell world.RenderedCell) world.RenderedCell {
	d := m.DeerAt(x, y)
	if d == nil {
		return cell
	}
	if cell.Feature != nil && cell.Feature.Type == world.FeatureTreeCanopy && !m.debug {
		return cell
	}
	cell.Deer = &world.AgentOverlay{
		Symbol:   "d",
		StyleTag: "deer-" + string(d.State),
		State:    string(d.State),
	}
	return cell
}

// DebugSnapshot is the overlay data exposed when deer debug is on.
type DebugSnapshot struct {
	Deer    []DeerDebug `json:"deer"`
	Visible []world.Pos `json:"visible"`
}

type DeerDebug struct {
	ID    int        `json:"id"`
	X     int        `json:"x"`
	Y     int        `json:"y"`
	State string     `json:"state"`
	Tgt   *world.Pos `json:"target,omitempty"`
}

// DebugInfo reports per-deer state and the union of all tiles any deer
// can currently see, ordered row-major for stable output.
func (m *Manager) DebugInfo() DebugSnapshot {
	snap := DebugSnapshot{}
	seen := make(map[world.Pos]bool)
	for _, d := range m.deer {
		snap.Deer = append(snap.Deer, DeerDebug{
			ID: d.ID, X: d.X, Y: d.Y, State: string(d.State), Tgt: d.Target,
		})
		r := d.VisionRange
		for vy := d.Y - r; vy <= d.Y+r; vy++ {
			for vx := d.X - r; vx <= d.X+r; vx++ {
				p := world.Pos{X: vx, Y: vy}
				if seen[p] {
					continue
				}
				if !m.w.Bounds().Contains(vx, vy) {
					continue
				}
				if d.CanSeePosition(m.w, vx, vy) {
					seen[p] = true
				}
			}
		}
	}
	snap.Visible = make([]world.Pos, 0, len(seen))
	for p := range seen {
		snap.Visible = append(snap.Visible, p)
	}
	sort.Slice(snap.Visible, func(i, j int) bool {
		if snap.Visible[i].Y != snap.Visible[j].Y {
			return snap.Visible[i].Y < snap.Visible[j].Y
		}
		return snap.Visible[i].X < snap.Visible[j].X
	})
	return snap
}
