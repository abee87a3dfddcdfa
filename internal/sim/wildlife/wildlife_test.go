package wildlife

import (
	"io"
	"log"
	"testing"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/noise"
	"verdant.world/internal/sim/terrain"
	"verdant.world/internal/sim/world"
)

func testWorld(t *testing.T, seed int64) *world.World {
	t.Helper()
	cfg := config.Defaults()
	cfg.World.Seed = seed
	cfg.World.MinX, cfg.World.MaxX = -60, 60
	cfg.World.MinY, cfg.World.MaxY = -60, 60
	w, err := world.New(cfg, terrain.DefaultRegistry(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	if err := w.Initialize(); err != nil {
		t.Fatalf("initialize world: %v", err)
	}
	return w
}

func testManager(t *testing.T, seed int64) (*Manager, *world.World) {
	t.Helper()
	w := testWorld(t, seed)
	cfg := config.Defaults()
	m := NewManager(w, cfg.GetWildlifeConfig(), cfg.GetPerformanceConfig(), log.New(io.Discard, "", 0))
	m.Spawn()
	return m, w
}

func TestSpawnSpacingAndPlacement(t *testing.T) {
	m, w := testManager(t, 42)
	herd := m.Deer()
	if len(herd)+m.SpawnShortfall() != config.Defaults().Wildlife.HerdSize {
		t.Fatalf("herd %d + shortfall %d does not account for configured size",
			len(herd), m.SpawnShortfall())
	}
	if len(herd) == 0 {
		t.Fatal("no deer placed at all")
	}
	minSpacing := config.Defaults().Wildlife.MinSpacing
	for i, d := range herd {
		cell := w.GetTerrainAt(d.X, d.Y)
		if !cell.Walkable {
			t.Fatalf("deer %d spawned on unwalkable %s at (%d,%d)", d.ID, cell.Terrain, d.X, d.Y)
		}
		if cell.Terrain == world.River || cell.Terrain == world.Lake {
			t.Fatalf("deer %d spawned on water at (%d,%d)", d.ID, d.X, d.Y)
		}
		for _, o := range herd[i+1:] {
			if dist := noise.Distance(d.X, d.Y, o.X, o.Y); dist < minSpacing {
				t.Fatalf("deer %d and %d only %.2f apart", d.ID, o.ID, dist)
			}
		}
	}
}

func TestSpawnDeterministic(t *testing.T) {
	m1, _ := testManager(t, 7)
	m2, _ := testManager(t, 7)
	a, b := m1.Deer(), m2.Deer()
	if len(a) != len(b) {
		t.Fatalf("herd sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].X != b[i].X || a[i].Y != b[i].Y {
			t.Fatalf("deer %d at (%d,%d) vs (%d,%d)", i, a[i].X, a[i].Y, b[i].X, b[i].Y)
		}
	}
}

func TestDeerStayInBoundsAndWalkable(t *testing.T) {
	m, w := testManager(t, 99)
	px, py := 0, 0
	for tick := 0; tick < 200; tick++ {
		m.Tick(px, py)
		for _, d := range m.Deer() {
			if !w.Bounds().Contains(d.X, d.Y) {
				t.Fatalf("tick %d: deer %d escaped to (%d,%d)", tick, d.ID, d.X, d.Y)
			}
			cell := w.GetTerrainAt(d.X, d.Y)
			if !cell.Walkable {
				t.Fatalf("tick %d: deer %d on unwalkable %s", tick, d.ID, cell.Terrain)
			}
		}
	}
}

func TestWanderingToAlertOnSight(t *testing.T) {
	m, w := testManager(t, 5)
	if len(m.Deer()) == 0 {
		t.Fatal("no deer")
	}
	d := m.Deer()[0]
	// Park the player right next to the deer: within range, nothing in
	// between to occlude.
	px, py := d.X+1, d.Y
	if !w.Bounds().Contains(px, py) {
		px = d.X - 1
	}
	if !d.CanSeePosition(w, px, py) {
		t.Fatalf("deer cannot see adjacent player at (%d,%d)", px, py)
	}
	m.Tick(px, py)
	if d.State != Alert {
		t.Fatalf("state = %s after seeing player, want %s", d.State, Alert)
	}
	if d.Target == nil || d.Target.X != px || d.Target.Y != py {
		t.Fatalf("alert deer target = %v, want (%d,%d)", d.Target, px, py)
	}
}

func TestAlertEscalatesToFleeing(t *testing.T) {
	m, _ := testManager(t, 5)
	d := m.Deer()[0]
	px, py := d.X+1, d.Y
	ticks := config.Defaults().Wildlife.AlertTicksToFlee
	// First tick flips to alert; then the closing counter must run up.
	for i := 0; i <= ticks; i++ {
		m.Tick(px, py)
		px, py = d.X+1, d.Y
	}
	if d.State != Fleeing {
		t.Fatalf("state = %s after %d closing ticks, want %s", d.State, ticks, Fleeing)
	}
}

func TestFleeingCalmsWhenUnseen(t *testing.T) {
	m, w := testManager(t, 5)
	d := m.Deer()[0]
	d.State = Fleeing
	// Player far outside vision range.
	px := w.Bounds().MaxX
	py := w.Bounds().MaxY
	for i := 0; i < config.Defaults().Wildlife.FleeTicks+1; i++ {
		m.Tick(px, py)
	}
	if d.State != Wandering {
		t.Fatalf("state = %s after player out of sight, want %s", d.State, Wandering)
	}
	if d.Target != nil {
		t.Fatalf("calmed deer still has target %v", d.Target)
	}
}

func TestVisionRangeLimit(t *testing.T) {
	m, w := testManager(t, 11)
	d := m.Deer()[0]
	far := d.X + d.VisionRange + 2
	if far > w.Bounds().MaxX {
		far = w.Bounds().MinX
	}
	if d.CanSeePosition(w, far, d.Y) {
		t.Fatalf("deer sees (%d,%d) beyond vision range %d", far, d.Y, d.VisionRange)
	}
}

func TestCanopyOcclusionInRender(t *testing.T) {
	m, w := testManager(t, 13)
	if len(m.Deer()) == 0 {
		t.Fatal("no deer")
	}
	d := m.Deer()[0]

	base := w.RenderAt(d.X, d.Y)
	got := m.Decorate(d.X, d.Y, base)
	underCanopy := base.Feature != nil && base.Feature.Type == world.FeatureTreeCanopy
	if underCanopy && got.Deer != nil {
		t.Fatal("deer visible under canopy with debug off")
	}
	if !underCanopy {
		if got.Deer == nil {
			t.Fatal("deer overlay missing on open cell")
		}
		if got.Deer.State != string(d.State) {
			t.Fatalf("overlay state %q, want %q", got.Deer.State, d.State)
		}
	}

	m.SetDebug(true)
	got = m.Decorate(d.X, d.Y, base)
	if got.Deer == nil {
		t.Fatal("debug mode must always show the deer")
	}
}

func TestDebugInfoCoversDeer(t *testing.T) {
	m, w := testManager(t, 21)
	m.Tick(0, 0)
	info := m.DebugInfo()
	if len(info.Deer) != len(m.Deer()) {
		t.Fatalf("debug lists %d deer, herd has %d", len(info.Deer), len(m.Deer()))
	}
	// Every deer sees its own cell, so the union must include it.
	for _, d := range m.Deer() {
		found := false
		for _, p := range info.Visible {
			if p.X == d.X && p.Y == d.Y {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("visible union misses deer %d own cell (%d,%d)", d.ID, d.X, d.Y)
		}
	}
	for _, p := range info.Visible {
		if !w.Bounds().Contains(p.X, p.Y) {
			t.Fatalf("visible tile (%d,%d) out of bounds", p.X, p.Y)
		}
	}
}

func TestRespawnRebuildsHerd(t *testing.T) {
	m, _ := testManager(t, 31)
	before := len(m.Deer())
	for i := 0; i < 50; i++ {
		m.Tick(0, 0)
	}
	n := m.Respawn()
	if n != before {
		t.Fatalf("respawn placed %d deer, first spawn placed %d", n, before)
	}
}
