package world

import (
	"errors"
	"testing"
	"time"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/encoding"
)

func testWorld(t *testing.T, seed int64, half int) *World {
	t.Helper()
	cfg := config.Defaults()
	cfg.World.Seed = seed
	cfg.World.MinX, cfg.World.MaxX = -half, half
	cfg.World.MinY, cfg.World.MaxY = -half, half
	w, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	if err := w.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return w
}

func TestWorld_DeterministicAcrossRuns(t *testing.T) {
	// Scenario: bounds {-25..25}, seed 42, defaults. Two independent runs
	// agree at every queried position.
	w1 := testWorld(t, 42, 25)
	w2 := testWorld(t, 42, 25)
	for y := -25; y <= 25; y++ {
		for x := -25; x <= 25; x++ {
			c1, c2 := w1.GetTerrainAt(x, y), w2.GetTerrainAt(x, y)
			if c1.Terrain != c2.Terrain || c1.Elevation != c2.Elevation || c1.Walkable != c2.Walkable {
				t.Fatalf("(%d,%d): %+v vs %+v", x, y, c1, c2)
			}
		}
	}
	if w1.Digest() != w2.Digest() {
		t.Fatalf("digests diverge")
	}
}

func TestWorld_OutOfBoundsIsUnknown(t *testing.T) {
	w := testWorld(t, 42, 25)
	c := w.GetTerrainAt(100, 100)
	if c.Terrain != Unknown || c.Discovered || c.Elevation != 0.2 {
		t.Fatalf("unknown record: %+v", c)
	}
	if w.CanMoveTo(100, 100) {
		t.Fatalf("out of bounds must not be movable")
	}
	// The unknown record is not memoized.
	if w.CellCount() != 0 {
		t.Fatalf("cells cached for out-of-bounds query: %d", w.CellCount())
	}
}

func TestWorld_WalkabilityCoherence(t *testing.T) {
	w := testWorld(t, 42, 25)
	for y := -25; y <= 25; y++ {
		for x := -25; x <= 25; x++ {
			c := w.GetTerrainAt(x, y)
			if c.Walkable != w.KindInfo(c.Terrain).Walkable {
				t.Fatalf("(%d,%d): cell walkable %v, kind walkable %v", x, y, c.Walkable, w.KindInfo(c.Terrain).Walkable)
			}
			if w.CanMoveTo(x, y) != c.Walkable {
				t.Fatalf("(%d,%d): CanMoveTo disagrees with cell", x, y)
			}
		}
	}
}

func TestWorld_MarkDiscovered(t *testing.T) {
	w := testWorld(t, 42, 25)
	if err := w.MarkDiscovered(3, 4); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !w.GetTerrainAt(3, 4).Discovered {
		t.Fatalf("discovery bit not set")
	}
	err := w.MarkDiscovered(400, 0)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("want ErrOutOfBounds, got %v", err)
	}
}

func TestWorld_CellsMemoized(t *testing.T) {
	w := testWorld(t, 42, 25)
	a := w.GetTerrainAt(1, 1)
	b := w.GetTerrainAt(1, 1)
	if a != b {
		t.Fatalf("second query built a new cell")
	}
	if w.CellCount() != 1 {
		t.Fatalf("cell count: %d", w.CellCount())
	}
}

func TestWorld_RegenerateModuleInvalidatesCells(t *testing.T) {
	w := testWorld(t, 42, 40)
	before := w.GetTerrainAt(5, 5)
	_ = before
	if w.CellCount() == 0 {
		t.Fatalf("no cells cached")
	}
	if err := w.RegenerateModule("geology"); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if w.CellCount() != 0 {
		t.Fatalf("cell cache survived regeneration: %d", w.CellCount())
	}
	// Same config, same seed: fields regenerate identically.
	after := w.GetTerrainAt(5, 5)
	if after.Terrain != before.Terrain {
		t.Fatalf("same-seed regeneration changed (5,5): %v -> %v", before.Terrain, after.Terrain)
	}
	if err := w.RegenerateModule("weather"); err == nil {
		t.Fatalf("expected unknown module error")
	}
}

func TestWorld_PresetRegenerationChangesFormations(t *testing.T) {
	// Scenario: applying granite_heavy then regenerating geology yields
	// the preset's formation count.
	cfg := config.Defaults()
	cfg.World.Seed = 42
	w, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Initialize(); err != nil {
		t.Fatalf("init: %v", err)
	}

	next, err := cfg.GetGeologicalPreset("granite_heavy")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if err := w.RegenerateWorld(next); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	geo := w.Generator().geology()
	want := 0
	for _, tmpl := range next.GetGeologyConfig().Formations {
		want += tmpl.Count
	}
	if got := len(geo.Formations()); got != want {
		t.Fatalf("formations: got %d want %d", got, want)
	}
}

func TestWorld_StatsCoverVocabulary(t *testing.T) {
	w := testWorld(t, 42, 50)
	s := w.Stats()
	if s.Samples == 0 {
		t.Fatalf("no samples")
	}
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	if total != s.Samples {
		t.Fatalf("counts %d != samples %d", total, s.Samples)
	}
	var pct float64
	for _, p := range s.Percents {
		pct += p
	}
	if pct < 99.9 || pct > 100.1 {
		t.Fatalf("percents sum to %v", pct)
	}
	for k := range s.Counts {
		if KindFromString(k) == Unknown {
			t.Fatalf("in-bounds sample classified unknown: %q", k)
		}
	}
}

func TestWorld_ExportStableKeys(t *testing.T) {
	w := testWorld(t, 42, 10)
	w.GetTerrainAt(2, 3)
	w.GetTerrainAt(-1, 0)
	if err := w.MarkDiscovered(2, 3); err != nil {
		t.Fatalf("mark: %v", err)
	}
	ex := w.Export(time.Unix(0, 0).UTC())
	if len(ex.GeneratedCells) != 2 {
		t.Fatalf("cells: %d", len(ex.GeneratedCells))
	}
	// Stable order: row-major by (y, x).
	if ex.GeneratedCells[0].Key != "-1,0" || ex.GeneratedCells[1].Key != "2,3" {
		t.Fatalf("key order: %q, %q", ex.GeneratedCells[0].Key, ex.GeneratedCells[1].Key)
	}
	if !ex.GeneratedCells[1].Discovered {
		t.Fatalf("discovery lost in export")
	}
	if ex.Digest == "" || ex.Digest != w.Digest() {
		t.Fatalf("digest mismatch")
	}
}

func TestWorld_ExportCompactTerrain(t *testing.T) {
	w := testWorld(t, 42, 10)
	for y := -3; y <= 3; y++ {
		for x := -3; x <= 3; x++ {
			w.GetTerrainAt(x, y)
		}
	}
	// One far cell to put holes in the bounding box.
	w.GetTerrainAt(8, 8)

	ex := w.Export(time.Unix(0, 0).UTC())
	ct := ex.CompactTerrain
	if ct.MinX != -3 || ct.MinY != -3 || ct.Width != 12 || ct.Height != 12 {
		t.Fatalf("box: min=(%d,%d) size=%dx%d", ct.MinX, ct.MinY, ct.Width, ct.Height)
	}
	if ct.Palette[0] != "" {
		t.Fatalf("palette id 0 should be the hole marker, got %q", ct.Palette[0])
	}
	ids, err := encoding.DecodeRLE(ct.Terrain)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(ids) != ct.Width*ct.Height {
		t.Fatalf("decoded %d ids, want %d", len(ids), ct.Width*ct.Height)
	}
	at := func(x, y int) uint16 {
		return ids[(y-ct.MinY)*ct.Width+(x-ct.MinX)]
	}
	if at(4, 4) != 0 {
		t.Fatalf("ungenerated cell should decode to the hole marker")
	}
	for y := -3; y <= 3; y++ {
		for x := -3; x <= 3; x++ {
			id := at(x, y)
			if id == 0 || int(id) >= len(ct.Palette) {
				t.Fatalf("(%d,%d): id %d out of palette range", x, y, id)
			}
			if got := ct.Palette[id]; got != w.cells[Pos{X: x, Y: y}].Terrain.String() {
				t.Fatalf("(%d,%d): palette says %q", x, y, got)
			}
		}
	}
}

func TestClassify_PureFunction(t *testing.T) {
	w := testWorld(t, 42, 25)
	g := w.Generator()
	for y := -25; y <= 25; y += 3 {
		for x := -25; x <= 25; x += 3 {
			if g.ClassifyAt(x, y) != g.ClassifyAt(x, y) {
				t.Fatalf("(%d,%d): classification unstable", x, y)
			}
		}
	}
}

func TestClassify_WaterWinsOverElevation(t *testing.T) {
	w := testWorld(t, 42, 60)
	g := w.Generator()
	h := g.hydrology()
	found := false
	for _, river := range h.Rivers() {
		for _, p := range river {
			found = true
			if k := g.ClassifyAt(p.X, p.Y); k != River && k != Lake {
				t.Fatalf("river cell (%d,%d) classified %v", p.X, p.Y, k)
			}
		}
	}
	for _, lake := range h.Lakes() {
		for _, p := range lake {
			found = true
			if k := g.ClassifyAt(p.X, p.Y); k != Lake {
				t.Fatalf("lake cell (%d,%d) classified %v", p.X, p.Y, k)
			}
		}
	}
	if !found {
		t.Skip("no water under this seed/bounds")
	}
}

func TestKindTable_ConfigOverlay(t *testing.T) {
	f := false
	table := KindTable(config.TerrainConfig{Types: map[string]config.TerrainTypeConfig{
		"mountain": {Walkable: &f, Symbol: "M"},
	}})
	if table[Mountain].Walkable || table[Mountain].Symbol != "M" {
		t.Fatalf("overlay not applied: %+v", table[Mountain])
	}
	if !table[Plains].Walkable {
		t.Fatalf("default lost")
	}
	if table[River].Walkable || table[Lake].Walkable {
		t.Fatalf("water must default to unwalkable")
	}
}

func TestRenderAt_BaseRecord(t *testing.T) {
	w := testWorld(t, 42, 25)
	rc := w.RenderAt(0, 0)
	c := w.GetTerrainAt(0, 0)
	if rc.Terrain != c.Terrain.String() || rc.Elevation != c.Elevation {
		t.Fatalf("render record mismatch: %+v vs %+v", rc, c)
	}
	if rc.Symbol == "" || rc.StyleTag == "" {
		t.Fatalf("missing presentation fields: %+v", rc)
	}
	if rc.Deer != nil || rc.Companion != nil {
		t.Fatalf("base record has overlays")
	}
}
