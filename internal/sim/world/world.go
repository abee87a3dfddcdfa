// Package world holds the world system: the terrain generator facade, the
// classifier, and the per-cell memoization layer agents and the render
// consult. Cells are created lazily on first query and live for the
// process lifetime unless a regeneration invalidates them.
package world

import (
	"fmt"
	"io"
	"log"
	"sort"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/terrain"
)

// Feature is an auxiliary tag attached to a cell, e.g. tree canopy.
type Feature struct {
	Type string `json:"type"`
}

// Cell is one memoized world position. Only Discovered mutates after
// creation.
type Cell struct {
	Terrain    TerrainKind
	Elevation  float64
	Discovered bool
	Walkable   bool
	Feature    *Feature
}

// World is the single-threaded world system. All reads and writes happen
// on the engine's logical thread; ticker callbacks never observe a cell
// mid-creation.
type World struct {
	gen   *Generator
	cfg   config.Config
	kinds map[TerrainKind]KindInfo
	log   *log.Logger

	cells map[terrain.Pos]*Cell
}

// New wires a world over a generator. Call Initialize before querying.
func New(cfg config.Config, reg *terrain.Registry, logger *log.Logger) (*World, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gen, err := NewGenerator(cfg, reg, logger)
	if err != nil {
		return nil, err
	}
	return &World{
		gen:   gen,
		cfg:   cfg,
		kinds: KindTable(cfg.GetTerrainConfig()),
		log:   logger,
		cells: map[terrain.Pos]*Cell{},
	}, nil
}

// Initialize generates all terrain modules.
func (w *World) Initialize() error {
	if err := w.gen.Initialize(); err != nil {
		return err
	}
	w.cells = map[terrain.Pos]*Cell{}
	return nil
}

func (w *World) Bounds() terrain.Bounds          { return w.gen.bounds() }
func (w *World) Seed() int64                     { return w.cfg.GetWorldConfig().Seed }
func (w *World) Generator() *Generator           { return w.gen }
func (w *World) Kinds() map[TerrainKind]KindInfo { return w.kinds }

// KindInfo resolves one kind's record.
func (w *World) KindInfo(k TerrainKind) KindInfo { return w.kinds[k] }

// unknownCell is the answer for any out-of-bounds query. A fresh value
// each call so callers cannot corrupt shared state.
func unknownCell() *Cell {
	return &Cell{Terrain: Unknown, Elevation: unknownElevation, Discovered: false, Walkable: true}
}

// GetTerrainAt returns the cell at (x, y), creating it on first access.
// Out-of-bounds positions answer with the unknown record; that is not an
// error.
func (w *World) GetTerrainAt(x, y int) *Cell {
	if !w.Bounds().Contains(x, y) {
		return unknownCell()
	}
	p := terrain.Pos{X: x, Y: y}
	if c, ok := w.cells[p]; ok {
		return c
	}
	c := w.buildCell(x, y)
	w.cells[p] = c
	return c
}

// buildCell classifies the position. Any panic out of a module is
// contained: the cell falls back to walkable plains and the failure is
// logged, so one bad position cannot take down the host.
func (w *World) buildCell(x, y int) (c *Cell) {
	defer func() {
		if r := recover(); r != nil {
			if w.log != nil {
				w.log.Printf("cell (%d,%d): generation failed: %v; using plains fallback", x, y, r)
			}
			c = &Cell{Terrain: Plains, Elevation: unknownElevation, Walkable: true}
		}
	}()
	kind := w.gen.ClassifyAt(x, y)
	return &Cell{
		Terrain:   kind,
		Elevation: w.gen.ElevationAt(x, y),
		Walkable:  w.kinds[kind].Walkable,
		Feature:   w.gen.featureAt(x, y, kind),
	}
}

// CanMoveTo is the world-level walkability check: in bounds and on a
// walkable kind.
func (w *World) CanMoveTo(x, y int) bool {
	if !w.Bounds().Contains(x, y) {
		return false
	}
	return w.GetTerrainAt(x, y).Walkable
}

// MarkDiscovered flips the discovery bit. Out of bounds is an error here,
// unlike GetTerrainAt.
func (w *World) MarkDiscovered(x, y int) error {
	if !w.Bounds().Contains(x, y) {
		return fmt.Errorf("mark discovered (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	w.GetTerrainAt(x, y).Discovered = true
	return nil
}

// RegenerateWorld rebuilds every module under the given configuration and
// clears the cell cache.
func (w *World) RegenerateWorld(cfg config.Config) error {
	if err := w.gen.RegenerateAll(cfg); err != nil {
		return err
	}
	w.cfg = cfg
	w.kinds = KindTable(cfg.GetTerrainConfig())
	w.cells = map[terrain.Pos]*Cell{}
	return nil
}

// RegenerateModule regenerates one module plus its dependents and clears
// the cell cache. On failure prior cells stay valid.
func (w *World) RegenerateModule(name string) error {
	if err := w.gen.RegenerateModule(name); err != nil {
		return err
	}
	w.cells = map[terrain.Pos]*Cell{}
	return nil
}

// CellCount is the number of memoized cells.
func (w *World) CellCount() int { return len(w.cells) }

// Statistics is the stride-sampled terrain census.
type Statistics struct {
	Stride   int                `json:"stride"`
	Samples  int                `json:"samples"`
	Counts   map[string]int     `json:"counts"`
	Percents map[string]float64 `json:"percents"`
}

// Stats samples the world on the configured stride and reports counts and
// percentages per terrain kind.
func (w *World) Stats() Statistics {
	stride := w.cfg.GetPerformanceConfig().StatsStride
	if stride <= 0 {
		stride = 4
	}
	b := w.Bounds()
	s := Statistics{Stride: stride, Counts: map[string]int{}, Percents: map[string]float64{}}
	for y := b.MinY; y <= b.MaxY; y += stride {
		for x := b.MinX; x <= b.MaxX; x += stride {
			s.Counts[w.GetTerrainAt(x, y).Terrain.String()]++
			s.Samples++
		}
	}
	if s.Samples > 0 {
		for k, n := range s.Counts {
			s.Percents[k] = 100 * float64(n) / float64(s.Samples)
		}
	}
	return s
}

// sortedCellKeys returns memoized positions in a stable order.
func (w *World) sortedCellKeys() []terrain.Pos {
	keys := make([]terrain.Pos, 0, len(w.cells))
	for p := range w.cells {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}
