package world

import (
	"log"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/terrain"
)

// Generator owns the ordered terrain module set, the per-module data
// cache, and regeneration. All access happens on the engine's logical
// thread; nothing here locks.
type Generator struct {
	cfg config.Config
	reg *terrain.Registry
	log *log.Logger

	ctx     *terrain.Context
	ordered []terrain.Module

	// cache holds DataAt answers per module.
	cache map[string]map[terrain.Pos]terrain.Data
}

// NewGenerator builds the module pipeline from the registry and orders it.
// The world is not generated yet; call Initialize.
func NewGenerator(cfg config.Config, reg *terrain.Registry, logger *log.Logger) (*Generator, error) {
	if reg == nil {
		reg = terrain.DefaultRegistry()
	}
	g := &Generator{cfg: cfg, reg: reg, log: logger}
	if err := g.build(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) bounds() terrain.Bounds {
	w := g.cfg.GetWorldConfig()
	return terrain.Bounds{MinX: w.MinX, MaxX: w.MaxX, MinY: w.MinY, MaxY: w.MaxY}
}

func (g *Generator) build(cfg config.Config) error {
	mods := make([]terrain.Module, 0, len(g.reg.Names()))
	for _, name := range g.reg.Names() {
		m, err := g.reg.Build(name, cfg)
		if err != nil {
			return &ConfigError{Reason: err.Error()}
		}
		mods = append(mods, m)
	}
	ordered, err := terrain.Order(mods)
	if err != nil {
		return &ConfigError{Reason: err.Error()}
	}
	g.cfg = cfg
	ctx := terrain.NewContext(g.bounds(), cfg.GetWorldConfig().Seed, cfg)
	for _, m := range ordered {
		ctx.Attach(m)
	}
	g.ctx = ctx
	g.ordered = ordered
	g.cache = map[string]map[terrain.Pos]terrain.Data{}
	return nil
}

// Initialize runs every module's Generate in dependency order.
func (g *Generator) Initialize() error {
	for _, m := range g.ordered {
		if err := m.Generate(g.ctx); err != nil {
			return &ModuleError{Module: m.Name(), Err: err}
		}
	}
	g.cache = map[string]map[terrain.Pos]terrain.Data{}
	return nil
}

// RegenerateAll rebuilds every module from the given configuration and
// generates them. On failure the previous pipeline stays in place.
func (g *Generator) RegenerateAll(cfg config.Config) error {
	prevCtx, prevOrdered, prevCache, prevCfg := g.ctx, g.ordered, g.cache, g.cfg
	restore := func() {
		g.ctx, g.ordered, g.cache, g.cfg = prevCtx, prevOrdered, prevCache, prevCfg
	}
	if err := g.build(cfg); err != nil {
		restore()
		return err
	}
	if err := g.Initialize(); err != nil {
		restore()
		return err
	}
	return nil
}

// RegenerateModule rebuilds the named module and every transitive
// dependent, then generates them in order. On failure prior fields stay
// intact.
func (g *Generator) RegenerateModule(name string) error {
	if g.Module(name) == nil {
		return &ConfigError{Reason: "unknown module " + name}
	}

	redo := map[string]bool{name: true}
	// ordered is topologically sorted, so a single pass marks all
	// transitive dependents.
	for _, m := range g.ordered {
		for _, dep := range m.Dependencies() {
			if redo[dep] {
				redo[m.Name()] = true
			}
		}
	}

	ctx := terrain.NewContext(g.bounds(), g.cfg.GetWorldConfig().Seed, g.cfg)
	newOrdered := make([]terrain.Module, 0, len(g.ordered))
	for _, m := range g.ordered {
		if !redo[m.Name()] {
			ctx.Attach(m)
			newOrdered = append(newOrdered, m)
			continue
		}
		nm, err := g.reg.Build(m.Name(), g.cfg)
		if err != nil {
			return &ConfigError{Reason: err.Error()}
		}
		ctx.Attach(nm)
		newOrdered = append(newOrdered, nm)
	}
	for _, m := range newOrdered {
		if !redo[m.Name()] {
			continue
		}
		if err := m.Generate(ctx); err != nil {
			return &ModuleError{Module: m.Name(), Err: err}
		}
	}

	g.ctx = ctx
	g.ordered = newOrdered
	g.cache = map[string]map[terrain.Pos]terrain.Data{}
	return nil
}

// Module returns a pipeline module by name, or nil.
func (g *Generator) Module(name string) terrain.Module {
	for _, m := range g.ordered {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// ModuleNames returns the pipeline order.
func (g *Generator) ModuleNames() []string {
	out := make([]string, len(g.ordered))
	for i, m := range g.ordered {
		out[i] = m.Name()
	}
	return out
}

// DataAt answers one module's record for a position, cached.
func (g *Generator) DataAt(name string, x, y int) terrain.Data {
	mc, ok := g.cache[name]
	if !ok {
		mc = map[terrain.Pos]terrain.Data{}
		g.cache[name] = mc
	}
	p := terrain.Pos{X: x, Y: y}
	if d, hit := mc[p]; hit {
		return d
	}
	m := g.Module(name)
	if m == nil {
		return terrain.Data{}
	}
	d := m.DataAt(x, y, g.ctx)
	mc[p] = d
	return d
}

// AnalyzeAt collects every module's record for a position, keyed by
// module name. Used by debug surfaces.
func (g *Generator) AnalyzeAt(x, y int) map[string]terrain.Data {
	out := make(map[string]terrain.Data, len(g.ordered))
	for _, m := range g.ordered {
		if !m.AffectsPosition(x, y, g.ctx) {
			continue
		}
		out[m.Name()] = g.DataAt(m.Name(), x, y)
	}
	return out
}

func (g *Generator) geology() *terrain.Geology {
	m, _ := g.Module(terrain.GeologyName).(*terrain.Geology)
	return m
}

func (g *Generator) elevation() *terrain.Elevation {
	m, _ := g.Module(terrain.ElevationName).(*terrain.Elevation)
	return m
}

func (g *Generator) hydrology() *terrain.Hydrology {
	m, _ := g.Module(terrain.HydrologyName).(*terrain.Hydrology)
	return m
}

// ElevationAt is a convenience over the elevation module.
func (g *Generator) ElevationAt(x, y int) float64 {
	if e := g.elevation(); e != nil {
		return e.ElevationAt(x, y)
	}
	return unknownElevation
}
