// Package terrain holds the layered procedural terrain modules and the
// substrate they plug into: a named module interface, a constructor
// registry, and a dependency-ordered scheduler. Modules build their fields
// once in Generate and answer point queries afterwards; all sampling is
// seeded, so a (seed, bounds, config) triple always reproduces the same
// world.
package terrain

import (
	"fmt"
	"sort"

	"verdant.world/internal/sim/config"
)

// Pos is an integer world position.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds is a closed rectangle of world positions.
type Bounds struct {
	MinX, MaxX, MinY, MaxY int
}

func (b Bounds) Contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

func (b Bounds) Width() int  { return b.MaxX - b.MinX + 1 }
func (b Bounds) Height() int { return b.MaxY - b.MinY + 1 }

// Context is threaded through generation and point queries. It replaces
// any ambient global state: modules reach their dependencies only through
// Find, and only after the scheduler has generated them.
type Context struct {
	Bounds  Bounds
	Seed    int64
	Cfg     config.Config
	modules map[string]Module
}

func NewContext(b Bounds, seed int64, cfg config.Config) *Context {
	return &Context{Bounds: b, Seed: seed, Cfg: cfg, modules: map[string]Module{}}
}

// Attach registers a module instance for dependency lookup.
func (c *Context) Attach(m Module) { c.modules[m.Name()] = m }

// Find returns an attached module by name, or nil.
func (c *Context) Find(name string) Module { return c.modules[name] }

// Data is a module's answer for one position.
type Data struct {
	// Terrain is a kind suggestion ("river", "lake") or empty when the
	// module does not claim the position.
	Terrain  string
	Features []string
	Payload  map[string]any
}

// Module is one layer of the terrain pipeline.
type Module interface {
	Name() string
	// Priority breaks ties between independent modules; higher runs first.
	Priority() int
	// Dependencies lists module names whose Generate must complete first.
	Dependencies() []string
	Generate(ctx *Context) error
	DataAt(x, y int, ctx *Context) Data
	AffectsPosition(x, y int, ctx *Context) bool
}

// Constructor builds a fresh module instance from configuration.
type Constructor func(cfg config.Config) Module

// Registry maps module type names to constructors.
type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

// Register binds a constructor to a module type name. Re-registering a
// name replaces the previous constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[name] = ctor
}

// Build instantiates one module by name.
func (r *Registry) Build(name string, cfg config.Config) (Module, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("terrain: unknown module type %q", name)
	}
	return ctor(cfg), nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry registers the built-in pipeline.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GeologyName, func(cfg config.Config) Module { return NewGeology(cfg.GetGeologyConfig()) })
	r.Register(ElevationName, func(cfg config.Config) Module { return NewElevation(cfg.GetElevationConfig()) })
	r.Register(HydrologyName, func(cfg config.Config) Module { return NewHydrology(cfg.GetHydrologyConfig()) })
	return r
}
