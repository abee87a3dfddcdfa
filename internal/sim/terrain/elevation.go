package terrain

import (
	"fmt"
	"math"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/noise"
)

const ElevationName = "elevation"

const seedOffsetElevation = 9001

// Elevation composes a multi-octave noise base with geology's elevation
// influence into a normalized field. Once Generate has run, ElevationAt is
// a pure function of (x, y).
type Elevation struct {
	cfg config.ElevationConfig

	seed  int64
	field *noise.Field
	geo   *Geology
}

func NewElevation(cfg config.ElevationConfig) *Elevation {
	if cfg.Exponent <= 0 {
		cfg.Exponent = 1
	}
	return &Elevation{cfg: cfg}
}

func (e *Elevation) Name() string           { return ElevationName }
func (e *Elevation) Priority() int          { return 100 }
func (e *Elevation) Dependencies() []string { return []string{GeologyName} }

func (e *Elevation) Generate(ctx *Context) error {
	geo, ok := ctx.Find(GeologyName).(*Geology)
	if !ok || geo == nil {
		return fmt.Errorf("elevation: geology module not attached")
	}
	e.geo = geo
	e.seed = ctx.Seed
	e.field = noise.NewField(ctx.Seed + seedOffsetElevation)
	return nil
}

// ElevationAt returns the normalized elevation in [0,1]. Hard-rock
// geology pushes the field up through the influence term.
func (e *Elevation) ElevationAt(x, y int) float64 {
	base := e.field.AtOctaves(float64(x), float64(y))
	base = math.Pow(base, e.cfg.Exponent)
	v := base + e.cfg.GeologyWeight*e.geo.ElevationInfluenceAt(x, y)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (e *Elevation) DataAt(x, y int, ctx *Context) Data {
	return Data{
		Payload: map[string]any{
			"elevation": e.ElevationAt(x, y),
			"method":    e.cfg.Method,
		},
	}
}

func (e *Elevation) AffectsPosition(x, y int, ctx *Context) bool {
	return ctx.Bounds.Contains(x, y)
}
