package terrain

import (
	"fmt"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/noise"
)

const GeologyName = "geology"

// Salt offsets for the per-formation samples and the perturbation rolls.
const (
	saltFormationX        = 1000
	saltFormationY        = 2000
	saltFormationRadius   = 3000
	saltFormationStrength = 4000
	seedOffsetPerturb     = 7001
	seedOffsetPerturbRoll = 7002
	seedOffsetPerturbPick = 7003
	seedOffsetSoil        = 7010
)

// Formation is a circular region within which one rock type dominates.
// Formations are born in Generate and replaced wholesale on regeneration.
type Formation struct {
	ID              int
	Tag             string
	CenterX         int
	CenterY         int
	Radius          float64
	RockType        string
	ElevationEffect float64
	Strength        float64
}

// Influence is the weight the formation carries at distance d from its
// center: (1 - d/r) * strength, zero outside the radius.
func (f Formation) Influence(x, y int) float64 {
	d := noise.Distance(f.CenterX, f.CenterY, x, y)
	if d >= f.Radius {
		return 0
	}
	return (1 - d/f.Radius) * f.Strength
}

// lattice addresses the stride-2 sample grids as dense arrays. Non-lattice
// queries snap to the nearest lattice point.
type lattice struct {
	b    Bounds
	w, h int
}

func newLattice(b Bounds) lattice {
	return lattice{b: b, w: (b.Width() + 1) / 2, h: (b.Height() + 1) / 2}
}

func (l lattice) size() int { return l.w * l.h }

func (l lattice) index(x, y int) int {
	ix := (x - l.b.MinX + 1) / 2
	iy := (y - l.b.MinY + 1) / 2
	if ix < 0 {
		ix = 0
	} else if ix >= l.w {
		ix = l.w - 1
	}
	if iy < 0 {
		iy = 0
	} else if iy >= l.h {
		iy = l.h - 1
	}
	return iy*l.w + ix
}

// at returns the world coordinates of lattice cell (ix, iy).
func (l lattice) at(ix, iy int) (int, int) {
	return l.b.MinX + ix*2, l.b.MinY + iy*2
}

// Geology seeds rock formations and materializes rock-type and
// soil-quality grids on the stride-2 lattice.
type Geology struct {
	cfg config.GeologyConfig

	bounds Bounds
	seed   int64

	formations []Formation
	lat        lattice
	rock       []uint8
	soil       []float64

	rockNames []string // index -> name, fixed order {hard, soft, clay}
	rockIndex map[string]uint8
}

var rockOrder = []string{"hard", "soft", "clay"}

func NewGeology(cfg config.GeologyConfig) *Geology {
	g := &Geology{cfg: cfg, rockIndex: map[string]uint8{}}
	g.rockNames = append(g.rockNames, rockOrder...)
	for i, n := range g.rockNames {
		g.rockIndex[n] = uint8(i)
	}
	return g
}

func (g *Geology) Name() string           { return GeologyName }
func (g *Geology) Priority() int          { return 120 }
func (g *Geology) Dependencies() []string { return nil }

func (g *Geology) Generate(ctx *Context) error {
	if _, ok := g.rockIndex[g.cfg.BaseRockType]; !ok {
		return fmt.Errorf("geology: base rock type %q not in vocabulary", g.cfg.BaseRockType)
	}
	g.bounds = ctx.Bounds
	g.seed = ctx.Seed
	g.seedFormations()

	g.lat = newLattice(g.bounds)
	g.rock = make([]uint8, g.lat.size())
	g.soil = make([]float64, g.lat.size())
	for iy := 0; iy < g.lat.h; iy++ {
		for ix := 0; ix < g.lat.w; ix++ {
			x, y := g.lat.at(ix, iy)
			rt := g.determineRockTypeAt(x, y)
			i := iy*g.lat.w + ix
			g.rock[i] = g.rockIndex[rt]
			g.soil[i] = g.soilQuality(x, y, rt)
		}
	}
	return nil
}

func (g *Geology) seedFormations() {
	g.formations = g.formations[:0]
	margin := g.cfg.InteriorMargin
	minX := g.bounds.MinX + margin
	maxX := g.bounds.MaxX - margin
	minY := g.bounds.MinY + margin
	maxY := g.bounds.MaxY - margin
	// Degenerate bounds: fall back to the full rectangle.
	if minX > maxX {
		minX, maxX = g.bounds.MinX, g.bounds.MaxX
	}
	if minY > maxY {
		minY, maxY = g.bounds.MinY, g.bounds.MaxY
	}

	idx := 0
	for _, tmpl := range g.cfg.Formations {
		for n := 0; n < tmpl.Count; n++ {
			base := g.seed + int64(idx)*1000
			cx := minX + int(noise.Sample(base, saltFormationX)*float64(maxX-minX+1))
			cy := minY + int(noise.Sample(base, saltFormationY)*float64(maxY-minY+1))
			radius := noise.SampleIn(base, saltFormationRadius, tmpl.MinRadius, tmpl.MaxRadius)
			strength := noise.SampleIn(base, saltFormationStrength, 0.8, 1.2)
			g.formations = append(g.formations, Formation{
				ID:              idx,
				Tag:             tmpl.RockType + "_intrusion",
				CenterX:         cx,
				CenterY:         cy,
				Radius:          radius,
				RockType:        tmpl.RockType,
				ElevationEffect: tmpl.ElevationEffect,
				Strength:        strength,
			})
			idx++
		}
	}
}

// determineRockTypeAt recomputes the dominant rock type from scratch. The
// lattice stores its results; re-evaluating at a lattice point must
// reproduce the stored value.
func (g *Geology) determineRockTypeAt(x, y int) string {
	rt := g.cfg.BaseRockType
	best := 0.0
	for _, f := range g.formations {
		if inf := f.Influence(x, y); inf > best {
			best = inf
			rt = f.RockType
		}
	}
	// Rare perturbation so large formations don't read as flat discs.
	if noise.Value2D(float64(x)*0.15, float64(y)*0.15, g.seed+seedOffsetPerturb) > 0.7 {
		roll := float64(noise.Hash2(g.seed+seedOffsetPerturbRoll, x, y)%1000) / 1000
		if roll > 0.8 {
			rt = g.rockNames[noise.Hash2(g.seed+seedOffsetPerturbPick, x, y)%uint64(len(g.rockNames))]
		}
	}
	return rt
}

func (g *Geology) soilQuality(x, y int, rockType string) float64 {
	q := g.cfg.RockProperties[rockType].SoilQuality
	q += g.cfg.WeatheringEffect * noise.Value2D(float64(x)*0.02, float64(y)*0.02, g.seed+seedOffsetSoil)
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

// Formations returns the live formation list. Callers must not mutate it.
func (g *Geology) Formations() []Formation { return g.formations }

// RockTypeAt answers from the lattice, snapping to the nearest sample.
func (g *Geology) RockTypeAt(x, y int) string {
	if g.rock == nil {
		return g.cfg.BaseRockType
	}
	return g.rockNames[g.rock[g.lat.index(x, y)]]
}

// SoilQualityAt answers from the lattice; before generation it falls back
// to the base rock's soil quality.
func (g *Geology) SoilQualityAt(x, y int) float64 {
	if g.soil == nil {
		return g.cfg.RockProperties[g.cfg.BaseRockType].SoilQuality
	}
	return g.soil[g.lat.index(x, y)]
}

func (g *Geology) propsAt(x, y int) config.RockProperties {
	return g.cfg.RockProperties[g.RockTypeAt(x, y)]
}

func (g *Geology) ErosionResistanceAt(x, y int) float64 { return g.propsAt(x, y).ErosionResistance }
func (g *Geology) WaterRetentionAt(x, y int) float64    { return g.propsAt(x, y).WaterRetention }

// ElevationInfluenceAt is the rock-type elevation bonus plus the damped
// sum of formation effects at the position.
func (g *Geology) ElevationInfluenceAt(x, y int) float64 {
	v := g.propsAt(x, y).ElevationBonus
	var sum float64
	for _, f := range g.formations {
		if inf := f.Influence(x, y); inf > 0 {
			sum += inf * f.ElevationEffect
		}
	}
	return v + 0.3*sum
}

func (g *Geology) DataAt(x, y int, ctx *Context) Data {
	rt := g.RockTypeAt(x, y)
	var feats []string
	for _, f := range g.formations {
		if f.Influence(x, y) > 0 {
			feats = append(feats, f.Tag)
			break
		}
	}
	return Data{
		Features: feats,
		Payload: map[string]any{
			"rock_type":           rt,
			"soil_quality":        g.SoilQualityAt(x, y),
			"erosion_resistance":  g.ErosionResistanceAt(x, y),
			"water_retention":     g.WaterRetentionAt(x, y),
			"elevation_influence": g.ElevationInfluenceAt(x, y),
		},
	}
}

func (g *Geology) AffectsPosition(x, y int, ctx *Context) bool {
	return ctx.Bounds.Contains(x, y)
}
