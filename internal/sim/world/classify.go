package world

import (
	"verdant.world/internal/sim/noise"
	"verdant.world/internal/sim/terrain"
)

// Elevation bands for land classification. Band edges are dithered by a
// small deterministic offset so borders don't speckle; the result is still
// a pure function of (x, y).
const (
	bandPlainsMax    = 0.35
	bandForestMax    = 0.55
	bandFoothillsMax = 0.75
	bandDither       = 0.02

	unknownElevation = 0.2
)

const (
	seedOffsetDither = 11001
	seedOffsetCanopy = 11002
)

// FeatureTreeCanopy marks forest cells whose canopy hides agents from the
// render and blocks wildlife vision.
const FeatureTreeCanopy = "tree_canopy"

// ClassifyAt collapses module outputs at a position to a single terrain
// kind. Same module fields, same answer.
func (g *Generator) ClassifyAt(x, y int) TerrainKind {
	// Water first: basin/polyline membership decides lake vs river.
	if h := g.hydrology(); h != nil {
		if h.IsLake(x, y) {
			return Lake
		}
		if h.IsRiver(x, y) {
			return River
		}
	}

	// Feature kinds (road, trail, building, village) come only from
	// modules that claim the position; with no such module present they
	// are never emitted.
	for _, m := range g.ordered {
		switch g.DataAt(m.Name(), x, y).Terrain {
		case "road":
			return Road
		case "trail":
			return Trail
		case "building":
			return Building
		case "village":
			return Village
		}
	}

	e := g.ElevationAt(x, y)
	seed := g.cfg.GetWorldConfig().Seed
	dither := (noise.Value2D(float64(x)*0.9, float64(y)*0.9, seed+seedOffsetDither) - 0.5) * 2 * bandDither
	e += dither
	switch {
	case e < bandPlainsMax:
		return Plains
	case e < bandForestMax:
		return Forest
	case e < bandFoothillsMax:
		return Foothills
	default:
		return Mountain
	}
}

// featureAt derives the per-cell feature record. Canopy covers a fixed,
// seed-determined share of forest cells.
func (g *Generator) featureAt(x, y int, kind TerrainKind) *Feature {
	if kind != Forest {
		return nil
	}
	chance := g.cfg.GetTerrainConfig().CanopyChancePermille
	if chance <= 0 {
		return nil
	}
	seed := g.cfg.GetWorldConfig().Seed
	if noise.Hash2(seed+seedOffsetCanopy, x, y)%1000 < uint64(chance) {
		return &Feature{Type: FeatureTreeCanopy}
	}
	return nil
}

// ModuleFeatures unions the feature tags every module reports at (x, y).
func (g *Generator) ModuleFeatures(x, y int) []string {
	var out []string
	for _, m := range g.ordered {
		out = append(out, g.DataAt(m.Name(), x, y).Features...)
	}
	return out
}

// Pos re-exports the terrain position type for callers that only import
// the world package.
type Pos = terrain.Pos
