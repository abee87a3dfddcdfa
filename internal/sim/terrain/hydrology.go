package terrain

import (
	"fmt"
	"sort"

	"verdant.world/internal/sim/config"
)

const HydrologyName = "hydrology"

// Hydrology derives standing and flowing water from the elevation field
// and geology's water retention: lake basins around retentive local
// minima, and river polylines traced by steepest descent from high ground
// down to a lake or the world edge.
type Hydrology struct {
	cfg config.HydrologyConfig

	bounds Bounds
	elev   *Elevation
	geo    *Geology

	rivers [][]Pos
	lakes  [][]Pos

	riverAt map[Pos]int
	lakeAt  map[Pos]int
}

func NewHydrology(cfg config.HydrologyConfig) *Hydrology {
	return &Hydrology{cfg: cfg}
}

func (h *Hydrology) Name() string           { return HydrologyName }
func (h *Hydrology) Priority() int          { return 80 }
func (h *Hydrology) Dependencies() []string { return []string{GeologyName, ElevationName} }

func (h *Hydrology) Generate(ctx *Context) error {
	elev, ok := ctx.Find(ElevationName).(*Elevation)
	if !ok || elev == nil {
		return fmt.Errorf("hydrology: elevation module not attached")
	}
	geo, ok := ctx.Find(GeologyName).(*Geology)
	if !ok || geo == nil {
		return fmt.Errorf("hydrology: geology module not attached")
	}
	h.elev = elev
	h.geo = geo
	h.bounds = ctx.Bounds

	h.rivers = nil
	h.lakes = nil
	h.riverAt = map[Pos]int{}
	h.lakeAt = map[Pos]int{}

	h.fillLakes()
	h.traceRivers()
	return nil
}

// lakeFillBand is how far above a basin's minimum the water surface sits.
const lakeFillBand = 0.03

// maxLakeCells bounds the flood fill; a basin larger than this is cut off
// rather than flooding a plain.
const maxLakeCells = 400

func (h *Hydrology) fillLakes() {
	stride := h.cfg.SampleStride
	for y := h.bounds.MinY; y <= h.bounds.MaxY; y += stride {
		for x := h.bounds.MinX; x <= h.bounds.MaxX; x += stride {
			if !h.isBasinSeed(x, y, stride) {
				continue
			}
			if _, taken := h.lakeAt[Pos{x, y}]; taken {
				continue
			}
			h.floodLake(x, y)
		}
	}
}

func (h *Hydrology) isBasinSeed(x, y, stride int) bool {
	e := h.elev.ElevationAt(x, y)
	if e > h.cfg.LakeElevationMax {
		return false
	}
	if h.geo.WaterRetentionAt(x, y) < h.cfg.LakeRetentionMin {
		return false
	}
	for dy := -stride; dy <= stride; dy += stride {
		for dx := -stride; dx <= stride; dx += stride {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !h.bounds.Contains(nx, ny) {
				continue
			}
			if h.elev.ElevationAt(nx, ny) < e {
				return false
			}
		}
	}
	return true
}

func (h *Hydrology) floodLake(sx, sy int) {
	surface := h.elev.ElevationAt(sx, sy) + lakeFillBand
	id := len(h.lakes)
	var cells []Pos
	frontier := []Pos{{sx, sy}}
	seen := map[Pos]bool{{sx, sy}: true}
	for len(frontier) > 0 && len(cells) < maxLakeCells {
		p := frontier[0]
		frontier = frontier[1:]
		if h.elev.ElevationAt(p.X, p.Y) > surface {
			continue
		}
		cells = append(cells, p)
		h.lakeAt[p] = id
		for _, d := range [4]Pos{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			n := Pos{p.X + d.X, p.Y + d.Y}
			if seen[n] || !h.bounds.Contains(n.X, n.Y) {
				continue
			}
			seen[n] = true
			frontier = append(frontier, n)
		}
	}
	if len(cells) == 0 {
		return
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	h.lakes = append(h.lakes, cells)
}

// riverSourceSpacing keeps sources from clustering on one ridge.
const riverSourceSpacing = 12

func (h *Hydrology) traceRivers() {
	type cand struct {
		p Pos
		e float64
	}
	stride := h.cfg.SampleStride
	var cands []cand
	for y := h.bounds.MinY; y <= h.bounds.MaxY; y += stride {
		for x := h.bounds.MinX; x <= h.bounds.MaxX; x += stride {
			p := Pos{x, y}
			if _, inLake := h.lakeAt[p]; inLake {
				continue
			}
			cands = append(cands, cand{p: p, e: h.elev.ElevationAt(x, y)})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].e != cands[j].e {
			return cands[i].e > cands[j].e
		}
		if cands[i].p.Y != cands[j].p.Y {
			return cands[i].p.Y < cands[j].p.Y
		}
		return cands[i].p.X < cands[j].p.X
	})

	var sources []Pos
	for _, c := range cands {
		if len(sources) >= h.cfg.RiverCount {
			break
		}
		ok := true
		for _, s := range sources {
			dx, dy := c.p.X-s.X, c.p.Y-s.Y
			if dx*dx+dy*dy < riverSourceSpacing*riverSourceSpacing {
				ok = false
				break
			}
		}
		if ok {
			sources = append(sources, c.p)
		}
	}

	for _, src := range sources {
		h.traceRiver(src)
	}
}

// traceRiver follows the steepest descent from src until the chain reaches
// a lake, leaves the bounds, pools (no lower neighbor), or hits the length
// cap.
func (h *Hydrology) traceRiver(src Pos) {
	id := len(h.rivers)
	var line []Pos
	cur := src
	for len(line) < h.cfg.RiverMaxLength {
		if _, inLake := h.lakeAt[cur]; inLake {
			break
		}
		if !h.bounds.Contains(cur.X, cur.Y) {
			break
		}
		if prev, taken := h.riverAt[cur]; taken && prev != id {
			// Confluence: join the earlier river.
			break
		}
		line = append(line, cur)
		h.riverAt[cur] = id

		e := h.elev.ElevationAt(cur.X, cur.Y)
		next := cur
		best := e
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				n := Pos{cur.X + dx, cur.Y + dy}
				if !h.bounds.Contains(n.X, n.Y) {
					// Flowing off the edge ends the river.
					h.finishRiver(line)
					return
				}
				ne := h.elev.ElevationAt(n.X, n.Y)
				if ne < best {
					best = ne
					next = n
				}
			}
		}
		if next == cur {
			break
		}
		cur = next
	}
	h.finishRiver(line)
}

// finishRiver keeps multi-cell chains and discards degenerate ones.
func (h *Hydrology) finishRiver(line []Pos) {
	if len(line) > 1 {
		h.rivers = append(h.rivers, line)
		return
	}
	for _, p := range line {
		delete(h.riverAt, p)
	}
}

func (h *Hydrology) Rivers() [][]Pos { return h.rivers }
func (h *Hydrology) Lakes() [][]Pos  { return h.lakes }

func (h *Hydrology) IsLake(x, y int) bool {
	_, ok := h.lakeAt[Pos{x, y}]
	return ok
}

func (h *Hydrology) IsRiver(x, y int) bool {
	_, ok := h.riverAt[Pos{x, y}]
	return ok
}

// IsWater reports standing or flowing water at the position. Lakes win
// over rivers where both claim a cell.
func (h *Hydrology) IsWater(x, y int) bool {
	return h.IsLake(x, y) || h.IsRiver(x, y)
}

func (h *Hydrology) DataAt(x, y int, ctx *Context) Data {
	switch {
	case h.IsLake(x, y):
		return Data{Terrain: "lake", Payload: map[string]any{"lake_id": h.lakeAt[Pos{x, y}]}}
	case h.IsRiver(x, y):
		return Data{Terrain: "river", Payload: map[string]any{"river_id": h.riverAt[Pos{x, y}]}}
	default:
		return Data{}
	}
}

func (h *Hydrology) AffectsPosition(x, y int, ctx *Context) bool {
	return h.IsWater(x, y)
}
