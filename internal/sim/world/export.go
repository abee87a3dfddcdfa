package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/encoding"
)

// ExportedCell is a cell flattened for the export boundary.
type ExportedCell struct {
	Key        string  `json:"key"` // "x,y"
	Terrain    string  `json:"terrain"`
	Elevation  float64 `json:"elevation"`
	Discovered bool    `json:"discovered"`
	Walkable   bool    `json:"walkable"`
	Feature    string  `json:"feature,omitempty"`
}

// Export is the world-state export record. Cell keys use the textual
// "x,y" form so the encoding is stable across consumers.
type Export struct {
	Configuration  config.Config  `json:"configuration"`
	WorldBounds    ExportBounds   `json:"world_bounds"`
	GeneratedCells []ExportedCell `json:"generated_cells"`
	CompactTerrain CompactTerrain `json:"compact_terrain"`
	Digest         string         `json:"digest"`
	Timestamp      time.Time      `json:"timestamp"`
}

// CompactTerrain is a palette plus run-length encoding of the terrain
// layer over the bounding box of generated cells. Palette id 0 marks
// cells inside the box that were never generated.
type CompactTerrain struct {
	MinX    int      `json:"min_x"`
	MinY    int      `json:"min_y"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Palette []string `json:"palette"`
	Terrain string   `json:"terrain"`
}

type ExportBounds struct {
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// Export flattens the memoized cells in stable key order.
func (w *World) Export(now time.Time) Export {
	b := w.Bounds()
	out := Export{
		Configuration: w.cfg,
		WorldBounds:   ExportBounds{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY},
		Timestamp:     now,
	}
	for _, p := range w.sortedCellKeys() {
		c := w.cells[p]
		ec := ExportedCell{
			Key:        fmt.Sprintf("%d,%d", p.X, p.Y),
			Terrain:    c.Terrain.String(),
			Elevation:  c.Elevation,
			Discovered: c.Discovered,
			Walkable:   c.Walkable,
		}
		if c.Feature != nil {
			ec.Feature = c.Feature.Type
		}
		out.GeneratedCells = append(out.GeneratedCells, ec)
	}
	out.CompactTerrain = w.compactTerrain()
	out.Digest = w.Digest()
	return out
}

func (w *World) compactTerrain() CompactTerrain {
	keys := w.sortedCellKeys()
	if len(keys) == 0 {
		return CompactTerrain{Palette: []string{""}}
	}

	box := ExportBounds{MinX: keys[0].X, MaxX: keys[0].X, MinY: keys[0].Y, MaxY: keys[0].Y}
	names := map[string]bool{}
	for _, p := range keys {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
		names[w.cells[p].Terrain.String()] = true
	}

	palette := []string{""}
	for _, n := range sortedNames(names) {
		palette = append(palette, n)
	}
	idOf := make(map[string]uint16, len(palette))
	for i, n := range palette {
		idOf[n] = uint16(i)
	}

	ct := CompactTerrain{
		MinX:    box.MinX,
		MinY:    box.MinY,
		Width:   box.MaxX - box.MinX + 1,
		Height:  box.MaxY - box.MinY + 1,
		Palette: palette,
	}
	ids := make([]uint16, 0, ct.Width*ct.Height)
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			c, ok := w.cells[Pos{X: x, Y: y}]
			if !ok {
				ids = append(ids, 0)
				continue
			}
			ids = append(ids, idOf[c.Terrain.String()])
		}
	}
	ct.Terrain = encoding.EncodeRLE(ids)
	return ct
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Digest hashes the memoized cells in stable order. Two runs that
// generated the same cells produce the same digest.
func (w *World) Digest() string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	for _, p := range w.sortedCellKeys() {
		c := w.cells[p]
		writeInt(p.X)
		writeInt(p.Y)
		h.Write([]byte{byte(c.Terrain)})
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(c.Elevation*1e9)))
		h.Write(buf[:])
		flags := byte(0)
		if c.Discovered {
			flags |= 1
		}
		if c.Walkable {
			flags |= 2
		}
		h.Write([]byte{flags})
	}
	return hex.EncodeToString(h.Sum(nil))
}
