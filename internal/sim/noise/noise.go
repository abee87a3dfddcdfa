// Package noise provides the seeded sampling primitives the terrain
// modules are built on. Everything here is deterministic and
// platform-independent: identical (seed, coordinates) always produce
// identical values, with no dependence on the host RNG.
package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
)

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 mixes a seed with two integer coordinates into a well-distributed
// 64-bit value.
func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Sample returns a uniform value in [0,1) derived from seed and salt.
// Independent salts yield independent samples under the same seed.
func Sample(seed, salt int64) float64 {
	v := mix64(uint64(seed) ^ mix64(uint64(salt)))
	return float64(v>>11) / float64(1<<53)
}

// SampleIn returns a uniform value in [lo,hi) derived from seed and salt.
func SampleIn(seed, salt int64, lo, hi float64) float64 {
	return lo + Sample(seed, salt)*(hi-lo)
}

// Value2D is hash-based value noise: a value in [0,1] that is continuous
// in x and y, computed by bilinear interpolation of lattice hashes with
// smoothstep easing. The integer lattice has unit spacing, so callers
// scale their coordinates to control feature size.
func Value2D(x, y float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0

	ix := int(x0)
	iy := int(y0)

	corner := func(cx, cy int) float64 {
		return float64(Hash2(seed, cx, cy)>>11) / float64(1<<53)
	}

	sx := fx * fx * (3 - 2*fx)
	sy := fy * fy * (3 - 2*fy)

	top := corner(ix, iy)*(1-sx) + corner(ix+1, iy)*sx
	bot := corner(ix, iy+1)*(1-sx) + corner(ix+1, iy+1)*sx
	return top*(1-sy) + bot*sy
}

// Field is a multi-octave gradient noise field used for elevation.
type Field struct {
	p *perlin.Perlin
}

// NewField builds a gradient noise field for the given seed.
func NewField(seed int64) *Field {
	// alpha=2, beta=2, n=3 gives terrain-like persistence.
	return &Field{p: perlin.NewPerlin(2, 2, 3, seed)}
}

// At returns the raw gradient noise at (x,y), roughly in [-1,1].
func (f *Field) At(x, y float64) float64 {
	return f.p.Noise2D(x, y)
}

// octave weights for AtOctaves; coarse shape dominates.
var octaveScales = [3]float64{0.02, 0.05, 0.11}
var octaveWeights = [3]float64{0.55, 0.30, 0.15}

// AtOctaves composes three octaves of gradient noise and maps the result
// into [0,1].
func (f *Field) AtOctaves(x, y float64) float64 {
	var v float64
	for i := range octaveScales {
		v += f.p.Noise2D(x*octaveScales[i], y*octaveScales[i]) * octaveWeights[i]
	}
	v = (v + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Distance is the Euclidean distance between two integer positions.
func Distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	return math.Sqrt(dx*dx + dy*dy)
}
