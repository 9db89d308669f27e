// Synthetic grid generation using layered simplex noise.
// Used for pathfinder benchmarks and tests; the town itself comes from config.
package world

import (
	"fmt"
	"math/rand"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Terrain codes written by Generate.
const (
	TerrainPath  Terrain = 'P'
	TerrainGrass Terrain = 'G'
)

// GenConfig holds synthetic grid parameters.
type GenConfig struct {
	Width   int
	Height  int
	Seed    int64   // Random seed (0 = random)
	Density float64 // Noise threshold above which a cell is blocked (0.0–1.0)
}

// DefaultGenConfig returns a town-sized grid with scattered obstacles.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:   30,
		Height:  22,
		Seed:    0,
		Density: 0.62,
	}
}

// Generate builds a grid of path and grass cells. Grass is blocked. The
// corners are always left open so benchmarks have fixed endpoints.
func Generate(cfg GenConfig) (*Grid, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("world: invalid generated size %dx%d", cfg.Width, cfg.Height)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	noise := opensimplex.NewNormalized(seed)
	corners := NewPointSet(
		Pt(0, 0), Pt(cfg.Width-1, 0),
		Pt(0, cfg.Height-1), Pt(cfg.Width-1, cfg.Height-1),
	)

	rows := make([]string, cfg.Height)
	var b strings.Builder
	for y := 0; y < cfg.Height; y++ {
		b.Reset()
		for x := 0; x < cfg.Width; x++ {
			v := octaveNoise(noise, float64(x), float64(y), 3, 0.15, 0.5)
			if v > cfg.Density && !corners.Has(Pt(x, y)) {
				b.WriteByte(byte(TerrainGrass))
			} else {
				b.WriteByte(byte(TerrainPath))
			}
		}
		rows[y] = b.String()
	}

	return NewGrid(rows, string(TerrainGrass))
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
